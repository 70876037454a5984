package verify

import (
	"context"
	"strings"
	"time"

	"github.com/PentesterFlow/xssprobe/internal/browser"
	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/logger"
	"github.com/PentesterFlow/xssprobe/internal/model"
)

const (
	domMatchesPerSelector = 3
	domExcerptRunes       = 150
	excerptRunes          = 100
)

// Config holds verifier timing and the sink the payloads use.
type Config struct {
	Sink         catalog.Sink
	PageLoadWait time.Duration
	PollInterval time.Duration
	StoredWait   time.Duration
}

// DefaultConfig returns default verifier configuration.
func DefaultConfig() Config {
	return Config{
		Sink:         catalog.SinkConsole,
		PageLoadWait: 2 * time.Second,
		PollInterval: 100 * time.Millisecond,
	}
}

// Delivery describes how a payload reaches the page. With no Fields the
// URL is simply navigated; otherwise a form is submitted from PageURL.
type Delivery struct {
	URL     string
	PageURL string
	Method  string
	Fields  map[string]string
}

// Outcome is what one injection did in the browser.
type Outcome struct {
	Executed  bool
	Reflected bool
	Evidence  string
	Err       error
}

// Verifier watches a browser for payload side effects.
type Verifier struct {
	driver browser.Driver
	config Config
	log    *logger.Logger
}

// New creates a verifier over driver.
func New(driver browser.Driver, config Config, log *logger.Logger) *Verifier {
	if config.PollInterval <= 0 {
		config.PollInterval = defaultInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Verifier{driver: driver, config: config, log: log.WithComponent("verify")}
}

// VerifyInjection delivers a payload and waits for it to run.
func (v *Verifier) VerifyInjection(ctx context.Context, d Delivery, payload string) Outcome {
	var err error
	if len(d.Fields) == 0 {
		v.driver.ResetEvents()
		err = v.driver.Navigate(ctx, d.URL)
	} else {
		err = v.driver.Submit(ctx, d.PageURL, d.Method, d.URL, d.Fields)
	}
	if err != nil {
		return Outcome{Err: err}
	}

	var evidence string
	executed := Poll(ctx, v.config.PollInterval, v.config.PageLoadWait, func() bool {
		var ok bool
		evidence, ok = v.sideEffect(v.config.Sink != catalog.SinkDialog)
		return ok
	})
	if executed {
		v.log.Debugf("execution confirmed on %s: %s", d.URL, evidence)
		return Outcome{Executed: true, Evidence: evidence}
	}

	html, err := v.driver.HTML()
	if err != nil {
		return Outcome{}
	}
	return Outcome{Reflected: strings.Contains(html, payload)}
}

// InspectRendered loads url and reports script that is already live on it:
// an opened dialog, a console marker, or elements with inline handlers.
func (v *Verifier) InspectRendered(ctx context.Context, url string) ([]model.StoredXSSResult, error) {
	v.driver.ResetEvents()
	if err := v.driver.Navigate(ctx, url); err != nil {
		return nil, err
	}

	var evidence string
	fired := Poll(ctx, v.config.PollInterval, v.config.StoredWait, func() bool {
		var ok bool
		evidence, ok = v.sideEffect(true)
		return ok
	})
	if fired {
		name := "XSS executed (console)"
		if strings.HasPrefix(evidence, "Alert: ") {
			name = "XSS alert executed"
		}
		matched := model.Truncate(evidence, excerptRunes)
		return []model.StoredXSSResult{{
			URL:               url,
			PatternName:       name,
			MatchedContent:    matched,
			ExecutionEvidence: evidence,
			Severity:          catalog.Classify(matched),
		}}, nil
	}

	var results []model.StoredXSSResult
	for _, sel := range catalog.DOMSelectors {
		elements, err := v.driver.QueryOuterHTML(sel.Pattern, domMatchesPerSelector)
		if err != nil {
			v.log.Debugf("selector %s on %s: %v", sel.Pattern, url, err)
			continue
		}
		for _, el := range elements {
			matched := model.Truncate(el, domExcerptRunes)
			results = append(results, model.StoredXSSResult{
				URL:            url,
				PatternName:    "DOM: " + sel.Name,
				MatchedContent: matched,
				Severity:       catalog.Classify(matched),
			})
		}
	}
	return results, nil
}

// sideEffect checks for a dialog and, when console is set, for a console
// line carrying an execution marker.
func (v *Verifier) sideEffect(console bool) (string, bool) {
	if msg, ok := v.driver.TakeDialog(); ok {
		return msg, true
	}
	if !console {
		return "", false
	}
	for _, line := range v.driver.ConsoleLogs() {
		if catalog.ContainsMarker(line) {
			return line, true
		}
	}
	return "", false
}
