package inject

import (
	"context"

	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/errors"
	"github.com/PentesterFlow/xssprobe/internal/logger"
	"github.com/PentesterFlow/xssprobe/internal/model"
	"github.com/PentesterFlow/xssprobe/internal/notify"
	"github.com/PentesterFlow/xssprobe/internal/session"
	"github.com/PentesterFlow/xssprobe/internal/verify"
)

// BrowserEngine confirms execution in the session browser. All browser
// work happens on the calling goroutine, one task at a time.
type BrowserEngine struct {
	config  Config
	verify  verify.Config
	session *session.Manager
	log     *logger.Logger
}

// NewBrowser creates a browser engine. Workers is ignored.
func NewBrowser(sess *session.Manager, config Config, vc verify.Config) *BrowserEngine {
	config.setDefaults()
	return &BrowserEngine{
		config:  config,
		verify:  vc,
		session: sess,
		log:     config.Logger.WithComponent("inject"),
	}
}

// Stop sets the session stop flag.
func (e *BrowserEngine) Stop() {
	e.session.Stop()
}

func (e *BrowserEngine) stopped(ctx context.Context) bool {
	return e.session.Stopped() || ctx.Err() != nil
}

func (e *BrowserEngine) verifier() (*verify.Verifier, error) {
	driver, err := e.session.Browser()
	if err != nil {
		e.config.Notifier.Dangerf("failed to start browser: %v", err)
		return nil, err
	}
	return verify.New(driver, e.verify, e.config.Logger), nil
}

// ScanPageContent loads every page and reports script that runs or sits
// in live handlers without any injection.
func (e *BrowserEngine) ScanPageContent(ctx context.Context, pages []model.PageInfo) ([]model.StoredXSSResult, error) {
	n := e.config.Notifier
	results := make([]model.StoredXSSResult, 0)
	if len(pages) == 0 {
		return results, nil
	}
	n.Infof("analyzing %d rendered pages for stored XSS", len(pages))

	v, err := e.verifier()
	if err != nil {
		return results, err
	}

	seen := make(map[[2]string]struct{})
	for i, page := range pages {
		if e.stopped(ctx) {
			break
		}

		found, err := v.InspectRendered(ctx, page.URL)
		if err != nil {
			se := errors.Categorize(err, page.URL)
			e.log.SkipEvent(page.URL, se.Type.String(), err)
			e.config.Metrics.RecordError(se.Type.String())
			continue
		}

		for _, r := range found {
			key := [2]string{r.URL, r.MatchedContent}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			n.Dangerf("[%d] %s", i+1, r.PatternName)
			e.log.StoredEvent(r.URL, r.PatternName, r.LineNumber)
			e.config.Metrics.RecordStored(1)
			results = append(results, r)
		}
		n.Progress(notify.ContentProgress, i+1, len(pages))
	}

	reportStored(n, len(results))
	return results, nil
}

// ScanPages delivers every task in the browser and waits for it to run.
func (e *BrowserEngine) ScanPages(ctx context.Context, pages []model.PageInfo, mode catalog.Mode) ([]model.ScanResult, error) {
	n := e.config.Notifier
	tasks := Enumerate(pages, e.config.Payloads.Payloads(mode))
	results := make([]model.ScanResult, 0, len(tasks))

	if len(tasks) == 0 {
		n.Warnf("no injection points to test")
		return results, nil
	}
	n.Infof("sink: %s", e.verify.Sink.Function())
	n.Infof("starting XSS scan: %d tests", len(tasks))

	v, err := e.verifier()
	if err != nil {
		return results, err
	}
	e.config.Metrics.AddTasks(len(tasks))

	for _, task := range tasks {
		if e.stopped(ctx) {
			n.Warnf("scan stopped by request")
			break
		}

		r := e.run(ctx, v, task)
		results = append(results, r)
		e.config.Metrics.RecordResult(r.Reflected, r.Vulnerable, r.Executed)

		switch {
		case r.Executed:
			n.Dangerf("XSS executed [%s] %s", r.Parameter, r.ConsoleOutput)
			e.log.FindingEvent(r.URL, r.Parameter, r.Payload, true, true)
		case r.Reflected:
			n.Warnf("reflected [%s]", r.Parameter)
			e.log.FindingEvent(r.URL, r.Parameter, r.Payload, false, false)
		}
		n.Progress(notify.ScanProgress, len(results), len(tasks))
	}

	return results, nil
}

func (e *BrowserEngine) run(ctx context.Context, v *verify.Verifier, task Task) model.ScanResult {
	result := model.ScanResult{
		URL:       task.TargetURL(),
		Parameter: task.Label(),
		Payload:   task.Payload,
	}

	d, err := task.Delivery()
	if err != nil {
		result.ResponseSnippet = errorSnippet(err)
		return result
	}

	out := v.VerifyInjection(ctx, d, task.Payload)
	if out.Err != nil {
		se := errors.Categorize(out.Err, result.URL)
		e.log.SkipEvent(result.URL, se.Type.String(), out.Err)
		e.config.Metrics.RecordError(se.Type.String())
		result.ResponseSnippet = errorSnippet(out.Err)
		return result
	}

	result.Executed = out.Executed
	result.Vulnerable = out.Executed
	result.Reflected = out.Reflected
	result.ConsoleOutput = out.Evidence
	result.Severity = severityFor(result)
	return result
}
