package inject

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/PentesterFlow/xssprobe/internal/analyzer"
	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/errors"
	fasthttp "github.com/PentesterFlow/xssprobe/internal/http"
	"github.com/PentesterFlow/xssprobe/internal/logger"
	"github.com/PentesterFlow/xssprobe/internal/metrics"
	"github.com/PentesterFlow/xssprobe/internal/model"
	"github.com/PentesterFlow/xssprobe/internal/notify"
	"github.com/PentesterFlow/xssprobe/internal/ratelimit"
	"github.com/PentesterFlow/xssprobe/internal/session"
)

const defaultWorkers = 20

// Config holds engine configuration shared by both engines.
type Config struct {
	Workers  int
	Payloads catalog.Set
	Limiter  *ratelimit.Limiter
	Notifier notify.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.Collector
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.New()
	}
}

// StaticEngine tests injection points over plain HTTP with a worker pool.
type StaticEngine struct {
	config   Config
	session  *session.Manager
	client   *fasthttp.Client
	analyzer *analyzer.Analyzer
	log      *logger.Logger
}

// NewStatic creates a static engine using the session HTTP client.
func NewStatic(sess *session.Manager, a *analyzer.Analyzer, config Config) *StaticEngine {
	config.setDefaults()
	return &StaticEngine{
		config:   config,
		session:  sess,
		client:   sess.HTTP(),
		analyzer: a,
		log:      config.Logger.WithComponent("inject"),
	}
}

// Stop sets the session stop flag.
func (e *StaticEngine) Stop() {
	e.session.Stop()
}

func (e *StaticEngine) stopped(ctx context.Context) bool {
	return e.session.Stopped() || ctx.Err() != nil
}

// ScanPageContent re-fetches every page and runs the analyzer on it.
// Pages that cannot be fetched are skipped.
func (e *StaticEngine) ScanPageContent(ctx context.Context, pages []model.PageInfo) ([]model.StoredXSSResult, error) {
	n := e.config.Notifier
	results := make([]model.StoredXSSResult, 0)
	n.Infof("analyzing %d pages for stored XSS", len(pages))

	for i, page := range pages {
		if e.stopped(ctx) {
			break
		}
		if err := e.config.Limiter.Wait(ctx); err != nil {
			break
		}

		resp, err := e.client.Get(ctx, page.URL)
		if err != nil {
			se := errors.Categorize(err, page.URL)
			e.log.SkipEvent(page.URL, se.Type.String(), err)
			e.config.Metrics.RecordError(se.Type.String())
			continue
		}
		e.config.Metrics.RecordRequest(resp.StatusCode, resp.Duration, len(resp.Body))

		found := e.analyzer.Analyze(page.URL, resp.Body)
		if len(found) > 0 {
			n.Infof("[%d/%d] %s", i+1, len(pages), page.URL)
			for _, r := range found {
				n.Dangerf("%s: %s", r.PatternName, model.Truncate(r.MatchedContent, 50))
				e.log.StoredEvent(r.URL, r.PatternName, r.LineNumber)
			}
			e.config.Metrics.RecordStored(len(found))
			results = append(results, found...)
		}
		n.Progress(notify.ContentProgress, i+1, len(pages))
	}

	reportStored(n, len(results))
	return results, nil
}

// ScanPages sends every task through the worker pool. A single harvester
// owns the result slice; once the stop flag is seen it stops collecting
// and only drains the workers.
func (e *StaticEngine) ScanPages(ctx context.Context, pages []model.PageInfo, mode catalog.Mode) ([]model.ScanResult, error) {
	n := e.config.Notifier
	tasks := Enumerate(pages, e.config.Payloads.Payloads(mode))
	results := make([]model.ScanResult, 0, len(tasks))

	if len(tasks) == 0 {
		n.Warnf("no injection points to test")
		return results, nil
	}
	n.Infof("starting XSS scan: %d tests, %d workers", len(tasks), e.config.Workers)
	e.config.Metrics.AddTasks(len(tasks))

	taskCh := make(chan Task)
	resultCh := make(chan model.ScanResult)

	var wg sync.WaitGroup
	for i := 0; i < e.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				if e.stopped(ctx) {
					continue
				}
				if err := e.config.Limiter.Wait(ctx); err != nil {
					continue
				}
				resultCh <- e.run(ctx, task)
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			if e.stopped(ctx) {
				return
			}
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	halted := false
	for r := range resultCh {
		if halted {
			continue
		}
		if e.stopped(ctx) {
			halted = true
			n.Warnf("scan stopped by request")
			continue
		}

		results = append(results, r)
		e.harvest(r)
		n.Progress(notify.ScanProgress, len(results), len(tasks))
	}

	e.log.Infof("scan finished: %d of %d tests completed", len(results), len(tasks))
	return results, nil
}

func (e *StaticEngine) harvest(r model.ScanResult) {
	n := e.config.Notifier
	e.config.Metrics.RecordResult(r.Reflected, r.Vulnerable, r.Executed)

	switch {
	case r.Vulnerable:
		n.Dangerf("vulnerable [%s] %s", r.Parameter, model.Truncate(r.Payload, 30))
	case r.Reflected:
		n.Warnf("reflected [%s]", r.Parameter)
	}
	if r.Reflected {
		e.log.FindingEvent(r.URL, r.Parameter, r.Payload, r.Vulnerable, r.Executed)
	}
}

// run performs one task and classifies the response.
func (e *StaticEngine) run(ctx context.Context, task Task) model.ScanResult {
	result := model.ScanResult{
		URL:       task.TargetURL(),
		Parameter: task.Label(),
		Payload:   task.Payload,
	}

	var (
		resp *fasthttp.Response
		err  error
	)
	switch {
	case !task.IsForm():
		resp, err = e.client.Get(ctx, result.URL)
	case task.method() == "post":
		resp, err = e.client.PostForm(ctx, task.Form.Action, task.Values())
	default:
		resp, err = e.client.Do(ctx, http.MethodGet, task.Form.Action, task.Values())
	}
	if err != nil {
		se := errors.Categorize(err, result.URL)
		e.log.SkipEvent(result.URL, se.Type.String(), err)
		e.config.Metrics.RecordError(se.Type.String())
		result.ResponseSnippet = errorSnippet(err)
		return result
	}
	e.config.Metrics.RecordRequest(resp.StatusCode, resp.Duration, len(resp.Body))
	e.log.RequestEvent(strings.ToUpper(task.method()), result.URL, resp.StatusCode, resp.Duration)

	result.StatusCode = resp.StatusCode
	result.Reflected, result.ResponseSnippet = CheckReflection(resp.Body, task.Payload)
	result.Vulnerable = result.Reflected && IsDangerous(resp.Body, task.Payload)
	result.Severity = severityFor(result)
	return result
}

func reportStored(n notify.Notifier, count int) {
	if count > 0 {
		n.Dangerf("found %d stored XSS patterns", count)
		return
	}
	n.Successf("no stored XSS patterns found")
}
