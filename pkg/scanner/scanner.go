package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/PentesterFlow/xssprobe/internal/analyzer"
	"github.com/PentesterFlow/xssprobe/internal/browser"
	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/crawler"
	fasthttp "github.com/PentesterFlow/xssprobe/internal/http"
	"github.com/PentesterFlow/xssprobe/internal/inject"
	"github.com/PentesterFlow/xssprobe/internal/logger"
	"github.com/PentesterFlow/xssprobe/internal/metrics"
	"github.com/PentesterFlow/xssprobe/internal/model"
	"github.com/PentesterFlow/xssprobe/internal/notify"
	"github.com/PentesterFlow/xssprobe/internal/output"
	"github.com/PentesterFlow/xssprobe/internal/ratelimit"
	"github.com/PentesterFlow/xssprobe/internal/scope"
	"github.com/PentesterFlow/xssprobe/internal/session"
	"github.com/PentesterFlow/xssprobe/internal/verify"
)

// Scanner runs one scan: crawl, stored-content analysis, then injection.
type Scanner struct {
	config   *Config
	logger   *logger.Logger
	metrics  *metrics.Collector
	sinks    []notify.Func
	launcher browser.Launcher
	patterns *catalog.Patterns
	payloads *catalog.Set

	notifier notify.Notifier
	session  *session.Manager
	crawler  Crawler
	engine   TestEngine
}

// New creates a scanner. The browser is not launched until the dynamic
// engine first needs it.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{config: DefaultConfig()}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if s.config.Target != "" {
		s.config.Target = scope.PrepareTarget(s.config.Target)
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	// Empty values validate as the defaults; store them resolved.
	s.config.Mode, _ = catalog.ParseMode(string(s.config.Mode))
	s.config.Sink, _ = catalog.ParseSink(string(s.config.Sink))
	s.config.Engine, _ = ParseEngine(string(s.config.Engine))

	if s.logger == nil {
		s.logger = logger.New(logger.Config{
			Level:     logger.LevelFor(s.config.Debug, s.config.Verbose),
			Pretty:    true,
			Component: "scanner",
		})
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if len(s.sinks) == 0 {
		s.sinks = append(s.sinks, notify.ToLogger(s.logger))
	}
	s.notifier = notify.New(s.sinks...)

	payloads, err := s.payloadSet()
	if err != nil {
		return nil, fmt.Errorf("invalid payload catalog: %w", err)
	}

	normalizer, err := scope.NewNormalizer(s.config.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}

	s.session = session.New(s.sessionConfig(), session.WithLauncher(s.launcher), session.WithLogger(s.logger))

	crawlCfg := crawler.Config{
		MaxPages: s.config.MaxPages,
		MaxDepth: s.config.MaxDepth,
		Delay:    s.config.Delay,
		Notifier: s.notifier,
		Logger:   s.logger,
		Metrics:  s.metrics,
	}
	engineCfg := inject.Config{
		Workers:  s.config.Workers,
		Payloads: payloads,
		Limiter:  ratelimit.NewLimiter(s.config.RateLimit, 1),
		Notifier: s.notifier,
		Logger:   s.logger,
		Metrics:  s.metrics,
	}

	switch s.config.Engine {
	case EngineDynamic:
		fetcher := crawler.NewBrowserFetcher(s.session, s.notifier, s.metrics)
		s.crawler = crawler.New(fetcher, normalizer, s.session, crawlCfg)
		s.engine = inject.NewBrowser(s.session, engineCfg, verify.Config{
			Sink:         s.config.Sink,
			PageLoadWait: s.config.Browser.PageLoadWait,
			PollInterval: s.config.Browser.PollInterval,
			StoredWait:   s.config.Browser.StoredWait,
		})
	default:
		patterns := catalog.DefaultPatterns()
		if s.patterns != nil {
			patterns = *s.patterns
		}
		fetcher := crawler.NewHTTPFetcher(s.session.HTTP(), s.metrics)
		s.crawler = crawler.New(fetcher, normalizer, s.session, crawlCfg)
		s.engine = inject.NewStatic(s.session, analyzer.New(patterns, s.notifier), engineCfg)
	}

	s.logger.Debugf("scanner ready: target=%s engine=%s mode=%s", s.config.Target, s.config.Engine, s.config.Mode)
	return s, nil
}

func (s *Scanner) payloadSet() (catalog.Set, error) {
	var set catalog.Set
	switch {
	case s.payloads != nil:
		set = *s.payloads
	case s.config.Engine == EngineDynamic:
		set = catalog.Dynamic(s.config.Sink)
	default:
		set = catalog.Static()
	}
	return set, set.Validate()
}

func (s *Scanner) sessionConfig() session.Config {
	hc := fasthttp.DefaultConfig().PoolFor(s.config.Workers)
	hc.Timeout = s.config.Timeout
	if s.config.UserAgent != "" {
		hc.UserAgent = s.config.UserAgent
	}
	hc.Headers = s.config.Headers
	hc.Retries = s.config.Retries
	hc.BreakerThreshold = s.config.BreakerThreshold

	bc := browser.DefaultConfig()
	bc.Headless = s.config.Browser.Headless
	bc.NoSandbox = s.config.Browser.NoSandbox
	bc.WindowWidth = s.config.Browser.WindowWidth
	bc.WindowHeight = s.config.Browser.WindowHeight
	bc.Timeout = s.config.Timeout

	return session.Config{
		Target:  s.config.Target,
		Cookies: s.config.Cookies,
		HTTP:    hc,
		Browser: bc,
	}
}

// Crawl runs the crawler.
func (s *Scanner) Crawl(ctx context.Context) ([]model.PageInfo, error) {
	return s.crawler.Crawl(ctx)
}

// ScanPageContent runs stored-content analysis over pages.
func (s *Scanner) ScanPageContent(ctx context.Context, pages []model.PageInfo) ([]model.StoredXSSResult, error) {
	return s.engine.ScanPageContent(ctx, pages)
}

// ScanPages tests every injection point of pages with the configured mode.
func (s *Scanner) ScanPages(ctx context.Context, pages []model.PageInfo) ([]model.ScanResult, error) {
	return s.engine.ScanPages(ctx, pages, s.config.Mode)
}

// Run performs the full scan and returns the report. The report is
// returned even when a phase fails; the error is only set when the
// browser could not be started.
func (s *Scanner) Run(ctx context.Context) (*output.Report, error) {
	report := &output.Report{
		Version:   Version,
		Target:    s.config.Target,
		Engine:    string(s.config.Engine),
		Mode:      string(s.config.Mode),
		StartedAt: time.Now(),
	}
	if s.config.Engine == EngineDynamic {
		report.Sink = string(s.config.Sink)
	}

	err := s.run(ctx, report)

	report.Stopped = s.session.Stopped() || ctx.Err() != nil
	report.Metrics = s.metrics.Snapshot()
	s.logger.StatsEvent(report.Metrics.Summary())
	report.Finalize(time.Now())
	return report, err
}

func (s *Scanner) run(ctx context.Context, report *output.Report) error {
	pages, err := s.crawler.Crawl(ctx)
	report.Pages = pages
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		s.notifier.Warnf("no pages crawled")
		return nil
	}

	stored, err := s.engine.ScanPageContent(ctx, pages)
	report.Stored = stored
	if err != nil {
		return err
	}

	findings, err := s.engine.ScanPages(ctx, pages, s.config.Mode)
	report.Findings = findings
	return err
}

// Stop asks every phase to finish early. Safe from any goroutine.
func (s *Scanner) Stop() {
	s.crawler.Stop()
	s.engine.Stop()
}

// Stopped reports whether Stop was called.
func (s *Scanner) Stopped() bool {
	return s.session.Stopped()
}

// Close releases the browser and idle connections.
func (s *Scanner) Close() error {
	return s.session.Close()
}

// Metrics returns the metrics collector.
func (s *Scanner) Metrics() *metrics.Collector {
	return s.metrics
}

// Config returns a copy of the resolved configuration.
func (s *Scanner) Config() *Config {
	return s.config.Clone()
}
