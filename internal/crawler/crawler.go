// Package crawler walks a target breadth-first and collects the injection
// points of every page it can parse.
package crawler

import (
	"context"
	"time"

	"github.com/PentesterFlow/xssprobe/internal/errors"
	"github.com/PentesterFlow/xssprobe/internal/logger"
	"github.com/PentesterFlow/xssprobe/internal/metrics"
	"github.com/PentesterFlow/xssprobe/internal/model"
	"github.com/PentesterFlow/xssprobe/internal/notify"
	"github.com/PentesterFlow/xssprobe/internal/parser"
	"github.com/PentesterFlow/xssprobe/internal/queue"
	"github.com/PentesterFlow/xssprobe/internal/ratelimit"
	"github.com/PentesterFlow/xssprobe/internal/scope"
	"github.com/PentesterFlow/xssprobe/internal/session"
	"github.com/PentesterFlow/xssprobe/internal/state"
)

// Config holds crawler configuration.
type Config struct {
	MaxPages int
	MaxDepth int
	Delay    time.Duration
	Notifier notify.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.Collector
}

// DefaultConfig returns default crawler configuration.
func DefaultConfig() Config {
	return Config{
		MaxPages: 30,
		MaxDepth: 3,
		Delay:    50 * time.Millisecond,
	}
}

// Crawler is a sequential BFS crawler.
type Crawler struct {
	config     Config
	fetcher    Fetcher
	normalizer *scope.Normalizer
	parser     *parser.Parser
	session    *session.Manager
	frontier   *queue.Frontier
	visited    *state.Visited
	limiter    *ratelimit.Limiter
	log        *logger.Logger
	metrics    *metrics.Collector
}

// New creates a crawler rooted at the session target.
func New(fetcher Fetcher, normalizer *scope.Normalizer, sess *session.Manager, config Config) *Crawler {
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultConfig().MaxPages
	}
	if config.MaxDepth < 0 {
		config.MaxDepth = 0
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}

	return &Crawler{
		config:     config,
		fetcher:    fetcher,
		normalizer: normalizer,
		parser:     parser.New(normalizer),
		session:    sess,
		frontier:   queue.NewFrontier(),
		visited:    state.NewVisited(config.MaxPages * 50),
		limiter:    ratelimit.NewDelay(config.Delay),
		log:        config.Logger.WithComponent("crawler"),
		metrics:    config.Metrics,
	}
}

// Crawl runs until max_pages pages are parsed, the frontier runs dry, the
// stop flag is set or ctx is done. Only a failed fetcher start is returned
// as an error; every other failure skips the URL.
func (c *Crawler) Crawl(ctx context.Context) ([]model.PageInfo, error) {
	pages := make([]model.PageInfo, 0)
	n := c.config.Notifier

	if s, ok := c.fetcher.(Starter); ok {
		if err := s.Start(ctx); err != nil {
			n.Dangerf("failed to start browser: %v", err)
			return pages, err
		}
	}

	root := c.session.Target()
	if key, err := scope.Canonical(root); err == nil {
		c.visited.Mark(key)
	}
	if err := c.frontier.Push(queue.Item{URL: root}); err != nil {
		return pages, nil
	}

	for len(pages) < c.config.MaxPages {
		if c.session.Stopped() || ctx.Err() != nil {
			n.Warnf("crawl stopped after %d pages", len(pages))
			break
		}

		item, err := c.frontier.Pop()
		if err != nil {
			break
		}
		if item.Depth > c.config.MaxDepth {
			c.metrics.RecordSkip()
			continue
		}

		if err := c.limiter.Wait(ctx); err != nil {
			continue
		}

		body, _, err := c.fetcher.Fetch(ctx, item.URL)
		if err != nil {
			se := errors.Categorize(err, item.URL)
			c.log.SkipEvent(item.URL, se.Type.String(), err)
			c.metrics.RecordError(se.Type.String())
			c.metrics.RecordSkip()
			continue
		}

		page, err := c.parser.Parse(item.URL, body)
		if err != nil {
			c.log.SkipEvent(item.URL, errors.Parse.String(), err)
			c.metrics.RecordError(errors.Parse.String())
			c.metrics.RecordSkip()
			continue
		}

		pages = append(pages, *page)
		c.metrics.RecordPage(len(page.Forms), len(page.Params))

		n.Infof("[%d/%d] %s", len(pages), c.config.MaxPages, item.URL)
		if len(page.Forms) > 0 || len(page.Params) > 0 {
			n.Successf("forms: %d, params: %d", len(page.Forms), len(page.Params))
		}
		n.Progress(notify.CrawlProgress, len(pages), c.config.MaxPages)

		c.enqueue(page.Links, item)
	}

	n.Successf("crawl complete: %d pages", len(pages))
	c.log.Infof("crawled %d pages, %d URLs seen", len(pages), c.visited.Len())
	return pages, nil
}

// enqueue pushes every link whose canonical form has not been seen.
func (c *Crawler) enqueue(links []string, parent queue.Item) {
	for _, link := range links {
		key, err := scope.Canonical(link)
		if err != nil {
			continue
		}
		if !c.visited.Mark(key) {
			continue
		}
		c.frontier.Push(queue.Item{
			URL:       link,
			Depth:     parent.Depth + 1,
			ParentURL: parent.URL,
		})
	}
}

// Stop sets the session stop flag.
func (c *Crawler) Stop() {
	c.session.Stop()
}
