package crawler

import (
	"context"
	"time"

	"github.com/PentesterFlow/xssprobe/internal/browser"
	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/errors"
	fasthttp "github.com/PentesterFlow/xssprobe/internal/http"
	"github.com/PentesterFlow/xssprobe/internal/metrics"
	"github.com/PentesterFlow/xssprobe/internal/notify"
	"github.com/PentesterFlow/xssprobe/internal/session"
)

// Fetcher retrieves the HTML of one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body string, status int, err error)
}

// Starter is implemented by fetchers that must be prepared before the
// first page. A Start error ends the crawl.
type Starter interface {
	Start(ctx context.Context) error
}

// HTTPFetcher fetches pages with plain GET requests.
type HTTPFetcher struct {
	client  *fasthttp.Client
	metrics *metrics.Collector
}

// NewHTTPFetcher creates a fetcher over client.
func NewHTTPFetcher(client *fasthttp.Client, m *metrics.Collector) *HTTPFetcher {
	if m == nil {
		m = metrics.New()
	}
	return &HTTPFetcher{client: client, metrics: m}
}

// Fetch implements Fetcher. Responses that are not declared text/html are
// rejected with a Content error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, int, error) {
	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return "", 0, err
	}
	f.metrics.RecordRequest(resp.StatusCode, resp.Duration, len(resp.Body))

	if !resp.IsHTML() {
		return "", resp.StatusCode, errors.NewContentError(url, resp.StatusCode, resp.ContentType)
	}
	return resp.Body, resp.StatusCode, nil
}

// BrowserFetcher renders pages in the session browser.
type BrowserFetcher struct {
	session  *session.Manager
	notifier notify.Notifier
	metrics  *metrics.Collector
	driver   browser.Driver
}

// NewBrowserFetcher creates a fetcher that launches the browser on Start.
func NewBrowserFetcher(sess *session.Manager, n notify.Notifier, m *metrics.Collector) *BrowserFetcher {
	if m == nil {
		m = metrics.New()
	}
	return &BrowserFetcher{session: sess, notifier: n, metrics: m}
}

// Start implements Starter.
func (f *BrowserFetcher) Start(ctx context.Context) error {
	d, err := f.session.Browser()
	if err != nil {
		return err
	}
	f.driver = d
	return nil
}

// Fetch implements Fetcher. The status is always 0 since the rendered DOM
// carries none. Console markers seen while loading are reported as danger.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, int, error) {
	if f.driver == nil {
		if err := f.Start(ctx); err != nil {
			return "", 0, err
		}
	}

	start := time.Now()
	f.driver.ResetEvents()
	if err := f.driver.Navigate(ctx, url); err != nil {
		return "", 0, errors.NewBrowserError(url, "navigate", err)
	}

	html, err := f.driver.HTML()
	if err != nil {
		return "", 0, errors.NewBrowserError(url, "html", err)
	}
	f.metrics.RecordRequest(0, time.Since(start), len(html))

	for _, line := range f.driver.ConsoleLogs() {
		if catalog.ContainsMarker(line) {
			f.notifier.Dangerf("script executed while loading %s: %s", url, line)
		}
	}
	if msg, ok := f.driver.TakeDialog(); ok {
		f.notifier.Dangerf("dialog opened while loading %s: %s", url, msg)
	}
	return html, 0, nil
}
