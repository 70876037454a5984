package crawler

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PentesterFlow/xssprobe/internal/browser/browsertest"
	fasthttp "github.com/PentesterFlow/xssprobe/internal/http"
	"github.com/PentesterFlow/xssprobe/internal/metrics"
	"github.com/PentesterFlow/xssprobe/internal/notify"
	"github.com/PentesterFlow/xssprobe/internal/scope"
	"github.com/PentesterFlow/xssprobe/internal/session"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) fn(e notify.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(level notify.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if !e.IsProgress() && e.Level == level {
			n++
		}
	}
	return n
}

func (r *recorder) progress(kind notify.Kind) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e.Percent)
		}
	}
	return out
}

// site serves HTML pages from a path -> body map and records every hit.
type site struct {
	mu    sync.Mutex
	pages map[string]string
	types map[string]string
	hits  map[string]int
}

func newSite(pages map[string]string) *site {
	return &site{pages: pages, types: map[string]string{}, hits: map[string]int{}}
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	body, ok := s.pages[r.URL.Path]
	ct := s.types[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if ct == "" {
		ct = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	fmt.Fprint(w, body)
}

func (s *site) hit(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func links(paths ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, p := range paths {
		fmt.Fprintf(&b, `<a href="%s">x</a>`, p)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newHTTPCrawler(t *testing.T, target string, cfg Config) (*Crawler, *session.Manager) {
	t.Helper()
	target = scope.PrepareTarget(target)
	norm, err := scope.NewNormalizer(target)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(session.Config{Target: target, HTTP: fasthttp.DefaultConfig()})
	t.Cleanup(func() { sess.Close() })
	return New(NewHTTPFetcher(sess.HTTP(), cfg.Metrics), norm, sess, cfg), sess
}

// =============================================================================
// Traversal Tests
// =============================================================================

func TestCrawl_MaxPages(t *testing.T) {
	pages := map[string]string{}
	for i := 0; i < 20; i++ {
		pages[fmt.Sprintf("/p%d", i)] = links("/p0", "/p1", "/p2", "/p3", "/p4", "/p5", "/p6", "/p7")
	}
	pages["/"] = links("/p0", "/p1", "/p2", "/p3", "/p4", "/p5")
	server := httptest.NewServer(newSite(pages))
	defer server.Close()

	c, _ := newHTTPCrawler(t, server.URL, Config{MaxPages: 5, MaxDepth: 3})
	got, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d pages, want 5", len(got))
	}

	seen := map[string]bool{}
	for _, p := range got {
		key, _ := scope.Canonical(p.URL)
		if seen[key] {
			t.Errorf("canonical URL %s crawled twice", key)
		}
		seen[key] = true
	}
}

func TestCrawl_MaxDepth(t *testing.T) {
	s := newSite(map[string]string{
		"/":   links("/d1"),
		"/d1": links("/d2"),
		"/d2": links("/d3"),
		"/d3": links("/d4"),
		"/d4": links(),
	})
	server := httptest.NewServer(s)
	defer server.Close()

	c, _ := newHTTPCrawler(t, server.URL, Config{MaxPages: 30, MaxDepth: 2})
	got, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d pages, want 3", len(got))
	}
	if s.hit("/d3") != 0 || s.hit("/d4") != 0 {
		t.Error("pages deeper than max depth were fetched")
	}
}

func TestCrawl_ValueOnlyLinksCollapse(t *testing.T) {
	s := newSite(map[string]string{
		"/":     links("/item?id=1", "/item?id=2", "/item?id=3#frag", "/item?id=4&x=1"),
		"/item": links(),
	})
	server := httptest.NewServer(s)
	defer server.Close()

	c, _ := newHTTPCrawler(t, server.URL, Config{MaxPages: 30, MaxDepth: 3})
	got, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// root, /item?id and /item?id&x
	if len(got) != 3 {
		t.Errorf("got %d pages, want 3", len(got))
	}
	if s.hit("/item") != 2 {
		t.Errorf("/item fetched %d times, want 2", s.hit("/item"))
	}
	for _, p := range got {
		if strings.HasPrefix(p.URL, server.URL+"/item?id=1") && p.Params["id"] != "1" {
			t.Errorf("params = %v", p.Params)
		}
	}
}

func TestCrawl_SkipsNonHTML(t *testing.T) {
	s := newSite(map[string]string{
		"/":          links("/data.json", "/missing", "/b"),
		"/data.json": `{"a":1}`,
		"/b":         `<form action="/s"><input name="q"></form>`,
	})
	s.types["/data.json"] = "application/json"
	server := httptest.NewServer(s)
	defer server.Close()

	m := metrics.New()
	c, _ := newHTTPCrawler(t, server.URL, Config{MaxPages: 30, MaxDepth: 3, Metrics: m})
	got, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var urls []string
	for _, p := range got {
		urls = append(urls, p.URL)
	}
	// the 404 page is text/plain and skipped along with the JSON
	if len(got) != 2 {
		t.Fatalf("pages = %v, want root and /b", urls)
	}
	snap := m.Snapshot()
	if snap.PagesSkipped != 2 || snap.ErrorCounts["content"] != 2 {
		t.Errorf("skipped = %d, errors = %v", snap.PagesSkipped, snap.ErrorCounts)
	}
	if snap.FormsFound != 1 {
		t.Errorf("forms found = %d, want 1", snap.FormsFound)
	}
}

func TestCrawl_UnreachableTarget(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	c, _ := newHTTPCrawler(t, target, Config{MaxPages: 5})
	got, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("transport failure must not be fatal: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d pages", len(got))
	}
}

func TestCrawl_StopFlag(t *testing.T) {
	server := httptest.NewServer(newSite(map[string]string{"/": links()}))
	defer server.Close()

	c, sess := newHTTPCrawler(t, server.URL, Config{MaxPages: 5})
	c.Stop()
	if !sess.Stopped() {
		t.Fatal("Stop did not reach the session")
	}

	got, err := c.Crawl(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("got %d pages, err %v", len(got), err)
	}
}

func TestCrawl_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(newSite(map[string]string{"/": links()}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newHTTPCrawler(t, server.URL, Config{MaxPages: 5})
	got, err := c.Crawl(ctx)
	if err != nil || len(got) != 0 {
		t.Errorf("got %d pages, err %v", len(got), err)
	}
}

func TestCrawl_Notifications(t *testing.T) {
	server := httptest.NewServer(newSite(map[string]string{
		"/":  links("/a"),
		"/a": `<form><input name="q"></form>`,
	}))
	defer server.Close()

	rec := &recorder{}
	c, _ := newHTTPCrawler(t, server.URL, Config{MaxPages: 4, MaxDepth: 1, Notifier: notify.New(rec.fn)})
	if _, err := c.Crawl(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := rec.progress(notify.CrawlProgress); len(got) != 2 || got[0] != 25 || got[1] != 50 {
		t.Errorf("crawl progress = %v, want [25 50]", got)
	}
	if rec.count(notify.Info) != 2 {
		t.Errorf("info messages = %d, want 2", rec.count(notify.Info))
	}
	// one for the page with a form, one at the end
	if rec.count(notify.Success) != 2 {
		t.Errorf("success messages = %d, want 2", rec.count(notify.Success))
	}
}

// =============================================================================
// Browser Fetcher Tests
// =============================================================================

func newBrowserCrawler(t *testing.T, target string, launch func(s *session.Manager) *BrowserFetcher, opts ...session.Option) *Crawler {
	t.Helper()
	norm, err := scope.NewNormalizer(target)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(session.Config{Target: target, HTTP: fasthttp.DefaultConfig()}, opts...)
	t.Cleanup(func() { sess.Close() })
	return New(launch(sess), norm, sess, Config{MaxPages: 10, MaxDepth: 2})
}

func TestBrowserFetcher_StartFailure(t *testing.T) {
	rec := &recorder{}
	n := notify.New(rec.fn)

	c := newBrowserCrawler(t, "http://t.test", func(s *session.Manager) *BrowserFetcher {
		return NewBrowserFetcher(s, n, nil)
	}, session.WithLauncher(browsertest.FailingLauncher(stderrors.New("chrome not found"))))
	c.config.Notifier = n

	got, err := c.Crawl(context.Background())
	if err == nil {
		t.Fatal("expected a startup error")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("pages = %v, want empty", got)
	}
	if rec.count(notify.Danger) != 1 {
		t.Errorf("danger messages = %d, want 1", rec.count(notify.Danger))
	}
}

func TestBrowserFetcher_RenderedLinks(t *testing.T) {
	fake := browsertest.New(func(r browsertest.Request) browsertest.Page {
		switch r.URL {
		case "http://t.test":
			return browsertest.Page{HTML: links("/app")}
		case "http://t.test/app":
			return browsertest.Page{
				HTML:    `<form method="post"><input name="msg"></form>`,
				Console: []string{"XSS_TEST_2"},
			}
		}
		return browsertest.Page{Err: stderrors.New("net::ERR_NAME_NOT_RESOLVED")}
	})

	rec := &recorder{}
	n := notify.New(rec.fn)
	c := newBrowserCrawler(t, "http://t.test", func(s *session.Manager) *BrowserFetcher {
		return NewBrowserFetcher(s, n, nil)
	}, session.WithLauncher(fake.Launcher()))
	c.config.Notifier = n

	got, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d pages, want 2", len(got))
	}
	if len(got[1].Forms) != 1 || got[1].Forms[0].Method != "post" {
		t.Errorf("forms = %+v", got[1].Forms)
	}
	if rec.count(notify.Danger) != 1 {
		t.Errorf("danger messages = %d, want 1 for the console marker", rec.count(notify.Danger))
	}
	if fake.Launches() != 1 {
		t.Errorf("browser launched %d times", fake.Launches())
	}
}
