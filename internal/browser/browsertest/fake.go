// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"sync"

	"github.com/PentesterFlow/xssprobe/internal/browser"
)

// Request is one navigation or form submission seen by the Fake.
type Request struct {
	URL    string
	Method string
	Fields map[string]string
}

// Page is what the Fake renders for a request.
type Page struct {
	HTML     string
	Dialog   string
	Console  []string
	Elements map[string][]string
	Err      error
}

// Fake renders pages through Render. The zero value serves empty pages.
type Fake struct {
	Render func(Request) Page

	mu        sync.Mutex
	requests  []Request
	current   Page
	dialog    string
	hasDialog bool
	console   []string
	closed    bool
	launches  int
}

// New returns a Fake that renders with fn.
func New(fn func(Request) Page) *Fake {
	return &Fake{Render: fn}
}

// Launcher returns a browser.Launcher handing out f.
func (f *Fake) Launcher() browser.Launcher {
	return func(browser.Config) (browser.Driver, error) {
		f.mu.Lock()
		f.launches++
		f.mu.Unlock()
		return f, nil
	}
}

// FailingLauncher returns a browser.Launcher that always fails with err.
func FailingLauncher(err error) browser.Launcher {
	return func(browser.Config) (browser.Driver, error) {
		return nil, err
	}
}

func (f *Fake) load(req Request) error {
	var page Page
	if f.Render != nil {
		page = f.Render(req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if page.Err != nil {
		return page.Err
	}
	f.current = page
	if page.Dialog != "" && !f.hasDialog {
		f.dialog = "Alert: " + page.Dialog
		f.hasDialog = true
	}
	f.console = append(f.console, page.Console...)
	return nil
}

// Navigate implements browser.Driver.
func (f *Fake) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.load(Request{URL: url, Method: "get"})
}

// Submit implements browser.Driver.
func (f *Fake) Submit(ctx context.Context, pageURL, method, action string, fields map[string]string) error {
	if err := f.Navigate(ctx, pageURL); err != nil {
		return err
	}
	f.ResetEvents()
	return f.load(Request{URL: action, Method: method, Fields: fields})
}

// HTML implements browser.Driver.
func (f *Fake) HTML() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.HTML, nil
}

// TakeDialog implements browser.Driver.
func (f *Fake) TakeDialog() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialog, f.hasDialog
}

// ConsoleLogs implements browser.Driver.
func (f *Fake) ConsoleLogs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.console
	f.console = nil
	return out
}

// ResetEvents implements browser.Driver.
func (f *Fake) ResetEvents() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialog, f.hasDialog = "", false
	f.console = nil
}

// QueryOuterHTML implements browser.Driver.
func (f *Fake) QueryOuterHTML(selector string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	els := f.current.Elements[selector]
	if len(els) > limit {
		els = els[:limit]
	}
	return append([]string(nil), els...), nil
}

// Close implements browser.Driver.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Requests returns every request seen so far.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Launches counts Launcher calls.
func (f *Fake) Launches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.launches
}

var _ browser.Driver = (*Fake)(nil)
