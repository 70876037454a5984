// Package browser drives headless Chrome via Rod.
package browser

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// submitJS builds a hidden form inside the current document and submits it
// on the next tick, so Eval returns before navigation starts.
const submitJS = `(method, action, fields) => {
	const form = document.createElement('form');
	form.method = method;
	form.action = action;
	form.style.display = 'none';
	for (const [name, value] of Object.entries(fields)) {
		const input = document.createElement('input');
		input.type = 'hidden';
		input.name = name;
		input.value = value;
		form.appendChild(input);
	}
	(document.body || document.documentElement).appendChild(form);
	setTimeout(() => form.submit(), 0);
}`

// Browser is a single Chrome tab that records dialogs and console output.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	config   Config
	events   eventLog
}

// Launch starts Chrome and opens the tab every call will use.
func Launch(config Config) (*Browser, error) {
	if config.WindowWidth <= 0 || config.WindowHeight <= 0 {
		def := DefaultConfig()
		config.WindowWidth, config.WindowHeight = def.WindowWidth, def.WindowHeight
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	l := launcher.New().
		Headless(config.Headless).
		NoSandbox(config.NoSandbox).
		Set("ignore-certificate-errors", "true").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("window-size", fmt.Sprintf("%d,%d", config.WindowWidth, config.WindowHeight))

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	rb := rod.New().ControlURL(url)
	if err := rb.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	b := &Browser{
		launcher: l,
		browser:  rb,
		config:   config,
	}
	if err := b.openPage(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Browser) openPage() error {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	b.page = page

	// Not critical
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  b.config.WindowWidth,
		Height: b.config.WindowHeight,
	})

	if b.config.UserAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{
			UserAgent: b.config.UserAgent,
		}.Call(page)
	}

	if len(b.config.Headers) > 0 {
		_ = proto.NetworkEnable{}.Call(page)
		networkHeaders := make(proto.NetworkHeaders)
		for k, v := range b.config.Headers {
			networkHeaders[k] = gson.New(v)
		}
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: networkHeaders}.Call(page)
	}

	if len(b.config.Cookies) > 0 && b.config.CookieURL != "" {
		names := make([]string, 0, len(b.config.Cookies))
		for name := range b.config.Cookies {
			names = append(names, name)
		}
		sort.Strings(names)

		params := make([]*proto.NetworkCookieParam, 0, len(names))
		for _, name := range names {
			params = append(params, &proto.NetworkCookieParam{
				Name:  name,
				Value: b.config.Cookies[name],
				URL:   b.config.CookieURL,
			})
		}
		if err := page.SetCookies(params); err != nil {
			return fmt.Errorf("failed to set cookies: %w", err)
		}
	}

	wait := page.EachEvent(
		func(e *proto.PageJavascriptDialogOpening) {
			b.events.recordDialog(e.Message)
			// Accepting from inside the event loop would block it.
			go func() {
				_ = proto.PageHandleJavaScriptDialog{Accept: true}.Call(page)
			}()
		},
		func(e *proto.RuntimeConsoleAPICalled) {
			b.events.recordConsole(consoleLine(e.Args))
		},
	)
	go wait()

	return nil
}

// Navigate loads url and waits for the load event. A load that never
// finishes is not an error once navigation has started.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	tctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	p := b.page.Context(tctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	_ = p.WaitLoad()
	return nil
}

// Submit loads pageURL, clears recorded events, then posts fields to action
// from inside the page.
func (b *Browser) Submit(ctx context.Context, pageURL, method, action string, fields map[string]string) error {
	if err := b.Navigate(ctx, pageURL); err != nil {
		return err
	}
	b.ResetEvents()

	tctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	p := b.page.Context(tctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if _, err := p.Eval(submitJS, method, action, fields); err != nil {
		return fmt.Errorf("submit form to %s: %w", action, err)
	}
	wait()
	return nil
}

// HTML returns the rendered DOM.
func (b *Browser) HTML() (string, error) {
	p := b.page.Timeout(b.config.Timeout)
	defer p.CancelTimeout()
	return p.HTML()
}

// TakeDialog implements Driver.
func (b *Browser) TakeDialog() (string, bool) {
	return b.events.takeDialog()
}

// ConsoleLogs implements Driver.
func (b *Browser) ConsoleLogs() []string {
	return b.events.drainConsole()
}

// ResetEvents implements Driver.
func (b *Browser) ResetEvents() {
	b.events.reset()
}

// QueryOuterHTML implements Driver.
func (b *Browser) QueryOuterHTML(selector string, limit int) ([]string, error) {
	p := b.page.Timeout(b.config.Timeout)
	defer p.CancelTimeout()

	elements, err := p.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}

	out := make([]string, 0, limit)
	for _, el := range elements {
		if len(out) >= limit {
			break
		}
		html, err := el.HTML()
		if err != nil {
			continue
		}
		out = append(out, html)
	}
	return out, nil
}

// Close closes the tab and the browser.
func (b *Browser) Close() error {
	if b.page != nil {
		_ = b.page.Timeout(b.config.Timeout).Close()
	}
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	return err
}

var _ Driver = (*Browser)(nil)
