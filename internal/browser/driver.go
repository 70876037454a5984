package browser

import (
	"context"
	"time"
)

// Driver is the browser surface the crawler and verifier need. All calls
// are made from a single goroutine.
type Driver interface {
	// Navigate loads url and waits, bounded by the configured timeout, for
	// the load event.
	Navigate(ctx context.Context, url string) error

	// Submit loads pageURL, then builds a form with the given method, action
	// and hidden fields inside it and submits it.
	Submit(ctx context.Context, pageURL, method, action string, fields map[string]string) error

	// HTML returns the current rendered DOM.
	HTML() (string, error)

	// TakeDialog returns the text of the first dialog opened since the last
	// reset. Dialogs are accepted by the driver as they open.
	TakeDialog() (string, bool)

	// ConsoleLogs drains and returns console lines recorded since the last
	// call or reset.
	ConsoleLogs() []string

	// ResetEvents clears recorded dialogs and console lines.
	ResetEvents()

	// QueryOuterHTML returns the outerHTML of at most limit elements
	// matching selector.
	QueryOuterHTML(selector string, limit int) ([]string, error)

	Close() error
}

// Launcher starts a Driver.
type Launcher func(Config) (Driver, error)

// Config defines browser configuration.
type Config struct {
	Headless     bool              `json:"headless" yaml:"headless"`
	NoSandbox    bool              `json:"no_sandbox" yaml:"no_sandbox"`
	WindowWidth  int               `json:"window_width" yaml:"window_width"`
	WindowHeight int               `json:"window_height" yaml:"window_height"`
	UserAgent    string            `json:"user_agent" yaml:"user_agent"`
	Timeout      time.Duration     `json:"timeout" yaml:"timeout"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Cookies      map[string]string `json:"-" yaml:"-"`
	// CookieURL scopes Cookies. Usually the scan target.
	CookieURL string `json:"-" yaml:"-"`
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() Config {
	return Config{
		Headless:     true,
		NoSandbox:    true,
		WindowWidth:  1920,
		WindowHeight: 1080,
		Timeout:      10 * time.Second,
	}
}

// DefaultLauncher launches Chrome through rod.
func DefaultLauncher(cfg Config) (Driver, error) {
	return Launch(cfg)
}
