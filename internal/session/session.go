// Package session owns the per-scan resources: the HTTP client, the lazily
// started browser, the cookies and the stop flag.
package session

import (
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/PentesterFlow/xssprobe/internal/browser"
	"github.com/PentesterFlow/xssprobe/internal/errors"
	fasthttp "github.com/PentesterFlow/xssprobe/internal/http"
	"github.com/PentesterFlow/xssprobe/internal/logger"
)

var errSessionClosed = stderrors.New("session closed")

// Config holds session configuration.
type Config struct {
	Target  string
	Cookies map[string]string
	HTTP    fasthttp.Config
	Browser browser.Config
}

// Option configures a Manager.
type Option func(*Manager)

// WithLauncher replaces the Chrome launcher.
func WithLauncher(l browser.Launcher) Option {
	return func(m *Manager) {
		if l != nil {
			m.launcher = l
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// Manager is created once per scan and shared by every stage.
type Manager struct {
	config   Config
	client   *fasthttp.Client
	launcher browser.Launcher
	log      *logger.Logger

	browserOnce sync.Once
	driver      browser.Driver
	launchErr   error

	stopped   atomic.Bool
	closeOnce sync.Once
}

// New creates a session. The browser is not started until Browser is
// first called.
func New(config Config, opts ...Option) *Manager {
	config.HTTP.Cookies = config.Cookies
	config.Browser.Cookies = config.Cookies
	if config.Browser.CookieURL == "" {
		config.Browser.CookieURL = config.Target
	}
	if config.Browser.UserAgent == "" {
		config.Browser.UserAgent = config.HTTP.UserAgent
	}
	if config.Browser.Headers == nil {
		config.Browser.Headers = config.HTTP.Headers
	}

	m := &Manager{
		config:   config,
		client:   fasthttp.New(config.HTTP),
		launcher: browser.DefaultLauncher,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Target returns the scan target.
func (m *Manager) Target() string {
	return m.config.Target
}

// HTTP returns the shared HTTP client.
func (m *Manager) HTTP() *fasthttp.Client {
	return m.client
}

// Browser starts the browser on first use and returns it. A launch failure
// is remembered and returned on every later call.
func (m *Manager) Browser() (browser.Driver, error) {
	m.browserOnce.Do(func() {
		m.log.Debugf("launching browser (headless=%v)", m.config.Browser.Headless)
		d, err := m.launcher(m.config.Browser)
		if err != nil {
			m.launchErr = errors.NewBrowserError(m.config.Target, "launch", err)
			return
		}
		m.driver = d
	})
	return m.driver, m.launchErr
}

// Stop sets the stop flag. It is idempotent and never cleared.
func (m *Manager) Stop() {
	if m.stopped.CompareAndSwap(false, true) {
		m.log.Info("stop requested")
	}
}

// Stopped reports whether Stop was called.
func (m *Manager) Stopped() bool {
	return m.stopped.Load()
}

// Close releases the browser and idle connections.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.browserOnce.Do(func() {
			m.launchErr = errors.NewBrowserError(m.config.Target, "launch", errSessionClosed)
		})
		if m.driver != nil {
			err = m.driver.Close()
		}
		m.client.Close()
	})
	return err
}
