package scanner

import (
	"fmt"
	"time"

	"github.com/PentesterFlow/xssprobe/internal/browser"
	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/logger"
	"github.com/PentesterFlow/xssprobe/internal/metrics"
	"github.com/PentesterFlow/xssprobe/internal/notify"
)

// Option is a functional option for configuring the Scanner.
type Option func(*Scanner) error

// WithTarget sets the target URL.
func WithTarget(url string) Option {
	return func(s *Scanner) error {
		s.config.Target = url
		return nil
	}
}

// WithCookies sets cookies sent with every request.
func WithCookies(cookies map[string]string) Option {
	return func(s *Scanner) error {
		if s.config.Cookies == nil {
			s.config.Cookies = make(map[string]string, len(cookies))
		}
		for k, v := range cookies {
			s.config.Cookies[k] = v
		}
		return nil
	}
}

// WithMaxPages sets the crawl page limit.
func WithMaxPages(n int) Option {
	return func(s *Scanner) error {
		if n < 1 {
			n = 1
		}
		s.config.MaxPages = n
		return nil
	}
}

// WithMaxDepth sets the maximum crawl depth. 0 crawls the target only.
func WithMaxDepth(depth int) Option {
	return func(s *Scanner) error {
		if depth < 0 {
			depth = 0
		}
		s.config.MaxDepth = depth
		return nil
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scanner) error {
		s.config.Timeout = timeout
		return nil
	}
}

// WithDelay sets the delay between crawl fetches.
func WithDelay(delay time.Duration) Option {
	return func(s *Scanner) error {
		s.config.Delay = delay
		return nil
	}
}

// WithMode selects the quick or full payload list.
func WithMode(mode string) Option {
	return func(s *Scanner) error {
		m, err := catalog.ParseMode(mode)
		if err != nil {
			return err
		}
		s.config.Mode = m
		return nil
	}
}

// WithSink selects the execution sink for dynamic payloads.
func WithSink(sink string) Option {
	return func(s *Scanner) error {
		k, err := catalog.ParseSink(sink)
		if err != nil {
			return err
		}
		s.config.Sink = k
		return nil
	}
}

// WithEngine selects the static or dynamic engine.
func WithEngine(engine string) Option {
	return func(s *Scanner) error {
		e, err := ParseEngine(engine)
		if err != nil {
			return err
		}
		s.config.Engine = e
		return nil
	}
}

// WithWorkers sets the number of concurrent injection workers.
func WithWorkers(n int) Option {
	return func(s *Scanner) error {
		if n < 1 {
			n = 1
		}
		s.config.Workers = n
		return nil
	}
}

// WithRateLimit caps injection requests per second. 0 removes the cap.
func WithRateLimit(rps float64) Option {
	return func(s *Scanner) error {
		if rps < 0 {
			return fmt.Errorf("rate limit must not be negative")
		}
		s.config.RateLimit = rps
		return nil
	}
}

// WithRetries sets retries for transient transport failures.
func WithRetries(n int) Option {
	return func(s *Scanner) error {
		if n < 0 {
			n = 0
		}
		s.config.Retries = n
		return nil
	}
}

// WithBreakerThreshold sets the per-host circuit breaker threshold.
func WithBreakerThreshold(n int) Option {
	return func(s *Scanner) error {
		if n < 0 {
			n = 0
		}
		s.config.BreakerThreshold = n
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scanner) error {
		s.config.UserAgent = ua
		return nil
	}
}

// WithHeaders adds custom headers.
func WithHeaders(headers map[string]string) Option {
	return func(s *Scanner) error {
		if s.config.Headers == nil {
			s.config.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			s.config.Headers[k] = v
		}
		return nil
	}
}

// WithHeadless enables or disables headless Chrome.
func WithHeadless(headless bool) Option {
	return func(s *Scanner) error {
		s.config.Browser.Headless = headless
		return nil
	}
}

// WithVerbose enables verbose logging.
func WithVerbose(verbose bool) Option {
	return func(s *Scanner) error {
		s.config.Verbose = verbose
		return nil
	}
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(s *Scanner) error {
		s.config.Debug = debug
		return nil
	}
}

// WithConfig sets the entire configuration.
func WithConfig(config *Config) Option {
	return func(s *Scanner) error {
		if config == nil {
			return fmt.Errorf("config is nil")
		}
		s.config = config.Clone()
		return nil
	}
}

// WithLogger sets a custom logger. The level is left as the caller set it.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scanner) error {
		s.logger = l
		return nil
	}
}

// WithMetrics sets a custom metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Scanner) error {
		s.metrics = m
		return nil
	}
}

// WithNotifier adds a notification callback. Without one, messages go to
// the logger.
func WithNotifier(fn notify.Func) Option {
	return func(s *Scanner) error {
		if fn != nil {
			s.sinks = append(s.sinks, fn)
		}
		return nil
	}
}

// WithLauncher replaces the Chrome launcher, mainly for tests.
func WithLauncher(l browser.Launcher) Option {
	return func(s *Scanner) error {
		s.launcher = l
		return nil
	}
}

// WithPatterns replaces the stored-content rule tables.
func WithPatterns(p catalog.Patterns) Option {
	return func(s *Scanner) error {
		s.patterns = &p
		return nil
	}
}

// WithPayloads replaces the payload catalog.
func WithPayloads(set catalog.Set) Option {
	return func(s *Scanner) error {
		if err := set.Validate(); err != nil {
			return err
		}
		s.payloads = &set
		return nil
	}
}
