package scanner

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/xssprobe/internal/catalog"
)

// Engine selects how pages are fetched and payloads are verified.
type Engine string

const (
	// EngineStatic uses plain HTTP and inspects response bodies.
	EngineStatic Engine = "static"
	// EngineDynamic renders pages in headless Chrome and watches for
	// script execution.
	EngineDynamic Engine = "dynamic"
)

// ParseEngine validates an engine name.
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(s))); e {
	case EngineStatic, EngineDynamic:
		return e, nil
	case "":
		return EngineStatic, nil
	default:
		return "", fmt.Errorf("unknown engine %q (want static or dynamic)", s)
	}
}

// Config holds all scanner configuration.
type Config struct {
	// Target base URL
	Target string `json:"target" yaml:"target"`

	// Cookies sent with every request and set in the browser
	Cookies map[string]string `json:"cookies" yaml:"cookies"`

	// Crawl limits
	MaxPages int `json:"max_pages" yaml:"max_pages"`
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// Request timeout
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Delay between crawl fetches
	Delay time.Duration `json:"delay" yaml:"delay"`

	// Payload catalog: quick or full
	Mode catalog.Mode `json:"mode" yaml:"mode"`

	// Execution sink for dynamic payloads: console or dialog
	Sink catalog.Sink `json:"sink" yaml:"sink"`

	// Engine: static or dynamic
	Engine Engine `json:"engine" yaml:"engine"`

	// Number of concurrent injection workers (static engine)
	Workers int `json:"workers" yaml:"workers"`

	// Requests per second for injection; 0 means unlimited
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// Retries for transient transport failures
	Retries int `json:"retries" yaml:"retries"`

	// Consecutive failures before requests to a host are refused; 0 disables
	BreakerThreshold int `json:"breaker_threshold" yaml:"breaker_threshold"`

	UserAgent string            `json:"user_agent" yaml:"user_agent"`
	Headers   map[string]string `json:"headers" yaml:"headers"`

	// Browser settings for the dynamic engine
	Browser BrowserConfig `json:"browser" yaml:"browser"`

	Verbose bool `json:"verbose" yaml:"verbose"`
	Debug   bool `json:"debug" yaml:"debug"`
}

// BrowserConfig holds headless Chrome settings and verification timing.
type BrowserConfig struct {
	Headless     bool          `json:"headless" yaml:"headless"`
	NoSandbox    bool          `json:"no_sandbox" yaml:"no_sandbox"`
	WindowWidth  int           `json:"window_width" yaml:"window_width"`
	WindowHeight int           `json:"window_height" yaml:"window_height"`
	PageLoadWait time.Duration `json:"page_load_wait" yaml:"page_load_wait"`
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
	StoredWait   time.Duration `json:"stored_wait" yaml:"stored_wait"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxPages:  30,
		MaxDepth:  3,
		Timeout:   10 * time.Second,
		Delay:     50 * time.Millisecond,
		Mode:      catalog.ModeQuick,
		Sink:      catalog.SinkConsole,
		Engine:    EngineStatic,
		Workers:   20,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		Browser: BrowserConfig{
			Headless:     true,
			NoSandbox:    true,
			WindowWidth:  1920,
			WindowHeight: 1080,
			PageLoadWait: 2 * time.Second,
			PollInterval: 100 * time.Millisecond,
		},
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON). Keys the
// file leaves out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		config = DefaultConfig()
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a file. A .json extension writes JSON,
// anything else YAML.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target URL is required")
	}
	u, err := url.Parse(c.Target)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid target URL %q", c.Target)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target scheme must be http or https")
	}

	if c.MaxPages < 1 {
		return fmt.Errorf("max pages must be at least 1")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must not be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.BreakerThreshold < 0 {
		return fmt.Errorf("breaker threshold must not be negative")
	}

	if _, err := catalog.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if _, err := catalog.ParseSink(string(c.Sink)); err != nil {
		return err
	}
	if _, err := ParseEngine(string(c.Engine)); err != nil {
		return err
	}

	if c.Browser.WindowWidth < 1 || c.Browser.WindowHeight < 1 {
		return fmt.Errorf("browser window size must be positive")
	}
	if c.Browser.PageLoadWait < 0 || c.Browser.StoredWait < 0 {
		return fmt.Errorf("browser waits must not be negative")
	}
	if c.Browser.PollInterval <= 0 {
		return fmt.Errorf("browser poll interval must be positive")
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := json.Marshal(c)
	clone := &Config{}
	json.Unmarshal(data, clone)
	return clone
}
