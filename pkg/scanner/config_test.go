package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PentesterFlow/xssprobe/internal/catalog"
)

// =============================================================================
// DefaultConfig Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	if c.MaxPages != 30 {
		t.Errorf("MaxPages = %d, want 30", c.MaxPages)
	}
	if c.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", c.MaxDepth)
	}
	if c.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", c.Timeout)
	}
	if c.Delay != 50*time.Millisecond {
		t.Errorf("Delay = %v, want 50ms", c.Delay)
	}
	if c.Mode != catalog.ModeQuick || c.Sink != catalog.SinkConsole || c.Engine != EngineStatic {
		t.Errorf("Mode/Sink/Engine = %s/%s/%s", c.Mode, c.Sink, c.Engine)
	}
	if c.Workers != 20 {
		t.Errorf("Workers = %d, want 20", c.Workers)
	}
	if c.RateLimit != 0 || c.Retries != 0 || c.BreakerThreshold != 0 {
		t.Errorf("RateLimit/Retries/BreakerThreshold = %v/%d/%d", c.RateLimit, c.Retries, c.BreakerThreshold)
	}
	if !c.Browser.Headless || !c.Browser.NoSandbox {
		t.Error("browser should default to headless without sandbox")
	}
	if c.Browser.PageLoadWait != 2*time.Second || c.Browser.PollInterval != 100*time.Millisecond {
		t.Errorf("browser waits = %v/%v", c.Browser.PageLoadWait, c.Browser.PollInterval)
	}
	if c.Browser.WindowWidth != 1920 || c.Browser.WindowHeight != 1080 {
		t.Errorf("window = %dx%d", c.Browser.WindowWidth, c.Browser.WindowHeight)
	}
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing target", func(c *Config) { c.Target = "" }, true},
		{"no host", func(c *Config) { c.Target = "http://" }, true},
		{"bad scheme", func(c *Config) { c.Target = "ftp://example.com" }, true},
		{"zero pages", func(c *Config) { c.MaxPages = 0 }, true},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }, false},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"negative delay", func(c *Config) { c.Delay = -time.Second }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, true},
		{"negative retries", func(c *Config) { c.Retries = -1 }, true},
		{"negative breaker", func(c *Config) { c.BreakerThreshold = -1 }, true},
		{"unknown mode", func(c *Config) { c.Mode = "deep" }, true},
		{"empty mode", func(c *Config) { c.Mode = "" }, false},
		{"unknown sink", func(c *Config) { c.Sink = "beacon" }, true},
		{"unknown engine", func(c *Config) { c.Engine = "hybrid" }, true},
		{"dynamic engine", func(c *Config) { c.Engine = EngineDynamic }, false},
		{"zero window", func(c *Config) { c.Browser.WindowWidth = 0 }, true},
		{"zero poll", func(c *Config) { c.Browser.PollInterval = 0 }, true},
		{"negative stored wait", func(c *Config) { c.Browser.StoredWait = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			c.Target = "https://example.com"
			tt.modify(c)

			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		in      string
		want    Engine
		wantErr bool
	}{
		{"static", EngineStatic, false},
		{"DYNAMIC", EngineDynamic, false},
		{"", EngineStatic, false},
		{"hybrid", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEngine(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseEngine(%q) = %q, %v", tt.in, got, err)
		}
	}
}

// =============================================================================
// File Tests
// =============================================================================

func TestLoadFromFile_YAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.yaml")
	data := `target: http://example.com
max_pages: 5
timeout: 3s
mode: full
engine: dynamic
breaker_threshold: 4
cookies:
  session: abc
browser:
  headless: false
  page_load_wait: 500ms
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if c.Target != "http://example.com" || c.MaxPages != 5 || c.Timeout != 3*time.Second {
		t.Errorf("loaded = %+v", c)
	}
	if c.Mode != catalog.ModeFull || c.Engine != EngineDynamic || c.BreakerThreshold != 4 {
		t.Errorf("mode/engine/breaker = %s/%s/%d", c.Mode, c.Engine, c.BreakerThreshold)
	}
	if c.Cookies["session"] != "abc" {
		t.Errorf("cookies = %v", c.Cookies)
	}
	if c.Browser.Headless || c.Browser.PageLoadWait != 500*time.Millisecond {
		t.Errorf("browser = %+v", c.Browser)
	}

	// untouched keys keep their defaults
	if c.MaxDepth != 3 || c.Workers != 20 || c.Browser.WindowWidth != 1920 || !c.Browser.NoSandbox {
		t.Errorf("defaults lost: %+v", c)
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	for _, name := range []string{"scan.json", "scan.yaml"} {
		t.Run(name, func(t *testing.T) {
			orig := DefaultConfig()
			orig.Target = "https://example.com"
			orig.Workers = 7
			orig.Delay = 250 * time.Millisecond
			orig.Sink = catalog.SinkDialog
			orig.Headers = map[string]string{"X-Test": "1"}
			orig.Browser.StoredWait = time.Second

			path := filepath.Join(t.TempDir(), name)
			if err := orig.SaveToFile(path); err != nil {
				t.Fatalf("SaveToFile() error = %v", err)
			}

			loaded, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile() error = %v", err)
			}
			if loaded.Target != orig.Target || loaded.Workers != 7 || loaded.Delay != orig.Delay {
				t.Errorf("loaded = %+v", loaded)
			}
			if loaded.Sink != catalog.SinkDialog || loaded.Headers["X-Test"] != "1" {
				t.Errorf("sink/headers = %s/%v", loaded.Sink, loaded.Headers)
			}
			if loaded.Browser.StoredWait != time.Second {
				t.Errorf("StoredWait = %v", loaded.Browser.StoredWait)
			}
		})
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("max_pages: [1, 2\n"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for an unparsable file")
	}
}

func TestConfig_Clone(t *testing.T) {
	orig := DefaultConfig()
	orig.Target = "https://example.com"
	orig.Cookies = map[string]string{"a": "1"}

	clone := orig.Clone()
	clone.Cookies["a"] = "2"
	clone.Target = "https://other.com"

	if orig.Cookies["a"] != "1" || orig.Target != "https://example.com" {
		t.Error("Clone() shares state with the original")
	}
	if clone.Timeout != orig.Timeout || clone.Browser != orig.Browser {
		t.Error("Clone() lost values")
	}
}
