package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Display Tests
// =============================================================================

func TestDisplay_UpdateBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	d.Update("crawl", 50)
	if buf.Len() != 0 {
		t.Errorf("Update before Start wrote %q", buf.String())
	}
}

func TestDisplay_Bar(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	d.Start("http://example.com")

	d.Update("crawl", 50)
	out := buf.String()
	if !strings.HasPrefix(out, "\rcrawl") {
		t.Errorf("line should start with carriage return and phase: %q", out)
	}
	if strings.Count(out, "█") != 15 || strings.Count(out, "░") != 15 {
		t.Errorf("50%% bar should be half filled: %q", out)
	}
	if !strings.Contains(out, " 50%") {
		t.Errorf("missing percentage: %q", out)
	}

	phase, pct := d.Phase()
	if phase != "crawl" || pct != 50 {
		t.Errorf("Phase() = %s, %d", phase, pct)
	}
}

func TestDisplay_Clamp(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	d.Start("t")

	d.Update("scan", 250)
	if _, pct := d.Phase(); pct != 100 {
		t.Errorf("percent = %d, want 100", pct)
	}
	d.Update("scan", -3)
	if _, pct := d.Phase(); pct != 0 {
		t.Errorf("percent = %d, want 0", pct)
	}
}

func TestDisplay_PhaseChangeBreaksLine(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	d.Start("t")

	d.Update("crawl", 100)
	d.Update("scan", 10)
	if !strings.Contains(buf.String(), "\n\rscan") {
		t.Errorf("new phase should start on a fresh line: %q", buf.String())
	}

	d.Stop()
	d.Update("scan", 90)
	if strings.Contains(buf.String(), " 90%") {
		t.Error("Update after Stop should not draw")
	}
}

func TestDisplay_PrintSummary(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	d.Start("http://example.com")

	d.PrintSummary(Summary{Pages: 3, Vulnerable: 2, Stopped: true})
	out := buf.String()
	for _, want := range []string{"Scan Stopped", "http://example.com", "Pages Crawled:       3", "Vulnerable:          2"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "2s"},
		{75 * time.Second, "1m15s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateURL(t *testing.T) {
	if got := truncateURL("http://a.b", 50); got != "http://a.b" {
		t.Errorf("short url changed: %q", got)
	}
	long := "http://example.com/" + strings.Repeat("x", 60)
	if got := truncateURL(long, 20); len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateURL = %q", got)
	}
}
