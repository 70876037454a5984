// Package progress draws phase progress bars on a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Display renders one progress bar per phase. Moving to a new phase ends
// the previous bar's line.
type Display struct {
	mu      sync.Mutex
	out     io.Writer
	started bool
	stopped bool

	phase     string
	percent   int
	startTime time.Time
	target    string

	lastLine string
}

// New creates a display writing to out, or stderr when out is nil.
func New(out io.Writer) *Display {
	if out == nil {
		out = os.Stderr
	}
	return &Display{out: out}
}

// Start begins the progress display.
func (d *Display) Start(target string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return
	}
	d.started = true
	d.startTime = time.Now()
	d.target = target
}

// Update redraws the bar for phase at percent (0-100).
func (d *Display) Update(phase string, percent int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || d.stopped {
		return
	}

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	if d.phase != "" && d.phase != phase {
		fmt.Fprintln(d.out)
		d.lastLine = ""
	}
	d.phase = phase
	d.percent = percent

	filled := percent * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	line := fmt.Sprintf("\r%-8s [%s] %3d%% | %s", phase, bar, percent, formatDuration(time.Since(d.startTime)))

	if len(line) < len(d.lastLine) {
		fmt.Fprint(d.out, "\r"+strings.Repeat(" ", len(d.lastLine)))
	}
	fmt.Fprint(d.out, line)
	d.lastLine = line
}

// Break ends the current bar line so that other output starts clean.
func (d *Display) Break() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastLine == "" {
		return
	}
	fmt.Fprintln(d.out)
	d.lastLine = ""
	d.phase = ""
}

// Stop stops the progress display.
func (d *Display) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || !d.started {
		return
	}
	d.stopped = true
	if d.lastLine != "" {
		fmt.Fprintln(d.out)
	}
}

// Phase returns the current phase and percentage.
func (d *Display) Phase() (string, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase, d.percent
}

// Summary is what PrintSummary reports.
type Summary struct {
	Pages      int
	Stored     int
	Tasks      int
	Reflected  int
	Vulnerable int
	Executed   int
	Errors     int
	Stopped    bool
}

// PrintSummary prints a final summary box.
func (d *Display) PrintSummary(s Summary) {
	d.mu.Lock()
	start, target := d.startTime, d.target
	d.mu.Unlock()

	title := "                        Scan Complete                         "
	if s.Stopped {
		title = "                        Scan Stopped                          "
	}

	w := d.out
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(w, "║%s║\n", title)
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Target:              %s\n", truncateURL(target, 50))
	if !start.IsZero() {
		fmt.Fprintf(w, "  Duration:            %s\n", formatDuration(time.Since(start)))
	}
	fmt.Fprintf(w, "  Pages Crawled:       %d\n", s.Pages)
	fmt.Fprintf(w, "  Stored Findings:     %d\n", s.Stored)
	fmt.Fprintf(w, "  Payloads Tested:     %d\n", s.Tasks)
	fmt.Fprintf(w, "  Reflected:           %d\n", s.Reflected)
	fmt.Fprintf(w, "  Vulnerable:          %d\n", s.Vulnerable)
	fmt.Fprintf(w, "  Executed:            %d\n", s.Executed)
	fmt.Fprintf(w, "  Errors:              %d\n", s.Errors)
	fmt.Fprintln(w)
}

// truncateURL truncates a URL to maxLen characters.
func truncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
