package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/PentesterFlow/xssprobe/internal/notify"
	"github.com/PentesterFlow/xssprobe/internal/progress"
)

var (
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
)

var phases = map[notify.Kind]string{
	notify.CrawlProgress:   "crawl",
	notify.ContentProgress: "stored",
	notify.ScanProgress:    "inject",
}

// console prints scan events to a terminal. Progress bars are drawn only
// when a display is attached.
type console struct {
	mu      sync.Mutex
	out     io.Writer
	display *progress.Display
}

func newConsole(out io.Writer, display *progress.Display) *console {
	return &console{out: out, display: display}
}

// notify is the notify.Func handed to the scanner.
func (c *console) notify(e notify.Event) {
	if e.IsProgress() {
		if c.display != nil {
			c.display.Update(phases[e.Kind], e.Percent)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.display != nil {
		c.display.Break()
	}
	fmt.Fprintf(c.out, "%s %s\n", prefix(e.Level), e.Message)
}

func prefix(level notify.Level) string {
	switch level {
	case notify.Danger:
		return red("[!]")
	case notify.Warning:
		return yellow("[-]")
	case notify.Success:
		return green("[+]")
	default:
		return cyan("[*]")
	}
}
