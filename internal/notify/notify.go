// Package notify carries progress and findings from the engines to
// whoever drives the scan.
package notify

import (
	"fmt"

	"github.com/PentesterFlow/xssprobe/internal/logger"
)

// Level is the severity of a message.
type Level string

const (
	Info    Level = "info"
	Warning Level = "warning"
	Danger  Level = "danger"
	Success Level = "success"
)

// Kind names a progress stream.
type Kind string

const (
	CrawlProgress   Kind = "crawl_progress"
	ScanProgress    Kind = "scan_progress"
	ContentProgress Kind = "content_progress"
)

// Event is either a message (Kind empty) or a progress update.
type Event struct {
	Message string `json:"message,omitempty"`
	Level   Level  `json:"level,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
	Percent int    `json:"percent,omitempty"`
}

// IsProgress reports whether e is a progress update.
func (e Event) IsProgress() bool {
	return e.Kind != ""
}

// Func receives events. It may be called from any goroutine and must
// not block for long.
type Func func(Event)

// Notifier fans events out to a set of Funcs. The zero value drops
// everything.
type Notifier struct {
	sinks []Func
}

// New returns a notifier delivering to every non-nil fn in order.
func New(fns ...Func) Notifier {
	n := Notifier{}
	for _, fn := range fns {
		if fn != nil {
			n.sinks = append(n.sinks, fn)
		}
	}
	return n
}

// Emit delivers e.
func (n Notifier) Emit(e Event) {
	for _, fn := range n.sinks {
		fn(e)
	}
}

func (n Notifier) message(level Level, format string, args []interface{}) {
	if len(n.sinks) == 0 {
		return
	}
	n.Emit(Event{Message: fmt.Sprintf(format, args...), Level: level})
}

// Infof emits an info message.
func (n Notifier) Infof(format string, args ...interface{}) {
	n.message(Info, format, args)
}

// Warnf emits a warning message.
func (n Notifier) Warnf(format string, args ...interface{}) {
	n.message(Warning, format, args)
}

// Dangerf emits a danger message.
func (n Notifier) Dangerf(format string, args ...interface{}) {
	n.message(Danger, format, args)
}

// Successf emits a success message.
func (n Notifier) Successf(format string, args ...interface{}) {
	n.message(Success, format, args)
}

// Progress emits done/total as a percentage on the kind stream.
func (n Notifier) Progress(kind Kind, done, total int) {
	n.Emit(Event{Kind: kind, Percent: Percent(done, total)})
}

// Percent is done*100/total clamped to [0, 100].
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := done * 100 / total
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// ToLogger mirrors messages into log; progress goes to debug.
func ToLogger(log *logger.Logger) Func {
	return func(e Event) {
		if e.IsProgress() {
			log.Debugf("%s %d%%", e.Kind, e.Percent)
			return
		}
		switch e.Level {
		case Danger:
			log.Error(e.Message)
		case Warning:
			log.Warn(e.Message)
		default:
			log.Info(e.Message)
		}
	}
}
