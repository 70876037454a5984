package browser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// eventLog records page side effects between resets.
type eventLog struct {
	mu      sync.Mutex
	dialogs []string
	console []string
}

func (e *eventLog) recordDialog(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dialogs = append(e.dialogs, "Alert: "+message)
}

func (e *eventLog) recordConsole(line string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.console = append(e.console, line)
}

// takeDialog returns the first dialog seen since the last reset. It is
// not consumed, so repeated polls keep seeing it.
func (e *eventLog) takeDialog() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.dialogs) == 0 {
		return "", false
	}
	return e.dialogs[0], true
}

func (e *eventLog) drainConsole() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.console
	e.console = nil
	return out
}

func (e *eventLog) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dialogs = nil
	e.console = nil
}

// consoleLine joins the arguments of a console API call the way devtools
// prints them.
func consoleLine(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		switch arg.Type {
		case proto.RuntimeRemoteObjectTypeString,
			proto.RuntimeRemoteObjectTypeNumber,
			proto.RuntimeRemoteObjectTypeBoolean:
			parts = append(parts, fmt.Sprint(arg.Value.Val()))
		default:
			if arg.Description != "" {
				parts = append(parts, arg.Description)
			} else {
				parts = append(parts, string(arg.Type))
			}
		}
	}
	return strings.Join(parts, " ")
}
