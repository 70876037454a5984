// Package verify confirms script execution in a live browser.
package verify

import (
	"context"
	"time"
)

const defaultInterval = 100 * time.Millisecond

// Poll runs check immediately and then every interval until it returns true,
// timeout elapses or ctx is done. It never sleeps past the deadline, and a
// timeout of 0 means exactly one check.
func Poll(ctx context.Context, interval, timeout time.Duration, check func() bool) bool {
	if check() {
		return true
	}
	if timeout <= 0 {
		return false
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	deadline := time.Now().Add(timeout)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		wait := interval
		if remaining < wait {
			wait = remaining
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}

		if check() {
			return true
		}
	}
}
