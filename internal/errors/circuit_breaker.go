package errors

import (
	"sync"
	"time"
)

// CircuitState is the state of one host's breaker.
type CircuitState int

const (
	Closed CircuitState = iota
	Open
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// DefaultCooldown is how long an open host is refused before one probe
// request is let through.
const DefaultCooldown = 10 * time.Second

type hostCircuit struct {
	failures int
	openedAt time.Time
	probing  bool
}

func (h *hostCircuit) state(threshold int) CircuitState {
	switch {
	case h.probing:
		return HalfOpen
	case h.failures >= threshold:
		return Open
	default:
		return Closed
	}
}

// Breakers refuses requests to hosts that failed at the transport level
// threshold times in a row. After the cooldown a single probe is admitted;
// its outcome closes or reopens the host. HTTP error statuses never count.
type Breakers struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	hosts     map[string]*hostCircuit
	now       func() time.Time
}

// NewBreakers creates a breaker set. threshold < 1 is treated as 1.
func NewBreakers(threshold int, cooldown time.Duration) *Breakers {
	if threshold < 1 {
		threshold = 1
	}
	return &Breakers{
		threshold: threshold,
		cooldown:  cooldown,
		hosts:     make(map[string]*hostCircuit),
		now:       time.Now,
	}
}

func (b *Breakers) host(name string) *hostCircuit {
	h, ok := b.hosts[name]
	if !ok {
		h = &hostCircuit{}
		b.hosts[name] = h
	}
	return h
}

// Allow reports whether a request to host may proceed, with the state the
// decision was made in.
func (b *Breakers) Allow(host string) (CircuitState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.host(host)
	switch st := h.state(b.threshold); st {
	case Closed:
		return st, true
	case Open:
		if b.now().Sub(h.openedAt) < b.cooldown {
			return st, false
		}
		h.probing = true
		return HalfOpen, true
	default:
		// one probe at a time
		return st, false
	}
}

// Record stores the outcome of a request that Allow admitted.
func (b *Breakers) Record(host string, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.host(host)
	probe := h.probing
	h.probing = false

	if !failed {
		h.failures = 0
		return
	}
	if probe {
		h.failures = b.threshold
	} else {
		h.failures++
	}
	if h.failures >= b.threshold {
		h.openedAt = b.now()
	}
}

// States returns the state of every host seen so far.
func (b *Breakers) States() map[string]CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]CircuitState, len(b.hosts))
	for name, h := range b.hosts {
		out[name] = h.state(b.threshold)
	}
	return out
}

// NewCircuitOpenError reports a request refused by an open breaker. It is
// a Network error so callers treat it like an unreachable host.
func NewCircuitOpenError(url string, state CircuitState) *ScanError {
	return &ScanError{
		Type:      Network,
		URL:       url,
		Operation: "circuit_breaker",
		Message:   "circuit breaker is " + state.String(),
	}
}
