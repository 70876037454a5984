// Package state keeps crawl bookkeeping and scan history.
package state

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Visited is the set of canonical URLs the crawler has queued. A Bloom
// filter answers most misses; the exact map settles its false positives.
type Visited struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

// NewVisited sizes the filter for roughly estimated URLs.
func NewVisited(estimated int) *Visited {
	if estimated < 1000 {
		estimated = 1000
	}

	return &Visited{
		filter: bloom.NewWithEstimates(uint(estimated), 0.001),
		exact:  make(map[string]struct{}),
	}
}

// Mark records key and reports whether it was new.
func (v *Visited) Mark(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.filter.TestString(key) {
		if _, exists := v.exact[key]; exists {
			return false
		}
	}
	v.filter.AddString(key)
	v.exact[key] = struct{}{}
	return true
}

// Seen checks if key was marked.
func (v *Visited) Seen(key string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.filter.TestString(key) {
		return false
	}
	_, exists := v.exact[key]
	return exists
}

// Len returns the number of distinct keys marked.
func (v *Visited) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.exact)
}

// Reset forgets every key.
func (v *Visited) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.filter.ClearAll()
	v.exact = make(map[string]struct{})
}
