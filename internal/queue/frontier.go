// Package queue provides the crawl frontier.
package queue

import (
	"errors"
	"sync"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
)

// Item is a URL waiting to be fetched.
type Item struct {
	URL       string
	Depth     int
	ParentURL string
}

// Frontier is a thread-safe FIFO queue. Items pop in the order they were
// pushed, which makes the crawl breadth-first.
type Frontier struct {
	mu     sync.Mutex
	items  []Item
	head   int
	closed bool
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{items: make([]Item, 0, 64)}
}

// Push appends item.
func (f *Frontier) Push(item Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrQueueClosed
	}
	f.items = append(f.items, item)
	return nil
}

// Pop removes and returns the oldest item.
func (f *Frontier) Pop() (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head >= len(f.items) {
		if f.closed {
			return Item{}, ErrQueueClosed
		}
		return Item{}, ErrQueueEmpty
	}

	item := f.items[f.head]
	f.items[f.head] = Item{}
	f.head++

	// Reclaim the consumed prefix once it dominates the slice.
	if f.head > 1024 && f.head*2 > len(f.items) {
		f.items = append(f.items[:0:0], f.items[f.head:]...)
		f.head = 0
	}

	return item, nil
}

// Len returns the number of queued items.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items) - f.head
}

// IsEmpty returns true if nothing is queued.
func (f *Frontier) IsEmpty() bool {
	return f.Len() == 0
}

// Clear drops every queued item.
func (f *Frontier) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = f.items[:0]
	f.head = 0
}

// Close rejects further pushes. Queued items can still be popped.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}
