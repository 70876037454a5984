package queue

import (
	"fmt"
	"sync"
	"testing"
)

// =============================================================================
// Frontier Tests
// =============================================================================

func TestFrontier_FIFO(t *testing.T) {
	f := NewFrontier()

	for i := 0; i < 5; i++ {
		if err := f.Push(Item{URL: fmt.Sprintf("http://example.com/%d", i), Depth: i % 2}); err != nil {
			t.Fatal(err)
		}
	}
	if f.Len() != 5 {
		t.Errorf("Len() = %d, want 5", f.Len())
	}

	for i := 0; i < 5; i++ {
		item, err := f.Pop()
		if err != nil {
			t.Fatal(err)
		}
		want := fmt.Sprintf("http://example.com/%d", i)
		if item.URL != want {
			t.Errorf("Pop() = %s, want %s", item.URL, want)
		}
	}

	if !f.IsEmpty() {
		t.Error("IsEmpty() = false after draining")
	}
	if _, err := f.Pop(); err != ErrQueueEmpty {
		t.Errorf("Pop() on empty = %v, want ErrQueueEmpty", err)
	}
}

func TestFrontier_InterleavedCompaction(t *testing.T) {
	f := NewFrontier()
	next := 0

	for round := 0; round < 3000; round++ {
		f.Push(Item{URL: fmt.Sprint(round)})
		if round%3 != 0 {
			item, err := f.Pop()
			if err != nil {
				t.Fatal(err)
			}
			if item.URL != fmt.Sprint(next) {
				t.Fatalf("Pop() = %s, want %d", item.URL, next)
			}
			next++
		}
	}

	for !f.IsEmpty() {
		item, _ := f.Pop()
		if item.URL != fmt.Sprint(next) {
			t.Fatalf("Pop() = %s, want %d", item.URL, next)
		}
		next++
	}
	if next != 3000 {
		t.Errorf("popped %d items, want 3000", next)
	}
}

func TestFrontier_CloseAndClear(t *testing.T) {
	f := NewFrontier()
	f.Push(Item{URL: "a"})
	f.Close()

	if err := f.Push(Item{URL: "b"}); err != ErrQueueClosed {
		t.Errorf("Push() after Close = %v, want ErrQueueClosed", err)
	}
	if item, err := f.Pop(); err != nil || item.URL != "a" {
		t.Errorf("Pop() after Close = %v, %v", item, err)
	}
	if _, err := f.Pop(); err != ErrQueueClosed {
		t.Errorf("Pop() on closed empty = %v, want ErrQueueClosed", err)
	}

	g := NewFrontier()
	g.Push(Item{URL: "x"})
	g.Clear()
	if g.Len() != 0 {
		t.Errorf("Len() after Clear = %d", g.Len())
	}
}

func TestFrontier_Concurrent(t *testing.T) {
	f := NewFrontier()
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				f.Push(Item{URL: fmt.Sprintf("%d-%d", w, i)})
			}
		}(w)
	}
	wg.Wait()

	if f.Len() != 800 {
		t.Errorf("Len() = %d, want 800", f.Len())
	}
}
