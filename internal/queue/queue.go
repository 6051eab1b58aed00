// Package queue buffers rows between a fight being folded and a backend
// writing them out in batches.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// PopN removes and returns up to n items from the front.
func (q *Queue[T]) PopN(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || len(q.items) == 0 {
		return nil
	}
	n = min(n, len(q.items))
	out := make([]T, n)
	copy(out, q.items[:n])
	q.items = q.items[n:]
	return out
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Drain returns all items and clears the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}

// Batches drains the queue and calls fn once per batch of at most size
// items, in order. It stops at the first error; the unsent items are put
// back at the front.
func (q *Queue[T]) Batches(size int, fn func([]T) error) error {
	items := q.Drain()
	for len(items) > 0 {
		n := min(size, len(items))
		if size <= 0 {
			n = len(items)
		}
		if err := fn(items[:n]); err != nil {
			q.mu.Lock()
			q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
			q.mu.Unlock()
			return err
		}
		items = items[n:]
	}
	return nil
}
