// Package pending implements the bounded FIFO queue of promotion candidates
// described in spec.md §4.4. Ordering is strict FIFO; the queue applies no
// priority reordering — that happens at evaluation time in pkg/promotion.
package pending

import (
	"errors"
	"fmt"
)

// DefaultMaxSize is the default queue capacity (spec.md §6.3).
const DefaultMaxSize = 20

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("pending: queue full")

// ErrEmpty is returned by Dequeue/Peek on an empty queue.
var ErrEmpty = errors.New("pending: queue empty")

// Queue is a bounded, strictly FIFO queue of Items.
type Queue struct {
	maxSize int
	items   []Item
}

// New returns an empty Queue with the given capacity.
func New(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Queue{maxSize: maxSize}
}

// Enqueue appends item at the tail, failing with ErrQueueFull if the queue
// is already at capacity. The queue is left unchanged on failure.
func (q *Queue) Enqueue(item Item) error {
	if len(q.items) >= q.maxSize {
		return fmt.Errorf("pending: enqueue %q: %w", item.ID, ErrQueueFull)
	}
	q.items = append(q.items, item)
	return nil
}

// Dequeue removes and returns the head item, or ErrEmpty.
func (q *Queue) Dequeue() (Item, error) {
	if len(q.items) == 0 {
		return Item{}, ErrEmpty
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, nil
}

// Peek returns the head item without removing it, or ErrEmpty.
func (q *Queue) Peek() (Item, error) {
	if len(q.items) == 0 {
		return Item{}, ErrEmpty
	}
	return q.items[0], nil
}

// Size returns the number of items currently queued.
func (q *Queue) Size() int {
	return len(q.items)
}

// Empty reports whether the queue holds no items.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// MaxSize returns the configured capacity.
func (q *Queue) MaxSize() int {
	return q.maxSize
}

// All returns every queued item, head first, without mutating the queue.
// Used by the promotion engine to snapshot the queue before draining it.
func (q *Queue) All() []Item {
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}
