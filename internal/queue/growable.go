// Package queue provides the unbounded FIFO that sits between a stream's
// receive loop and its consumer. The producer never blocks; the consumer
// waits with a context.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Growable is a ring buffer that doubles its capacity when it reaches 70%
// occupancy. It is safe for one or more producers and consumers.
type Growable[T any] struct {
	mu     sync.Mutex
	buf    []T
	head   int
	tail   int
	count  int
	closed bool

	// ready holds a token while items are pending or the queue is closed.
	ready chan struct{}

	pushed  int64
	popped  int64
	resizes int
	peak    int
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Pending  int
	Capacity int
	Pushed   int64
	Popped   int64
	Resizes  int
	Peak     int
}

// NewGrowable creates a queue with the given initial capacity.
func NewGrowable[T any](initialCapacity int) *Growable[T] {
	if initialCapacity < 2 {
		initialCapacity = 2
	}
	return &Growable[T]{
		buf:   make([]T, initialCapacity),
		ready: make(chan struct{}, 1),
	}
}

// Push appends an item and returns the number of pending items, or false if
// the queue is closed.
func (q *Growable[T]) Push(item T) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return q.count, false
	}

	if (q.count+1)*100 >= len(q.buf)*70 {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.pushed++
	if q.count > q.peak {
		q.peak = q.count
	}

	q.signal()
	return q.count, true
}

// Pop removes the oldest item, waiting until one is available, the queue is
// closed and empty (ErrClosed), or ctx is done.
func (q *Growable[T]) Pop(ctx context.Context) (T, error) {
	for {
		if item, ok, closed := q.take(); ok {
			return item, nil
		} else if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryPop removes the oldest item without waiting.
func (q *Growable[T]) TryPop() (T, bool) {
	item, ok, _ := q.take()
	return item, ok
}

// PopBatch removes up to max pending items (all of them if max <= 0).
func (q *Growable[T]) PopBatch(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	if n == 0 {
		return nil
	}
	if max > 0 && max < n {
		n = max
	}
	out := make([]T, n)
	for i := range out {
		out[i] = q.removeHead()
	}
	q.signal()
	return out
}

// Close stops accepting items. Pending items can still be popped.
func (q *Growable[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.signal()
}

// Len returns the number of pending items.
func (q *Growable[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *Growable[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pending:  q.count,
		Capacity: len(q.buf),
		Pushed:   q.pushed,
		Popped:   q.popped,
		Resizes:  q.resizes,
		Peak:     q.peak,
	}
}

func (q *Growable[T]) take() (item T, ok, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return item, false, q.closed
	}
	item = q.removeHead()
	q.signal()
	return item, true, false
}

// removeHead must be called with mu held and count > 0.
func (q *Growable[T]) removeHead() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.popped++
	return item
}

// signal must be called with mu held.
func (q *Growable[T]) signal() {
	if q.count == 0 && !q.closed {
		return
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// grow doubles the capacity. Must be called with mu held.
func (q *Growable[T]) grow() {
	next := make([]T, len(q.buf)*2)
	if q.count > 0 {
		if q.head < q.tail {
			copy(next, q.buf[q.head:q.tail])
		} else {
			n := copy(next, q.buf[q.head:])
			copy(next[n:], q.buf[:q.tail])
		}
	}
	q.buf = next
	q.head = 0
	q.tail = q.count
	q.resizes++
}
