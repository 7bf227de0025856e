// Package memory provides the in-process work queue backing each worker.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/webroll/webroll/internal/capture"
)

// Queue is an unbounded in-memory FIFO with context-aware receive.
//
// Enqueue never blocks and never fails for capacity, so dispatchers are
// fire-and-forget. The flip side is that a slow worker lets the backlog grow
// without bound; callers own that tradeoff. Each Queue has exactly one
// consumer (its worker's task loop).
type Queue struct {
	mu     sync.Mutex
	items  []capture.Task
	wake   chan struct{}
	closed bool
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Enqueue appends a task to the queue. It only fails if the queue is closed.
func (q *Queue) Enqueue(task capture.Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return capture.ErrQueueClosed
	}
	q.items = append(q.items, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue pops the oldest task, blocking until one is available, the context
// ends, or the queue is closed and drained.
func (q *Queue) Dequeue(ctx context.Context) (capture.Task, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			task := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return task, nil
		}
		if q.closed {
			q.mu.Unlock()
			return capture.Task{}, capture.ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return capture.Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.wake:
		}
	}
}

// Len reports the current backlog. The value is a snapshot and may be stale
// by the time the caller acts on it.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further enqueues. Queued items remain dequeueable; once drained
// the consumer receives capture.ErrQueueClosed. Safe to call multiple times.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
