// Package registry holds the fixed set of capture workers and picks one per
// dispatch.
package registry

import (
	"fmt"

	"github.com/webroll/webroll/internal/capture"
	"github.com/webroll/webroll/internal/config"
	memoryqueue "github.com/webroll/webroll/internal/queue/memory"
)

// Entry is one registered worker: its configured identity and credential
// plus the queue its task loop drains. AuthToken is what a networked
// transport would present to the worker endpoint; the in-process queue has
// no use for it but the configuration carries it through.
type Entry struct {
	Nickname  string
	Root      string
	AuthToken string
	queue     *memoryqueue.Queue
}

// Submit places a task on the worker's queue.
func (e *Entry) Submit(task capture.Task) error {
	if err := e.queue.Enqueue(task); err != nil {
		return fmt.Errorf("submit to %s: %w", e.Nickname, err)
	}
	return nil
}

// Backlog reports the number of tasks queued for this worker.
func (e *Entry) Backlog() int {
	return e.queue.Len()
}

// Queue exposes the underlying queue for the worker's task loop.
func (e *Entry) Queue() *memoryqueue.Queue {
	return e.queue
}

// Registry is the immutable worker set, built once at startup. Membership
// never changes afterwards; only each queue's contents do.
type Registry struct {
	entries []*Entry
}

// New builds a Registry from the configured worker specs.
func New(specs []config.WorkerSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, capture.ErrNoWorkers
	}
	entries := make([]*Entry, 0, len(specs))
	for _, spec := range specs {
		entries = append(entries, &Entry{
			Nickname:  spec.Nickname,
			Root:      spec.Root,
			AuthToken: spec.AuthToken,
			queue:     memoryqueue.NewQueue(),
		})
	}
	return &Registry{entries: entries}, nil
}

// Entries returns the workers in first-seen (configuration) order.
func (r *Registry) Entries() []*Entry {
	return r.entries
}

// Close closes every worker queue, releasing blocked task loops.
func (r *Registry) Close() {
	for _, e := range r.entries {
		e.queue.Close()
	}
}
