package registry

import (
	"fmt"

	"github.com/webroll/webroll/internal/capture"
	"github.com/webroll/webroll/internal/config"
)

// Selector picks the worker that should receive the next capture.
//
// Two policies exist. least_loaded scans every worker's backlog and takes the
// minimum, ties broken by configuration order. fixed always returns the first
// worker; it predates least_loaded and is kept as an explicit, selectable
// fallback rather than production behavior.
type Selector struct {
	registry *Registry
	policy   string
}

// NewSelector builds a Selector with the given policy name.
func NewSelector(registry *Registry, policy string) (*Selector, error) {
	switch policy {
	case config.PolicyLeastLoaded, config.PolicyFixed:
	default:
		return nil, fmt.Errorf("unknown selection policy %q", policy)
	}
	return &Selector{registry: registry, policy: policy}, nil
}

// Pick returns the worker for the next dispatch. Backlog reads are snapshots;
// the chosen worker may no longer be the least loaded by the time the enqueue
// lands, which is acceptable for best-effort balancing.
func (s *Selector) Pick() (*Entry, error) {
	entries := s.registry.Entries()
	if len(entries) == 0 {
		return nil, capture.ErrNoWorkers
	}
	if s.policy == config.PolicyFixed {
		return entries[0], nil
	}

	best := entries[0]
	bestLen := best.Backlog()
	for _, e := range entries[1:] {
		if n := e.Backlog(); n < bestLen {
			best = e
			bestLen = n
		}
	}
	return best, nil
}
