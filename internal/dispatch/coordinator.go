// Package dispatch routes capture requests to workers and tracks their
// completion state.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/webroll/webroll/internal/capture"
	"github.com/webroll/webroll/internal/metrics"
	"github.com/webroll/webroll/internal/registry"
)

// Coordinator accepts capture requests, places each on one worker's queue,
// and owns the capture status map.
type Coordinator struct {
	selector *registry.Selector
	idGen    capture.IDGenerator
	clock    capture.Clock
	store    capture.CaptureStore
	logger   *zap.Logger

	mu        sync.Mutex
	records   map[string]capture.Record
	listeners []capture.ResolutionListener
}

// NewCoordinator constructs a Coordinator. store may be nil when persistence
// is not wired (tests).
func NewCoordinator(
	selector *registry.Selector,
	idGen capture.IDGenerator,
	clock capture.Clock,
	store capture.CaptureStore,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		selector: selector,
		idGen:    idGen,
		clock:    clock,
		store:    store,
		logger:   logger,
		records:  make(map[string]capture.Record),
	}
}

// RegisterListener adds a resolution listener. Must be called during wiring,
// before any dispatch.
func (c *Coordinator) RegisterListener(l capture.ResolutionListener) {
	c.listeners = append(c.listeners, l)
}

// MintID returns a fresh capture id without dispatching anything. Callers
// that need the id registered elsewhere before the worker can see it (batch
// membership) mint first, then call DispatchAs.
func (c *Coordinator) MintID() (string, error) {
	id, err := c.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("mint capture id: %w", err)
	}
	return id, nil
}

// Dispatch mints a fresh id, enqueues the URL on a worker's queue, and
// records the capture as pending. The caller gets the id back immediately;
// there is no wait for the worker.
//
// batchID tags the capture as part of a batch and may be empty.
func (c *Coordinator) Dispatch(ctx context.Context, url string, owner int64, batchID string) (string, error) {
	id, err := c.MintID()
	if err != nil {
		return "", err
	}
	if err := c.DispatchAs(ctx, id, url, owner, batchID); err != nil {
		return "", err
	}
	return id, nil
}

// DispatchAs dispatches under a pre-minted id. The pending record lands in
// the map before the task is enqueued, so a fast worker can never report a
// capture the map does not know yet.
func (c *Coordinator) DispatchAs(ctx context.Context, id, url string, owner int64, batchID string) error {
	worker, err := c.selector.Pick()
	if err != nil {
		return fmt.Errorf("select worker: %w", err)
	}

	now := c.clock.Now()
	rec := capture.Record{
		ID:        id,
		URL:       url,
		Worker:    worker.Nickname,
		Owner:     owner,
		BatchID:   batchID,
		Status:    capture.StatusPending,
		Submitted: now,
	}

	c.mu.Lock()
	c.records[id] = rec
	c.mu.Unlock()

	if err := worker.Submit(capture.Task{CaptureID: id, URL: url}); err != nil {
		c.mu.Lock()
		delete(c.records, id)
		c.mu.Unlock()
		return fmt.Errorf("dispatch capture: %w", err)
	}

	metrics.ObserveDispatch(worker.Nickname)
	metrics.SetWorkerBacklog(worker.Nickname, worker.Backlog())
	c.logger.Debug("capture dispatched",
		zap.String("capture_id", id),
		zap.String("worker", worker.Nickname),
		zap.String("url", url),
	)

	// The capture row is a persistence collaborator, not part of dispatch
	// correctness; a storage failure is logged and the capture proceeds.
	if c.store != nil {
		row := capture.CaptureRow{
			UUID:  id,
			URL:   url,
			Time:  now,
			Owner: owner,
		}
		if err := c.store.InsertCapture(ctx, row); err != nil {
			c.logger.Error("persist capture failed",
				zap.String("capture_id", id),
				zap.Error(err),
			)
		}
	}

	return nil
}

// ReportResult transitions a pending capture to complete or failed. Reports
// against an already resolved capture are no-ops, so late or duplicate worker
// reports cannot corrupt a landed status.
func (c *Coordinator) ReportResult(captureID string, outcome capture.Outcome) error {
	c.mu.Lock()
	rec, ok := c.records[captureID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("report result for %s: %w", captureID, capture.ErrNotFound)
	}
	if rec.Status != capture.StatusPending {
		c.mu.Unlock()
		return nil
	}
	if outcome == capture.OutcomeSuccess {
		rec.Status = capture.StatusComplete
	} else {
		rec.Status = capture.StatusFailed
	}
	now := c.clock.Now()
	rec.Resolved = &now
	c.records[captureID] = rec
	listeners := c.listeners
	c.mu.Unlock()

	metrics.ObserveCapture(string(rec.Status))
	for _, l := range listeners {
		l.OnCaptureResolved(captureID, rec.BatchID, outcome)
	}
	return nil
}

// Status returns the tracked record for a capture id.
func (c *Coordinator) Status(captureID string) (capture.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[captureID]
	if !ok {
		return capture.Record{}, capture.ErrNotFound
	}
	return rec, nil
}
