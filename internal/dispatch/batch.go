package dispatch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/webroll/webroll/internal/capture"
)

// BatchCoordinator fans a set of URLs out to the Coordinator and tracks
// aggregate completion per batch. It owns the batch map and learns about
// resolutions as a capture.ResolutionListener.
type BatchCoordinator struct {
	coordinator *Coordinator
	idGen       capture.IDGenerator
	logger      *zap.Logger

	mu      sync.Mutex
	batches map[string]*capture.BatchRecord
}

// NewBatchCoordinator constructs a BatchCoordinator and registers it for
// resolution callbacks.
func NewBatchCoordinator(coordinator *Coordinator, idGen capture.IDGenerator, logger *zap.Logger) *BatchCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BatchCoordinator{
		coordinator: coordinator,
		idGen:       idGen,
		logger:      logger,
		batches:     make(map[string]*capture.BatchRecord),
	}
	coordinator.RegisterListener(b)
	return b
}

// DispatchBatch dispatches every URL in input order and returns the batch id
// tracking them all.
//
// If any dispatch fails the batch aborts: the error is returned, the batch
// record is discarded, and no further URLs are dispatched. Captures already
// dispatched keep their individual records and run to completion; they simply
// have no batch to report into.
func (b *BatchCoordinator) DispatchBatch(ctx context.Context, urls []string, owner int64) (string, error) {
	if len(urls) == 0 {
		return "", fmt.Errorf("batch needs at least one url")
	}
	batchID, err := b.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("mint batch id: %w", err)
	}
	captureIDs := make([]string, len(urls))
	for i := range urls {
		captureIDs[i], err = b.coordinator.MintID()
		if err != nil {
			return "", err
		}
	}

	// The record holds every capture id before any task is enqueued, so a
	// worker that resolves a capture instantly still finds its id already a
	// member of the batch. Registering ids during dispatch would let counts
	// run ahead of Total.
	b.mu.Lock()
	b.batches[batchID] = &capture.BatchRecord{
		ID:       batchID,
		Owner:    owner,
		Captures: captureIDs,
	}
	b.mu.Unlock()

	for i, url := range urls {
		if err := b.coordinator.DispatchAs(ctx, captureIDs[i], url, owner, batchID); err != nil {
			b.mu.Lock()
			delete(b.batches, batchID)
			b.mu.Unlock()
			return "", fmt.Errorf("dispatch batch url %q: %w", url, err)
		}
	}

	b.logger.Debug("batch dispatched",
		zap.String("batch_id", batchID),
		zap.Int("captures", len(urls)),
	)
	return batchID, nil
}

// OnCaptureResolved files a resolved capture under its batch. Captures
// dispatched outside any batch carry an empty batchID and are ignored, as are
// resolutions for batches that aborted mid-dispatch.
func (b *BatchCoordinator) OnCaptureResolved(captureID, batchID string, outcome capture.Outcome) {
	if batchID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.batches[batchID]
	if !ok {
		return
	}
	if outcome == capture.OutcomeSuccess {
		rec.Complete = append(rec.Complete, captureID)
	} else {
		rec.Failed = append(rec.Failed, captureID)
	}
}

// Status returns aggregate counts for a batch. Pending is derived from the
// complete and failed sets on every call, never cached.
func (b *BatchCoordinator) Status(batchID string) (capture.BatchStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.batches[batchID]
	if !ok {
		return capture.BatchStatus{}, capture.ErrNotFound
	}
	status := capture.BatchStatus{
		Total:    len(rec.Captures),
		Complete: len(rec.Complete),
		Failed:   len(rec.Failed),
	}
	status.Pending = status.Total - status.Complete - status.Failed
	return status, nil
}
