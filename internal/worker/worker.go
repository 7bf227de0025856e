// Package worker implements the per-worker capture execution loop.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/webroll/webroll/internal/capture"
	"github.com/webroll/webroll/internal/dispatch"
	"github.com/webroll/webroll/internal/metrics"
	memoryqueue "github.com/webroll/webroll/internal/queue/memory"
)

// Worker consumes one registry entry's queue, performs each capture, and
// reports the outcome back to the coordinator.
type Worker struct {
	nickname    string
	queue       *memoryqueue.Queue
	performer   capture.Performer
	coordinator *dispatch.Coordinator
	logger      *zap.Logger
}

// New constructs a Worker bound to one queue.
func New(
	nickname string,
	queue *memoryqueue.Queue,
	performer capture.Performer,
	coordinator *dispatch.Coordinator,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		nickname:    nickname,
		queue:       queue,
		performer:   performer,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Run blocks, consuming queued tasks until the queue closes or the context
// finishes. A transient dequeue error does not terminate the loop.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, capture.ErrQueueClosed) {
				return
			}
			w.logger.Error("dequeue failed", zap.String("worker", w.nickname), zap.Error(err))
			continue
		}
		metrics.SetWorkerBacklog(w.nickname, w.queue.Len())
		w.process(ctx, task)
	}
}

func (w *Worker) process(ctx context.Context, task capture.Task) {
	w.logger.Debug("processing capture",
		zap.String("worker", w.nickname),
		zap.String("capture_id", task.CaptureID),
		zap.String("url", task.URL),
	)

	outcome := capture.OutcomeSuccess
	if err := w.performer.Perform(ctx, task.URL); err != nil {
		outcome = capture.OutcomeFailure
		w.logger.Warn("capture failed",
			zap.String("worker", w.nickname),
			zap.String("url", task.URL),
			zap.Error(err),
		)
	}
	if err := w.coordinator.ReportResult(task.CaptureID, outcome); err != nil {
		w.logger.Error("report result failed",
			zap.String("capture_id", task.CaptureID),
			zap.Error(err),
		)
	}
}
