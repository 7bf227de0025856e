package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/webroll/webroll/internal/capture"
)

func TestQueueFIFOOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(capture.Task{CaptureID: id}); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", id, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		task, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if task.CaptureID != want {
			t.Fatalf("Dequeue() = %s, want %s", task.CaptureID, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("Len() = %d after drain, want 0", q.Len())
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	got := make(chan capture.Task, 1)
	go func() {
		task, err := q.Dequeue(context.Background())
		if err == nil {
			got <- task
		}
	}()

	// Give the consumer time to park before the enqueue.
	time.Sleep(10 * time.Millisecond)
	if err := q.Enqueue(capture.Task{CaptureID: "late"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	select {
	case task := <-got:
		if task.CaptureID != "late" {
			t.Fatalf("Dequeue() = %s, want late", task.CaptureID)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked consumer never woke up")
	}
}

func TestDequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Dequeue() error = %v, want deadline exceeded", err)
	}
}

func TestCloseDrainsThenTerminates(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	if err := q.Enqueue(capture.Task{CaptureID: "queued"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	q.Close()

	if err := q.Enqueue(capture.Task{CaptureID: "rejected"}); !errors.Is(err, capture.ErrQueueClosed) {
		t.Fatalf("Enqueue() after close error = %v, want ErrQueueClosed", err)
	}

	ctx := context.Background()
	task, err := q.Dequeue(ctx)
	if err != nil || task.CaptureID != "queued" {
		t.Fatalf("Dequeue() = %v, %v; want queued item", task, err)
	}
	if _, err := q.Dequeue(ctx); !errors.Is(err, capture.ErrQueueClosed) {
		t.Fatalf("Dequeue() on drained closed queue error = %v, want ErrQueueClosed", err)
	}

	// Close is idempotent.
	q.Close()
}
