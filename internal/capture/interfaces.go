package capture

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared across subsystems.
var (
	// ErrNotFound signals that the requested capture or batch does not exist.
	ErrNotFound = errors.New("capture not found")
	// ErrNoWorkers signals that dispatch was attempted with an empty worker set.
	ErrNoWorkers = errors.New("no workers configured")
	// ErrDuplicateName signals a username uniqueness violation.
	ErrDuplicateName = errors.New("username already taken")
	// ErrQueueClosed signals receiving from a closed work queue.
	ErrQueueClosed = errors.New("work queue closed")
)

// Sink is the intake side of one worker: dispatched tasks go in, the
// worker's task loop drains them. Submit must not block; Backlog is a
// point-in-time snapshot that may be stale by the time a subsequent Submit
// lands.
type Sink interface {
	Submit(task Task) error
	Backlog() int
}

// Performer executes the actual capture of a URL. The real archiving logic
// lives outside this service; implementations here only honor the contract.
type Performer interface {
	Perform(ctx context.Context, url string) error
}

// ResolutionListener is notified once per capture when its status leaves
// pending. Duplicate reports are filtered before listeners run. batchID is
// empty for captures dispatched outside a batch.
type ResolutionListener interface {
	OnCaptureResolved(captureID, batchID string, outcome Outcome)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, name, passhash string) (User, error)
	UserByName(ctx context.Context, name string) (User, error)
}

// CaptureStore persists capture rows for later retrieval.
type CaptureStore interface {
	InsertCapture(ctx context.Context, row CaptureRow) error
	CaptureByUUID(ctx context.Context, uuid string) (CaptureRow, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces capture and batch IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
