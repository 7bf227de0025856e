package memory

import (
	"context"
	"sync"

	"github.com/webroll/webroll/internal/capture"
)

// CaptureStore keeps capture rows in process memory.
type CaptureStore struct {
	mu     sync.Mutex
	byUUID map[string]capture.CaptureRow
}

// NewCaptureStore constructs an empty CaptureStore.
func NewCaptureStore() *CaptureStore {
	return &CaptureStore{
		byUUID: make(map[string]capture.CaptureRow),
	}
}

// InsertCapture stores a capture row keyed by its uuid.
func (s *CaptureStore) InsertCapture(_ context.Context, row capture.CaptureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUUID[row.UUID] = row
	return nil
}

// CaptureByUUID fetches a capture row by uuid.
func (s *CaptureStore) CaptureByUUID(_ context.Context, uuid string) (capture.CaptureRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.byUUID[uuid]
	if !ok {
		return capture.CaptureRow{}, capture.ErrNotFound
	}
	return row, nil
}
