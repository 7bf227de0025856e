// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sync"

	"github.com/webroll/webroll/internal/capture"
)

// UserStore keeps user accounts in process memory.
type UserStore struct {
	mu     sync.Mutex
	byName map[string]capture.User
	nextID int64
}

// NewUserStore constructs an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		byName: make(map[string]capture.User),
		nextID: 1,
	}
}

// CreateUser stores a new user, enforcing name uniqueness.
func (s *UserStore) CreateUser(_ context.Context, name, passhash string) (capture.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[name]; exists {
		return capture.User{}, capture.ErrDuplicateName
	}
	user := capture.User{
		ID:       s.nextID,
		Name:     name,
		Passhash: passhash,
	}
	s.nextID++
	s.byName[name] = user
	return user, nil
}

// UserByName fetches a user by unique name.
func (s *UserStore) UserByName(_ context.Context, name string) (capture.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byName[name]
	if !ok {
		return capture.User{}, capture.ErrNotFound
	}
	return user, nil
}
