// Package session tracks login sessions in memory.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
)

// tokenBytes is the entropy behind each session token. At 36 random bytes a
// collision is not a practical concern, so Create performs no collision check.
const tokenBytes = 36

// Store maps opaque session tokens to user ids and back. Sessions live only
// for the process lifetime; there is no persistence.
//
// All operations serialize through one mutex over both indexes. Session churn
// is low-frequency, so simplicity wins over throughput here.
type Store struct {
	mu      sync.Mutex
	byToken map[string]int64
	byUser  map[int64][]string
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		byToken: make(map[string]int64),
		byUser:  make(map[int64][]string),
	}
}

// Create registers a fresh token for the user and returns it. A user may hold
// any number of concurrent tokens.
func (s *Store) Create(userID int64) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[token] = userID
	s.byUser[userID] = append(s.byUser[userID], token)
	return token, nil
}

// Validate reports whether token is registered and belongs to exactly userID.
func (s *Store) Validate(userID int64, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.byToken[token]
	return ok && owner == userID
}

// DeleteAll revokes every session held by the user. A user with no sessions
// is a no-op.
func (s *Store) DeleteAll(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.byUser[userID] {
		delete(s.byToken, token)
	}
	delete(s.byUser, userID)
}
