// Package memory stores sent-record ids in-memory for development and tests.
package memory

import (
	"context"
	"sync"
)

// Store is a non-durable sent-record set.
type Store struct {
	mu   sync.RWMutex
	sent map[string]struct{}
}

// New returns an empty memory Store.
func New() *Store {
	return &Store{sent: make(map[string]struct{})}
}

// Has reports whether id was already delivered.
func (s *Store) Has(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sent[id]
	return ok, nil
}

// Mark records id as delivered; idempotent.
func (s *Store) Mark(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[id] = struct{}{}
	return nil
}

// Len returns the number of delivered ids.
func (s *Store) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sent), nil
}
