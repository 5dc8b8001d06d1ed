package memory

import (
	"context"
	"sync"
)

// CursorStore is an in-memory ports.CursorStore.
type CursorStore struct {
	mu      sync.Mutex
	cursors map[string]uint64
}

// NewCursorStore creates a store with no saved cursor.
func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[string]uint64)}
}

// Load implements ports.CursorStore.
func (s *CursorStore) Load(_ context.Context, name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[name], nil
}

// Save implements ports.CursorStore.
func (s *CursorStore) Save(_ context.Context, name string, position uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position > s.cursors[name] {
		s.cursors[name] = position
	}
	return nil
}
