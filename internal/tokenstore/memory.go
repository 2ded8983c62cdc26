package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory. Used by tests and by
// ephemeral runs that should not leave credentials on disk.
type MemoryStore struct {
	mu      sync.Mutex
	access  string
	refresh string
}

// NewMemory creates an empty in-memory token store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

// Tokens returns the stored token pair.
func (s *MemoryStore) Tokens(_ context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh, nil
}

// SetTokens stores both tokens.
func (s *MemoryStore) SetTokens(_ context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	return nil
}

// SetAccessToken overwrites only the access token.
func (s *MemoryStore) SetAccessToken(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	return nil
}

// Clear removes both tokens.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
