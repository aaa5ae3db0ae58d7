package store

import (
	"context"
	"sync"
)

// MemoryStore keeps blobs in process memory.
// Params: in-memory map guarded by mutex.
// Returns: store implementation without external dependencies.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates in-memory store.
// Params: none.
// Returns: initialized in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Load returns copy of stored blob.
// Params: blob key.
// Returns: blob body or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

// Save stores copy of blob unconditionally.
// Params: blob key and body.
// Returns: nil (in-memory update).
func (s *MemoryStore) Save(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), body...)
	return nil
}

// Close releases memory store resources.
// Params: none.
// Returns: nil.
func (s *MemoryStore) Close() error {
	return nil
}
