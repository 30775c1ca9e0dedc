package store

import (
	"context"
	"sync"
)

// InMemoryStore is a volatile SnapshotStore keeping snapshots in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral setups. Stored and returned byte slices are copied to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewInMemoryStore constructs an empty in-memory snapshot store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[string][]byte)}
}

// Get returns a copy of the snapshot stored under key or ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.snapshots[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Set stores a copy of data under key, overwriting any previous snapshot.
func (s *InMemoryStore) Set(_ context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.snapshots[key] = cp
	s.mu.Unlock()
	return nil
}

// Keys returns all stored keys; useful for inspection in tests.
func (s *InMemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.snapshots))
	for k := range s.snapshots {
		keys = append(keys, k)
	}
	return keys
}
