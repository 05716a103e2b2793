// ABOUTME: In-memory StateStore for tests and the console frontend
// ABOUTME: Copies blobs on the way in and out so callers cannot alias stored bytes

package store

import (
	"context"
	"sync"
)

// MemoryStore is a process-local StateStore.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

// SaveState stores a copy of state.
func (m *MemoryStore) SaveState(ctx context.Context, conversationID string, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[conversationID] = append([]byte(nil), state...)
	return nil
}

// LoadState returns a copy of the stored state.
func (m *MemoryStore) LoadState(ctx context.Context, conversationID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), state...), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
