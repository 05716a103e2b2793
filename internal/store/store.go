// ABOUTME: StateStore interface for per-conversation state persistence
// ABOUTME: Blobs are opaque bytes; absent conversations report ErrNotFound

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a conversation has no saved state
var ErrNotFound = errors.New("not found")

// StateStore loads and saves the complete state blob of a conversation
type StateStore interface {
	LoadState(ctx context.Context, conversationID string) ([]byte, error)
	SaveState(ctx context.Context, conversationID string, state []byte) error

	// Close releases any resources held by the store
	Close() error
}
