// ABOUTME: Redis implementation of StateStore using go-redis
// ABOUTME: Stores each conversation blob under a prefixed string key

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore implements StateStore on a Redis server.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "phrasebot:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: prefix + "state:",
		logger:    slog.Default().With("component", "store"),
	}, nil
}

func (s *RedisStore) stateKey(conversationID string) string {
	return s.keyPrefix + conversationID
}

// SaveState saves or replaces the conversation's state.
func (s *RedisStore) SaveState(ctx context.Context, conversationID string, state []byte) error {
	if err := s.client.Set(ctx, s.stateKey(conversationID), state, 0).Err(); err != nil {
		return fmt.Errorf("saving conversation state: %w", err)
	}
	s.logger.Debug("saved conversation state", "conversation", conversationID, "size", len(state))
	return nil
}

// LoadState retrieves the conversation's state.
// Returns ErrNotFound if the key does not exist.
func (s *RedisStore) LoadState(ctx context.Context, conversationID string) ([]byte, error) {
	state, err := s.client.Get(ctx, s.stateKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation state: %w", err)
	}
	return state, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
