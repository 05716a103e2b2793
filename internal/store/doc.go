// Package store persists conversation state blobs for the phrase bot.
//
// # Architecture
//
// StateStore is the whole persistence contract: load the blob for a
// conversation before handling a command, save it afterwards. Blobs are
// opaque here; internal/phrasebook owns their encoding.
//
// Implementations:
//
//   - SQLiteStore: single-file database via modernc.org/sqlite (default)
//   - RedisStore: one string key per conversation via go-redis
//   - MemoryStore: process-local map, for tests and the console frontend
//
// # SQLite Configuration
//
// The SQLite store enables WAL mode:
//
//	PRAGMA journal_mode=WAL;
//
// Use NewSQLiteStore(":memory:") for tests with real SQLite; the pool is then
// pinned to one connection so every query sees the same database.
//
// # Error Handling
//
// LoadState returns ErrNotFound when a conversation has never been saved.
// All other failures are wrapped with the operation that failed.
package store
