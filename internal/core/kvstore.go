package core

import (
	"context"
	"time"
)

// KVStore is the key-value backend behind the result cache.
// Implementations return an error wrapping ErrKeyNotFound for missing or expired keys.
type KVStore interface {
	// Get retrieves the value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means the key does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Incr atomically increments the integer counter stored under key,
	// creating it at 1 when absent, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Close releases the store's connections.
	Close() error
}
