// Package cache defines the key/value port consumed by the verification
// workflow, together with a Redis-backed implementation and an in-process
// implementation for tests and local runs. Every entry carries its own TTL;
// the backing store is shared and externally mutable, so callers must not
// assume in-process consistency.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or has expired.
var ErrMiss = errors.New("cache: key not found")

// Cache is the per-key-TTL store port. Implementations must be safe for
// concurrent use across goroutines and process instances.
type Cache interface {
	// Get returns the value stored under key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) bool
}
