// Package cache stores encoded dataset payloads between builds.
//
// Encoding a large table, Parquet in particular, is the most expensive step
// of a report build. Payloads depend only on the table contents and the
// format, so they are cached under a key derived from both (see [Key]).
//
// Backends:
//   - [FileCache]: one file per entry under a directory, used by the CLI
//   - [MemoryCache]: process-local map, used in tests and long-lived programs
//   - [RedisCache]: shared cache for several build machines
//   - [NullCache]: disables caching
//
// [Scoped] prefixes every key, which the CLI uses to separate cache
// generations between releases.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. A miss is not
	// an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the backend.
	Close() error
}

// DefaultTTL is how long encoded payloads are kept.
const DefaultTTL = 7 * 24 * time.Hour
