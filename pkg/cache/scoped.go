package cache

import (
	"context"
	"time"
)

// ScopedCache wraps a Cache and prefixes every key.
//
// Example usage:
//
//	// Entries written by one release are invisible to the next
//	c := cache.Scoped(inner, "v"+buildinfo.Version+":")
type ScopedCache struct {
	inner  Cache
	prefix string
}

// Scoped returns a cache that stores into inner under prefixed keys.
// A nil inner is treated as a NullCache.
func Scoped(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	return &ScopedCache{inner: inner, prefix: prefix}
}

// Get reads the prefixed key from the inner cache.
func (c *ScopedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

// Set writes the prefixed key to the inner cache.
func (c *ScopedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

// Delete removes the prefixed key from the inner cache.
func (c *ScopedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

// Close closes the inner cache.
func (c *ScopedCache) Close() error {
	return c.inner.Close()
}

var _ Cache = (*ScopedCache)(nil)
