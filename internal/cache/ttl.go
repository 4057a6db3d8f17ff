// Package cache holds a small in-process read-through cache. Values are per
// process: with several instances running, each may serve a stale value for
// up to its TTL after an update elsewhere.
package cache

import (
	"context"
	"sync"
	"time"
)

type Loader[T any] func(ctx context.Context) (T, error)

// TTL caches a single value produced by a loader.
type TTL[T any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	load      Loader[T]
	now       func() time.Time
	value     T
	expiresAt time.Time
	loaded    bool
}

func NewTTL[T any](ttl time.Duration, load Loader[T]) *TTL[T] {
	return &TTL[T]{
		ttl:  ttl,
		load: load,
		now:  time.Now,
	}
}

// Get returns the cached value, loading it when missing, expired, or when
// forceRefresh is set. Loads are serialized; a failed load keeps the
// previous entry untouched.
func (c *TTL[T]) Get(ctx context.Context, forceRefresh bool) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !forceRefresh && c.loaded && c.now().Before(c.expiresAt) {
		return c.value, nil
	}

	v, err := c.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.value = v
	c.loaded = true
	c.expiresAt = c.now().Add(c.ttl)
	return v, nil
}

func (c *TTL[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	c.value = zero
	c.loaded = false
	c.expiresAt = time.Time{}
}

// ExpiresAt is zero when nothing is cached.
func (c *TTL[T]) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}
