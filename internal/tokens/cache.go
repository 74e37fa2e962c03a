// Package tokens keeps the optional API tokens in memory and refreshes them
// from a Repository.
package tokens

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrInvalidAPIKey signals that the presented key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrStoreNotReady is returned until the first successful load, for
	// example while the database is still starting.
	ErrStoreNotReady = errors.New("token store not ready")
)

// Entry is one API token's settings.
type Entry struct {
	// RateLimit is requests per rate limiter interval. 0 disables the
	// per-token limiter for this token.
	RateLimit int
}

// Repository loads the full token set.
type Repository interface {
	LoadTokens(ctx context.Context) (map[string]Entry, error)
}

// Cache is a concurrency-safe snapshot of the token set. A nil map means
// nothing was loaded yet.
type Cache struct {
	mu sync.RWMutex
	m  map[string]Entry
}

func NewCache() *Cache {
	return &Cache{}
}

// Replace swaps the whole snapshot. The map is copied.
func (c *Cache) Replace(m map[string]Entry) {
	cp := make(map[string]Entry, len(m))
	for k, v := range m {
		cp[k] = v
	}
	c.mu.Lock()
	c.m = cp
	c.mu.Unlock()
}

// Ready reports whether a snapshot was loaded at least once.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m != nil
}

// Validate checks key against the snapshot.
func (c *Cache) Validate(key string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.m == nil {
		return ErrStoreNotReady
	}
	if _, ok := c.m[key]; !ok {
		return ErrInvalidAPIKey
	}
	return nil
}

// RateLimit returns the token's limit, 0 for unknown tokens.
func (c *Cache) RateLimit(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[key].RateLimit
}

// Len is the number of cached tokens.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
