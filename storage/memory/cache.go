package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/bookshelf/storage"
)

type cacheEntry struct {
	value   []byte
	expires time.Time // zero means never
}

// Cache implements storage.Cache in memory. Expired entries are dropped
// lazily on access and during invalidation.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

var _ storage.Cache = (*Cache)(nil)

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.expired(e) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := cacheEntry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	return nil
}

func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if err := storage.ValidatePattern(pattern); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if ok, _ := storage.MatchKey(pattern, key); ok {
			delete(c.entries, key)
			if !c.expired(e) {
				removed++
			}
		}
	}
	return removed, nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n
}

func (c *Cache) expired(e cacheEntry) bool {
	return !e.expires.IsZero() && !c.now().Before(e.expires)
}
