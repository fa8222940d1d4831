package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/bookshelf/storage"
)

// Cache implements storage.Cache on BadgerDB. TTLs are enforced by badger's
// own entry expiry.
type Cache struct {
	backend *Backend
}

var _ storage.Cache = (*Cache)(nil)

// NewCache creates a cache in the backend's cache namespace.
func NewCache(backend *Backend) *Cache {
	return &Cache{backend: backend}
}

// Get retrieves a value. Expired entries are reported as absent.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores a value. A non-positive ttl stores it without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeCacheKey(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := tx.SetEntry(entry); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes a key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCacheKey(key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Clear removes every cache entry, leaving other namespaces alone.
func (c *Cache) Clear(ctx context.Context) error {
	_, err := c.backend.deletePrefix(ctx, []byte(cachePrefix))
	return err
}

// InvalidatePattern removes every key matching the glob pattern.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if err := storage.ValidatePattern(pattern); err != nil {
		return 0, err
	}

	keys, err := c.backend.keysWithPrefix(ctx, []byte(cachePrefix))
	if err != nil {
		return 0, err
	}

	var matched [][]byte
	for _, k := range keys {
		// The pattern was validated above.
		if ok, _ := storage.MatchKey(pattern, cacheKeyName(k)); ok {
			matched = append(matched, k)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}

	err = c.backend.writeBatch(func(wb *badger.WriteBatch) error {
		for _, k := range matched {
			if err := wb.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.backend.logger.Debug("cache keys invalidated", "pattern", pattern, "count", len(matched))
	return len(matched), nil
}
