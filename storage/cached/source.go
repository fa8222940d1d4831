// Package cached wraps a storage.BookSource with a storage.Cache. Cache
// failures are logged and never fail a fetch.
package cached

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage"
)

const (
	bookPrefix     = "book:"
	categoryPrefix = "category:"

	// DefaultTTL is how long fetched catalog data stays cached.
	DefaultTTL = 10 * time.Minute
)

// Source is a caching storage.BookSource decorator.
type Source struct {
	source storage.BookSource
	cache  storage.Cache
	ttl    time.Duration
	logger *slog.Logger
}

var _ storage.BookSource = (*Source)(nil)

// Option configures a Source.
type Option func(*Source) error

// WithTTL sets the entry lifetime. Default is DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Source) error {
		s.ttl = ttl
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New wraps source with cache.
func New(source storage.BookSource, cache storage.Cache, opts ...Option) (*Source, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}

	s := &Source{
		source: source,
		cache:  cache,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Source) FetchBooks(ctx context.Context, filters core.Filters) ([]core.Book, error) {
	key, err := json.Marshal(filters)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, s, bookPrefix+"list:"+core.HashKey(string(key)), func() ([]core.Book, error) {
		return s.source.FetchBooks(ctx, filters)
	})
}

func (s *Source) FetchBook(ctx context.Context, id string) (core.Book, error) {
	return fetch(ctx, s, bookPrefix+id, func() (core.Book, error) {
		return s.source.FetchBook(ctx, id)
	})
}

func (s *Source) FetchCategories(ctx context.Context) ([]core.Category, error) {
	return fetch(ctx, s, categoryPrefix+"all", func() ([]core.Category, error) {
		return s.source.FetchCategories(ctx)
	})
}

// InvalidateBook drops the cached copy of one book and every cached list.
func (s *Source) InvalidateBook(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, bookPrefix+id); err != nil {
		return err
	}
	_, err := s.cache.InvalidatePattern(ctx, bookPrefix+"list:*")
	return err
}

// Invalidate drops every cached book and category.
func (s *Source) Invalidate(ctx context.Context) error {
	for _, pattern := range []string{bookPrefix + "*", categoryPrefix + "*"} {
		if _, err := s.cache.InvalidatePattern(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

// fetch serves key from the cache or loads and stores it. Errors from the
// underlying source are returned and never cached.
func fetch[V any](ctx context.Context, s *Source, key string, load func() (V, error)) (V, error) {
	var value V

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("catalog cache read failed", "key", key, "err", err)
	}
	if ok {
		if err := json.Unmarshal(data, &value); err == nil {
			return value, nil
		}
		s.logger.Warn("discarding undecodable catalog cache entry", "key", key)
	}

	value, err = load()
	if err != nil {
		return value, err
	}

	data, err = json.Marshal(value)
	if err != nil {
		s.logger.Warn("catalog cache encode failed", "key", key, "err", err)
		return value, nil
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("catalog cache write failed", "key", key, "err", err)
	}
	return value, nil
}
