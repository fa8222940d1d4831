package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/poiesic/bookshelf/core"
)

// BookSource is the authoritative catalog.
type BookSource interface {
	// FetchBooks returns every book matching filters, in catalog order.
	FetchBooks(ctx context.Context, filters core.Filters) ([]core.Book, error)

	// FetchBook returns one book or ErrNotFound.
	FetchBook(ctx context.Context, id string) (core.Book, error)

	// FetchCategories returns all categories ordered by name.
	FetchCategories(ctx context.Context) ([]core.Category, error)
}

// FullTextSearcher exposes the remote full-text procedures.
type FullTextSearcher interface {
	// SearchBooks runs the remote ranked search and returns at most limit books.
	SearchBooks(ctx context.Context, query string, limit int) ([]core.Book, error)

	// SearchSuggestions returns remote completions for a partial query, title
	// prefixes first, then author prefixes, then titles containing it.
	SearchSuggestions(ctx context.Context, partial string, limit int) ([]core.Suggestion, error)
}

// Cache is a string-keyed byte cache.
// Entries with a positive TTL expire on their own; a zero TTL never expires.
type Cache interface {
	// Get returns the value and true, or nil and false when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// InvalidatePattern removes every key matching a path.Match glob such as
	// "search:*" and reports how many were removed.
	InvalidatePattern(ctx context.Context, pattern string) (int, error)
}

// EventLog persists the analytics search log as a whole.
type EventLog interface {
	// Load returns the stored events, oldest first. An empty log is not an error.
	Load(ctx context.Context) ([]core.SearchEvent, error)

	// Save replaces the stored log with events.
	Save(ctx context.Context, events []core.SearchEvent) error
}

// MatchKey reports whether key matches a Cache invalidation pattern.
func MatchKey(pattern, key string) (bool, error) {
	ok, err := path.Match(pattern, key)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	return ok, nil
}

// ValidatePattern rejects malformed invalidation patterns up front.
func ValidatePattern(pattern string) error {
	_, err := MatchKey(pattern, "")
	return err
}
