package cached

import "errors"

var (
	// ErrSourceRequired indicates a nil BookSource was passed to New.
	ErrSourceRequired = errors.New("book source is required")

	// ErrCacheRequired indicates a nil Cache was passed to New.
	ErrCacheRequired = errors.New("cache is required")
)
