package analytics

import "errors"

var (
	// ErrInvalidMaxEvents indicates a non-positive event cap.
	ErrInvalidMaxEvents = errors.New("max events must be positive")

	// ErrInvalidRetention indicates a non-positive retention window.
	ErrInvalidRetention = errors.New("retention must be positive")

	// ErrInvalidFlushInterval indicates a negative flush interval.
	ErrInvalidFlushInterval = errors.New("flush interval must not be negative")
)
