package analytics

import (
	"log/slog"
	"time"
)

const (
	DefaultMaxEvents       = 1000
	DefaultRetention       = 30 * 24 * time.Hour
	DefaultSuggestionLimit = 5

	slowQueryThreshold    = 100 * time.Millisecond
	slowQueryMinFrequency = 2 // strictly more searches than this
	lowPerformingLimit    = 10
	topCategoriesLimit    = 5
)

// Option configures an Engine.
type Option func(*Engine) error

// WithMaxEvents caps the number of retained events.
func WithMaxEvents(n int) Option {
	return func(e *Engine) error {
		if n <= 0 {
			return ErrInvalidMaxEvents
		}
		e.maxEvents = n
		return nil
	}
}

// WithRetention sets how old an event may be when the log is loaded.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return ErrInvalidRetention
		}
		e.retention = d
		return nil
	}
}

// WithFlushInterval moves persistence off the write path: changes are saved
// at most once per d, and on Flush or Close. Zero, the default, saves on
// every change.
func WithFlushInterval(d time.Duration) Option {
	return func(e *Engine) error {
		if d < 0 {
			return ErrInvalidFlushInterval
		}
		e.flushEvery = d
		return nil
	}
}

// WithSessionID fixes the session the engine records under.
// Default is a random UUID.
func WithSessionID(id string) Option {
	return func(e *Engine) error {
		if id != "" {
			e.sessionID = id
		}
		return nil
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now != nil {
			e.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}
