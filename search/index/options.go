package index

import (
	"log/slog"
	"runtime"
	"time"
)

const (
	DefaultBatchSize        = 100
	DefaultRebuildInterval  = time.Hour
	DefaultMinTermFrequency = 0.01
	DefaultMaxResults       = 50
	DefaultScoreThreshold   = 0.1
	DefaultMaxSuggestions   = 5

	// Terms shorter than this are not indexed.
	minTermLength = 3
)

// Option configures an Index.
type Option func(*Index) error

// WithBatchSize sets how many documents one build task tokenizes.
func WithBatchSize(size int) Option {
	return func(ix *Index) error {
		if size <= 0 {
			return ErrInvalidBatchSize
		}
		ix.batchSize = size
		return nil
	}
}

// WithRebuildInterval sets how long a build stays fresh for unforced rebuilds.
func WithRebuildInterval(d time.Duration) Option {
	return func(ix *Index) error {
		ix.rebuildInterval = d
		return nil
	}
}

// WithPoolSize sets the number of build workers.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Index) error {
		ix.poolSize = max(size, 1)
		return nil
	}
}

// WithMinTermFrequency sets the corpus-relative document frequency below
// which standard optimization prunes a term.
func WithMinTermFrequency(f float64) Option {
	return func(ix *Index) error {
		if f < 0 || f > 1 {
			return ErrInvalidMinTermFrequency
		}
		ix.minTermFrequency = f
		return nil
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) error {
		if now != nil {
			ix.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

func defaultPoolSize() int {
	return max(runtime.NumCPU()/2, 1)
}

// SearchOptions tune a single query. Zero fields take the defaults above.
type SearchOptions struct {
	MaxResults int
	// ScoreThreshold is the inclusive minimum score a result needs.
	ScoreThreshold float64
	// DisableIntersection unions postings of multi-term queries instead of
	// intersecting them.
	DisableIntersection bool
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.ScoreThreshold <= 0 {
		o.ScoreThreshold = DefaultScoreThreshold
	}
	return o
}
