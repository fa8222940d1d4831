package fuzzy

import "log/slog"

const (
	DefaultMaxResults     = 20
	DefaultThreshold      = 0.1
	DefaultFuzzyTolerance = 2
	DefaultMaxSuggestions = 5
)

// Off requests an explicit zero for Threshold or FuzzyTolerance, whose zero
// value means "use the default".
const Off = -1

// Options tune a single search. Zero fields take the defaults above.
type Options struct {
	// MaxResults <= 0 means DefaultMaxResults.
	MaxResults int
	// Threshold is the inclusive minimum score a result needs. Zero means
	// DefaultThreshold; a negative value (Off) keeps every hit.
	Threshold float64
	// FuzzyTolerance is the largest edit distance counted as a fuzzy hit.
	// Zero means DefaultFuzzyTolerance; a negative value (Off) disables the
	// fuzzy channel.
	FuzzyTolerance int
	// DisableTypoCorrection searches the query terms as typed.
	DisableTypoCorrection bool
}

func (o Options) withDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	switch {
	case o.Threshold == 0:
		o.Threshold = DefaultThreshold
	case o.Threshold < 0:
		o.Threshold = 0
	}
	switch {
	case o.FuzzyTolerance == 0:
		o.FuzzyTolerance = DefaultFuzzyTolerance
	case o.FuzzyTolerance < 0:
		o.FuzzyTolerance = 0
	}
	return o
}

type config struct {
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*config) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}
