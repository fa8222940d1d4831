package index

import "errors"

var (
	// ErrInvalidLevel is returned for an unknown optimization level.
	ErrInvalidLevel = errors.New("invalid optimization level")

	// ErrInvalidBatchSize is returned when the build batch size is not positive.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")

	// ErrInvalidMinTermFrequency is returned when the pruning threshold is outside [0,1].
	ErrInvalidMinTermFrequency = errors.New("minimum term frequency must be between 0 and 1")
)
