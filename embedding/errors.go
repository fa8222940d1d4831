package embedding

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCountMismatch is returned when an embedder returns the wrong number of vectors.
	ErrCountMismatch = errors.New("embedding count mismatch")
)
