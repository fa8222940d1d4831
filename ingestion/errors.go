package ingestion

import "errors"

var (
	// ErrSourceRequired is returned when a book source is not provided.
	ErrSourceRequired = errors.New("book source required")

	// ErrCorpusRequired is returned when no corpus is registered.
	ErrCorpusRequired = errors.New("at least one corpus required")

	// ErrPipelineReleased is returned when the pipeline is used after Release.
	ErrPipelineReleased = errors.New("pipeline released")
)
