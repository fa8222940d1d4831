package semantic

import (
	"errors"
	"log/slog"

	"github.com/poiesic/bookshelf/ai"
	"github.com/poiesic/bookshelf/embedding"
)

const (
	DefaultMaxResults         = 15
	DefaultSemanticWeight     = 0.7
	DefaultConceptWeight      = 0.3
	DefaultMinRelevance       = 0.1
	DefaultMaxRecommendations = 5

	// Recommendations must score strictly above this.
	recommendationCutoff = 0.1
)

// ErrInvalidEmbeddingWeight is returned when the embedding weight is negative.
var ErrInvalidEmbeddingWeight = errors.New("embedding weight must not be negative")

// Off requests an explicit zero for a weight or MinRelevance, whose zero
// value means "use the default".
const Off = -1

// Options tune a single search. Zero fields take the defaults above; a
// negative value (Off) in a float field means zero.
type Options struct {
	// MaxResults <= 0 means DefaultMaxResults.
	MaxResults     int
	SemanticWeight float64
	ConceptWeight  float64
	// MinRelevance is the inclusive minimum score a result needs.
	MinRelevance float64
}

func (o Options) withDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	o.SemanticWeight = orDefault(o.SemanticWeight, DefaultSemanticWeight)
	o.ConceptWeight = orDefault(o.ConceptWeight, DefaultConceptWeight)
	o.MinRelevance = orDefault(o.MinRelevance, DefaultMinRelevance)
	return o
}

func orDefault(v, def float64) float64 {
	switch {
	case v == 0:
		return def
	case v < 0:
		return 0
	}
	return v
}

type config struct {
	logger          *slog.Logger
	concepts        ConceptTable
	embedder        ai.Embedder
	embeddingWeight float64
	embeddingConfig *embedding.Config
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

// WithConceptTable replaces the built-in concept table.
func WithConceptTable(table ConceptTable) Option {
	return func(c *config) error {
		if table == nil {
			table = DefaultConcepts()
		}
		c.concepts = table
		return nil
	}
}

// WithEmbedder enables the embedding channel. weight scales the cosine
// similarity between query and item embeddings before it is added to the score.
func WithEmbedder(embedder ai.Embedder, weight float64) Option {
	return func(c *config) error {
		if weight < 0 {
			return ErrInvalidEmbeddingWeight
		}
		c.embedder = embedder
		c.embeddingWeight = weight
		return nil
	}
}

// WithEmbeddingConfig sets batching and retry behavior of the embedding channel.
func WithEmbeddingConfig(cfg *embedding.Config) Option {
	return func(c *config) error {
		c.embeddingConfig = cfg
		return nil
	}
}
