package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/bookshelf/ai"
)

// documentBatchSize caps how many book texts go into one embeddings request.
const documentBatchSize = 64

// Embedder embeds search queries and book contents through an
// OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	model  string
	client embeddings.Embedder
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings client for %s: %w", config.EmbeddingHost, err)
	}

	// Book descriptions are multi-line; each is embedded as one paragraph.
	client, err := embeddings.NewEmbedder(llm,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(documentBatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Embedder{
		model:  config.EmbeddingModel,
		client: client,
		logger: slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates an embedder for the configured model.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText embeds a search query.
func (e *Embedder) EmbedText(ctx context.Context, query string) ([]float32, error) {
	vector, err := e.client.EmbedQuery(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed", "err", err)
		return nil, fmt.Errorf("embedding query with %s: %w", e.model, err)
	}
	return vector, nil
}

// EmbedTexts embeds book contents, preserving input order. Requests are split
// into batches of at most documentBatchSize texts.
func (e *Embedder) EmbedTexts(ctx context.Context, contents []string) ([][]float32, error) {
	if len(contents) == 0 {
		return [][]float32{}, nil
	}

	e.logger.Debug("embedding book contents", "count", len(contents))
	vectors, err := e.client.EmbedDocuments(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("embedding %d book contents with %s: %w", len(contents), e.model, err)
	}
	if len(vectors) != len(contents) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d book contents", len(vectors), len(contents))
	}
	return vectors, nil
}
