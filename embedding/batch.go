package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/bookshelf/ai"
)

// Config holds batch embedding settings.
type Config struct {
	// BatchSize is the number of texts sent per embedder call.
	BatchSize int

	// ReportInterval is how often progress is reported, in texts.
	ReportInterval int

	// MaxRetries is the number of attempts per batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// MaxRetryDelay caps a single backoff wait.
	MaxRetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      32,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		MaxRetryDelay:  10 * time.Second,
	}
}

// BatchEmbedder embeds many texts through an ai.Embedder in fixed-size batches.
type BatchEmbedder struct {
	embedder ai.Embedder
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a BatchEmbedder.
type Option func(*BatchEmbedder) error

// WithProgress reports progress to w. No progress is written by default.
func WithProgress(w io.Writer) Option {
	return func(b *BatchEmbedder) error {
		b.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *BatchEmbedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatchEmbedder creates a batch embedder. A nil config uses DefaultConfig.
func NewBatchEmbedder(embedder ai.Embedder, config *Config, opts ...Option) (*BatchEmbedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}

	b := &BatchEmbedder{
		embedder: embedder,
		config:   config,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// EmbedAll embeds texts in order and returns one unit-length vector per text.
// A batch that still fails after all retries aborts the whole call.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var tracker *ProgressTracker
	if b.progress != nil {
		tracker = NewProgressTracker(b.progress, "texts", len(texts), b.config.ReportInterval)
		tracker.Start()
		defer tracker.Finish()
	}

	policy := RetryPolicy{
		MaxAttempts: max(b.config.MaxRetries, 1),
		BaseDelay:   b.config.RetryDelay,
		MaxDelay:    b.config.MaxRetryDelay,
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.config.BatchSize {
		end := min(start+b.config.BatchSize, len(texts))
		batch := texts[start:end]

		var embeddings [][]float32
		err := RetryWithBackoff(ctx, b.logger, policy, func() error {
			var err error
			embeddings, err = b.embedder.EmbedTexts(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d after %d attempts: %w", start, end, policy.MaxAttempts, err)
		}
		if len(embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(batch), len(embeddings))
		}

		for _, e := range embeddings {
			vectors = append(vectors, NormalizeVector(e))
		}

		if tracker != nil {
			tracker.Increment(len(batch))
		}
		b.logger.Debug("embedded batch", "start", start, "end", end)
	}

	return vectors, nil
}

// EmbedOne embeds a single text with the same retry policy.
func (b *BatchEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	policy := RetryPolicy{
		MaxAttempts: max(b.config.MaxRetries, 1),
		BaseDelay:   b.config.RetryDelay,
		MaxDelay:    b.config.MaxRetryDelay,
	}

	var vector []float32
	err := RetryWithBackoff(ctx, b.logger, policy, func() error {
		var err error
		vector, err = b.embedder.EmbedText(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NormalizeVector(vector), nil
}
