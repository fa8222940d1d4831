package semantic

import (
	"context"
	"fmt"
)

// IndexEmbeddings embeds the content of every item for the embedding channel.
// It is a no-op without an embedder. The engine lock is not held while the
// embedder runs; if the corpus changes meanwhile the result is discarded.
func (e *Engine[T]) IndexEmbeddings(ctx context.Context) error {
	if e.batch == nil {
		return nil
	}

	e.mu.RLock()
	generation := e.generation
	texts := make([]string, len(e.items))
	for i, item := range e.items {
		texts[i] = item.SearchFields().Content()
	}
	e.mu.RUnlock()

	vectors, err := e.batch.EmbedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to index embeddings: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.generation != generation {
		e.logger.Info("corpus changed during embedding, discarding vectors")
		return nil
	}
	e.embeddings = vectors
	e.logger.Info("item embeddings indexed", "items", len(vectors))
	return nil
}

// HasEmbedder reports whether the embedding channel is configured.
func (e *Engine[T]) HasEmbedder() bool {
	return e.batch != nil
}

func (e *Engine[T]) hasEmbeddings() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.embeddings != nil
}
