package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/observability"
	"github.com/poiesic/bookshelf/storage"
)

// CacheInvalidator drops cached search responses after the corpora change.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) (int, error)
}

// EmbeddingIndexer computes dense vectors for a corpus after it changes.
type EmbeddingIndexer interface {
	IndexEmbeddings(ctx context.Context) error
}

// indexBuilder is implemented by corpora that can rebuild under a context.
type indexBuilder interface {
	BuildIndex(ctx context.Context, books []core.Book, force bool) (bool, error)
}

// bookInvalidator is implemented by caching book sources.
type bookInvalidator interface {
	InvalidateBook(ctx context.Context, id string) error
}

// Pipeline orchestrates loading catalog books into the search corpora.
type Pipeline struct {
	source      storage.BookSource
	corpora     []core.Corpus[core.Book]
	embeddings  EmbeddingIndexer
	invalidator CacheInvalidator
	pool        *ants.Pool
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithCorpus registers a corpus to keep in step with the catalog.
func WithCorpus(corpus core.Corpus[core.Book]) Option {
	return func(p *Pipeline) error {
		if corpus != nil {
			p.corpora = append(p.corpora, corpus)
		}
		return nil
	}
}

// WithEmbeddings recomputes embeddings after every change.
func WithEmbeddings(indexer EmbeddingIndexer) Option {
	return func(p *Pipeline) error {
		p.embeddings = indexer
		return nil
	}
}

// WithCacheInvalidator sets what to invalidate after every change.
func WithCacheInvalidator(invalidator CacheInvalidator) Option {
	return func(p *Pipeline) error {
		p.invalidator = invalidator
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent corpus updates.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(source storage.BookSource, opts ...Option) (*Pipeline, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		source: source,
		pool:   pool,
		logger: slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if len(p.corpora) == 0 {
		p.Release()
		return nil, ErrCorpusRequired
	}

	return p, nil
}

// Sync replaces every corpus with the full catalog and returns the number of
// books loaded. Books failing validation are skipped.
func (p *Pipeline) Sync(ctx context.Context) (int, error) {
	books, err := p.source.FetchBooks(ctx, core.Filters{})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	valid := make([]core.Book, 0, len(books))
	for _, book := range books {
		if err := core.ValidateBook(&book); err != nil {
			p.logger.Warn("skipping invalid book", "id", book.ID, "err", err)
			continue
		}
		valid = append(valid, book)
	}

	err = p.fanOut(func(c core.Corpus[core.Book]) error {
		if b, ok := c.(indexBuilder); ok {
			_, err := b.BuildIndex(ctx, valid, true)
			return err
		}
		c.SetItems(valid)
		return nil
	})
	if err != nil {
		return 0, err
	}

	observability.IngestedBooksTotal.WithLabelValues("sync").Add(float64(len(valid)))
	observability.IndexedBooks.Set(float64(len(valid)))
	p.logger.Info("catalog synced", "books", len(valid), "skipped", len(books)-len(valid))

	p.afterChange(ctx)
	return len(valid), nil
}

// Upsert fetches one book from the source and applies it to every corpus.
func (p *Pipeline) Upsert(ctx context.Context, id string) error {
	if inv, ok := p.source.(bookInvalidator); ok {
		if err := inv.InvalidateBook(ctx, id); err != nil {
			p.logger.Warn("error invalidating cached book", "id", id, "err", err)
		}
	}

	book, err := p.source.FetchBook(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch book %s: %w", id, err)
	}
	if err := core.ValidateBook(&book); err != nil {
		return err
	}

	if err := p.fanOut(func(c core.Corpus[core.Book]) error {
		c.Upsert(book)
		return nil
	}); err != nil {
		return err
	}

	observability.IngestedBooksTotal.WithLabelValues("upsert").Inc()
	p.updateGauge()
	p.afterChange(ctx)
	return nil
}

// Remove drops one book from every corpus. It reports whether any corpus
// held the book.
func (p *Pipeline) Remove(ctx context.Context, id string) (bool, error) {
	if inv, ok := p.source.(bookInvalidator); ok {
		if err := inv.InvalidateBook(ctx, id); err != nil {
			p.logger.Warn("error invalidating cached book", "id", id, "err", err)
		}
	}

	var mu sync.Mutex
	removed := false
	if err := p.fanOut(func(c core.Corpus[core.Book]) error {
		if c.Remove(id) {
			mu.Lock()
			removed = true
			mu.Unlock()
		}
		return nil
	}); err != nil {
		return false, err
	}

	if removed {
		observability.IngestedBooksTotal.WithLabelValues("remove").Inc()
		p.updateGauge()
		p.afterChange(ctx)
	}
	return removed, nil
}

// fanOut runs fn for every corpus on the pool and waits for all of them.
func (p *Pipeline) fanOut(fn func(core.Corpus[core.Book]) error) error {
	if p.pool.IsClosed() {
		return ErrPipelineReleased
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, c := range p.corpora {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if err := fn(c); err != nil {
				record(err)
			}
		})
		if err != nil {
			wg.Done()
			record(fmt.Errorf("failed to submit corpus update: %w", err))
		}
	}
	wg.Wait()

	return errors.Join(errs...)
}

// afterChange refreshes embeddings and drops stale search responses.
// Failures are logged only.
func (p *Pipeline) afterChange(ctx context.Context) {
	if p.embeddings != nil {
		if err := p.embeddings.IndexEmbeddings(ctx); err != nil {
			p.logger.Error("error indexing embeddings", "err", err)
		}
	}

	if p.invalidator != nil {
		n, err := p.invalidator.InvalidateCache(ctx)
		if err != nil {
			p.logger.Warn("error invalidating search cache", "err", err)
			return
		}
		p.logger.Debug("search cache invalidated", "entries", n)
	}
}

func (p *Pipeline) updateGauge() {
	observability.IndexedBooks.Set(float64(p.corpora[0].Len()))
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
