// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package bookshelf wires the catalog search core into one explicitly
// constructed service: storage, engines, index, analytics, searcher and the
// ingestion pipeline. Open it at startup and Close it on shutdown.
package bookshelf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/poiesic/bookshelf/ai"
	"github.com/poiesic/bookshelf/ai/openai"
	"github.com/poiesic/bookshelf/analytics"
	"github.com/poiesic/bookshelf/config"
	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/ingestion"
	"github.com/poiesic/bookshelf/search"
	"github.com/poiesic/bookshelf/search/fuzzy"
	"github.com/poiesic/bookshelf/search/index"
	"github.com/poiesic/bookshelf/search/semantic"
	"github.com/poiesic/bookshelf/storage"
	"github.com/poiesic/bookshelf/storage/badger"
	"github.com/poiesic/bookshelf/storage/cached"
	"github.com/poiesic/bookshelf/storage/memory"
	"github.com/poiesic/bookshelf/storage/postgres"
)

// ErrConfigRequired is returned when Open is called without a configuration.
var ErrConfigRequired = errors.New("config required")

// Catalog owns every component of the search core.
type Catalog struct {
	cfg config.Config

	backend  *badger.Backend
	pg       *postgres.Source
	provider ai.Provider

	source    storage.BookSource
	fuzzy     *fuzzy.Engine[core.Book]
	semantic  *semantic.Engine[core.Book]
	index     *index.Index
	analytics *analytics.Engine
	searcher  *search.Searcher
	pipeline  *ingestion.Pipeline
	logger    *slog.Logger
}

// Option configures a Catalog.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	source   storage.BookSource
	remote   storage.FullTextSearcher
	provider ai.Provider
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBookSource replaces the configured catalog source.
func WithBookSource(source storage.BookSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithRemote replaces the configured remote full-text service.
func WithRemote(remote storage.FullTextSearcher) Option {
	return func(o *options) {
		o.remote = remote
	}
}

// WithProvider replaces the configured embedding provider. It only takes
// effect when embeddings are enabled. The Catalog closes it.
func WithProvider(provider ai.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// Open builds every component from cfg and loads the catalog into the
// local engines.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Catalog, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	check := *cfg
	if o.source != nil {
		// The injected source stands in for the configured catalog.
		check.Catalog = config.CatalogConfig{Source: "file", File: "-"}
	}
	if err := check.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Catalog{cfg: *cfg, logger: o.logger}
	if err := c.open(ctx, o); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			c.logger.Error("error closing partially opened catalog", "err", closeErr)
		}
		return nil, err
	}
	return c, nil
}

func (c *Catalog) open(ctx context.Context, o *options) error {
	cfg := c.cfg

	cache, eventLog, err := c.openStorage()
	if err != nil {
		return err
	}

	source, remote, err := c.openSources(ctx, o)
	if err != nil {
		return err
	}

	c.source, err = cached.New(source, cache,
		cached.WithTTL(cfg.Search.BookCacheTTL),
		cached.WithLogger(c.logger))
	if err != nil {
		return err
	}

	if c.fuzzy, err = fuzzy.New[core.Book](fuzzy.WithLogger(c.logger)); err != nil {
		return err
	}

	semanticOpts := []semantic.Option{semantic.WithLogger(c.logger)}
	if cfg.Embedding.Enabled {
		c.provider = o.provider
		if c.provider == nil {
			aiCfg := ai.NewConfig(
				ai.WithEmbeddingHost(cfg.Embedding.Host),
				ai.WithEmbeddingModel(cfg.Embedding.Model),
				ai.WithAPIToken(cfg.Embedding.APIToken),
			)
			if c.provider, err = openai.NewProvider(aiCfg); err != nil {
				return fmt.Errorf("creating embedding provider: %w", err)
			}
		}
		semanticOpts = append(semanticOpts, semantic.WithEmbedder(c.provider.Embedder(), cfg.Embedding.Weight))
	}
	if c.semantic, err = semantic.New[core.Book](semanticOpts...); err != nil {
		return err
	}

	if c.index, err = index.New(
		index.WithBatchSize(cfg.Index.BatchSize),
		index.WithRebuildInterval(cfg.Index.RebuildInterval),
		index.WithMinTermFrequency(cfg.Index.MinTermFrequency),
		index.WithLogger(c.logger),
	); err != nil {
		return err
	}

	if c.analytics, err = analytics.New(ctx, eventLog,
		analytics.WithMaxEvents(cfg.Analytics.MaxEvents),
		analytics.WithRetention(cfg.Analytics.Retention),
		analytics.WithFlushInterval(cfg.Analytics.FlushInterval),
		analytics.WithLogger(c.logger),
	); err != nil {
		return err
	}

	searchOpts := []search.Option{
		search.WithCache(cache),
		search.WithAnalytics(c.analytics),
		search.WithCacheTTL(cfg.Search.CacheTTL),
		search.WithRemoteTimeout(cfg.Search.RemoteTimeout),
		search.WithLogger(c.logger),
	}
	if remote != nil {
		searchOpts = append(searchOpts, search.WithRemote(remote))
	}
	if cfg.Search.RemoteRateLimit > 0 {
		searchOpts = append(searchOpts, search.WithRemoteRateLimit(rate.Limit(cfg.Search.RemoteRateLimit), cfg.Search.RemoteBurst))
	}
	if c.searcher, err = search.NewSearcher(c.fuzzy, c.semantic, searchOpts...); err != nil {
		return err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithCorpus(c.fuzzy),
		ingestion.WithCorpus(c.semantic),
		ingestion.WithCorpus(c.index),
		ingestion.WithCacheInvalidator(c.searcher),
		ingestion.WithLogger(c.logger),
	}
	if cfg.Embedding.Enabled {
		pipelineOpts = append(pipelineOpts, ingestion.WithEmbeddings(c.semantic))
	}
	if c.pipeline, err = ingestion.NewPipeline(c.source, pipelineOpts...); err != nil {
		return err
	}

	if _, err := c.pipeline.Sync(ctx); err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	level, err := index.ParseLevel(cfg.Index.OptimizationLevel)
	if err != nil {
		return err
	}
	if _, err := c.index.Optimize(level); err != nil {
		return err
	}

	return nil
}

// openStorage opens the response cache and the analytics event log.
func (c *Catalog) openStorage() (storage.Cache, storage.EventLog, error) {
	if c.cfg.Storage.Backend == "memory" {
		return memory.NewCache(), memory.NewEventLog(), nil
	}

	backend, err := badger.OpenBackend(c.cfg.Storage.Path, false, badger.WithLogger(c.logger))
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	c.backend = backend
	return badger.NewCache(backend), badger.NewEventLog(backend), nil
}

// openSources returns the catalog source and the remote full-text service,
// which may be nil.
func (c *Catalog) openSources(ctx context.Context, o *options) (storage.BookSource, storage.FullTextSearcher, error) {
	cfg := c.cfg

	needSource := o.source == nil && cfg.Catalog.Source == "postgres"
	needRemote := o.remote == nil && cfg.Postgres.Remote
	if needSource || needRemote {
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MigrateOnStart:  cfg.Postgres.MigrateOnStart,
		}, postgres.WithLogger(c.logger))
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres: %w", err)
		}
		c.pg = pg
	}

	var source storage.BookSource
	switch {
	case o.source != nil:
		source = o.source
	case cfg.Catalog.Source == "postgres":
		source = c.pg
	default:
		fileSource, err := memory.LoadFile(cfg.Catalog.File)
		if err != nil {
			return nil, nil, err
		}
		source = fileSource
	}

	var remote storage.FullTextSearcher
	switch {
	case o.remote != nil:
		remote = o.remote
	case cfg.Postgres.Remote:
		remote = c.pg
	}

	return source, remote, nil
}

// Search runs a search. Unset options take the configured defaults.
func (c *Catalog) Search(ctx context.Context, query string, filters core.Filters, opts search.Options) (*core.SearchResponse, error) {
	if opts.Mode == "" {
		opts.Mode = core.Mode(c.cfg.Search.Mode)
	}
	if opts.Algorithm == "" {
		opts.Algorithm = core.Algorithm(c.cfg.Search.Algorithm)
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = c.cfg.Search.MaxResults
	}
	return c.searcher.Search(ctx, query, filters, opts)
}

// Suggestions completes a partial query.
func (c *Catalog) Suggestions(ctx context.Context, partial string, maxSuggestions int) []string {
	return c.searcher.Suggestions(ctx, partial, maxSuggestions)
}

// Recommendations returns books similar to the book with the given ID.
func (c *Catalog) Recommendations(ctx context.Context, id string, maxRecommendations int) ([]core.Book, error) {
	book, err := c.source.FetchBook(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.searcher.Recommendations(book, maxRecommendations), nil
}

// SearchIndex queries the inverted index directly.
func (c *Catalog) SearchIndex(query string, filters core.Filters, opts index.SearchOptions) []index.Result {
	return c.index.SearchIndex(query, filters, opts)
}

// IndexStats returns a snapshot of the inverted index statistics.
func (c *Catalog) IndexStats() index.Stats {
	return c.index.Stats()
}

// Categories returns the catalog categories.
func (c *Catalog) Categories(ctx context.Context) ([]core.Category, error) {
	return c.source.FetchCategories(ctx)
}

// TrackInteraction records what the user did with the results of a search.
func (c *Catalog) TrackInteraction(ctx context.Context, eventID string, update analytics.InteractionUpdate) bool {
	return c.analytics.TrackInteraction(ctx, eventID, update)
}

// Analytics returns the search analytics engine.
func (c *Catalog) Analytics() *analytics.Engine {
	return c.analytics
}

// Reload replaces the local corpora with the current catalog.
func (c *Catalog) Reload(ctx context.Context) (int, error) {
	if cs, ok := c.source.(*cached.Source); ok {
		if err := cs.Invalidate(ctx); err != nil {
			c.logger.Warn("error invalidating book cache", "err", err)
		}
	}
	return c.pipeline.Sync(ctx)
}

// UpsertBook reloads one book from the catalog into the local engines.
func (c *Catalog) UpsertBook(ctx context.Context, id string) error {
	return c.pipeline.Upsert(ctx, id)
}

// RemoveBook drops one book from the local engines.
func (c *Catalog) RemoveBook(ctx context.Context, id string) (bool, error) {
	return c.pipeline.Remove(ctx, id)
}

// Embed computes dense embeddings for the whole corpus. It is a no-op when
// embeddings are disabled.
func (c *Catalog) Embed(ctx context.Context) error {
	return c.semantic.IndexEmbeddings(ctx)
}

// Close releases every resource. It is safe to call on a partially opened
// Catalog.
func (c *Catalog) Close() error {
	var errs []error

	if c.analytics != nil {
		c.analytics.Close(context.Background())
	}
	if c.pipeline != nil {
		c.pipeline.Release()
	}
	if c.index != nil {
		c.index.Release()
	}
	if c.provider != nil {
		if err := c.provider.Close(); err != nil {
			c.logger.Error("error closing embedding provider", "err", err)
			errs = append(errs, err)
		}
	}
	if c.pg != nil {
		if err := c.pg.Close(); err != nil {
			c.logger.Error("error closing postgres", "err", err)
			errs = append(errs, err)
		}
	}
	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			c.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
