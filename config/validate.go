package config

import (
	"errors"
	"fmt"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/search/index"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	switch c.Catalog.Source {
	case "file":
		if c.Catalog.File == "" {
			errs = append(errs, fmt.Errorf("catalog.file is required when catalog.source is \"file\""))
		}
	case "postgres":
		// checked below
	default:
		errs = append(errs, fmt.Errorf("catalog.source must be \"file\" or \"postgres\", got %q", c.Catalog.Source))
	}

	if c.Catalog.Source == "postgres" || c.Postgres.Remote {
		if c.Postgres.DSN == "" {
			errs = append(errs, fmt.Errorf("postgres.dsn or postgres.dsn_file is required when postgres is used"))
		}
		if c.Postgres.MaxConns < c.Postgres.MinConns {
			errs = append(errs, fmt.Errorf("postgres.max_conns (%d) must be >= postgres.min_conns (%d)",
				c.Postgres.MaxConns, c.Postgres.MinConns))
		}
	}

	switch c.Storage.Backend {
	case "badger":
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required when storage.backend is \"badger\""))
		}
	case "memory":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be \"badger\" or \"memory\", got %q", c.Storage.Backend))
	}

	if err := core.ValidateMode(core.Mode(c.Search.Mode)); err != nil {
		errs = append(errs, fmt.Errorf("search.mode: %w", err))
	}
	if err := core.ValidateAlgorithm(core.Algorithm(c.Search.Algorithm)); err != nil {
		errs = append(errs, fmt.Errorf("search.algorithm: %w", err))
	}
	if c.Search.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("search.max_results must be > 0, got %d", c.Search.MaxResults))
	}
	if c.Search.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("search.cache_ttl must be > 0, got %s", c.Search.CacheTTL))
	}
	if c.Search.BookCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("search.book_cache_ttl must be > 0, got %s", c.Search.BookCacheTTL))
	}
	if c.Search.RemoteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("search.remote_timeout must be > 0, got %s", c.Search.RemoteTimeout))
	}
	if c.Search.RemoteRateLimit < 0 {
		errs = append(errs, fmt.Errorf("search.remote_rate_limit must be >= 0, got %g", c.Search.RemoteRateLimit))
	}
	if c.Search.RemoteRateLimit > 0 && c.Search.RemoteBurst < 1 {
		errs = append(errs, fmt.Errorf("search.remote_burst must be >= 1 when rate limiting, got %d", c.Search.RemoteBurst))
	}

	if c.Index.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("index.batch_size must be > 0, got %d", c.Index.BatchSize))
	}
	if c.Index.RebuildInterval < 0 {
		errs = append(errs, fmt.Errorf("index.rebuild_interval must be >= 0, got %s", c.Index.RebuildInterval))
	}
	if c.Index.MinTermFrequency < 0 || c.Index.MinTermFrequency > 1 {
		errs = append(errs, fmt.Errorf("index.min_term_frequency must be within [0, 1], got %g", c.Index.MinTermFrequency))
	}
	if _, err := index.ParseLevel(c.Index.OptimizationLevel); err != nil {
		errs = append(errs, fmt.Errorf("index.optimization_level: %w", err))
	}

	if c.Embedding.Enabled {
		if c.Embedding.Host == "" {
			errs = append(errs, fmt.Errorf("embedding.host is required when embedding is enabled"))
		}
		if c.Embedding.Model == "" {
			errs = append(errs, fmt.Errorf("embedding.model is required when embedding is enabled"))
		}
		if c.Embedding.Weight < 0 {
			errs = append(errs, fmt.Errorf("embedding.weight must be >= 0, got %g", c.Embedding.Weight))
		}
	}

	if c.Analytics.MaxEvents <= 0 {
		errs = append(errs, fmt.Errorf("analytics.max_events must be > 0, got %d", c.Analytics.MaxEvents))
	}
	if c.Analytics.Retention <= 0 {
		errs = append(errs, fmt.Errorf("analytics.retention must be > 0, got %s", c.Analytics.Retention))
	}
	if c.Analytics.FlushInterval < 0 {
		errs = append(errs, fmt.Errorf("analytics.flush_interval must be >= 0, got %s", c.Analytics.FlushInterval))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel))
	}

	return errors.Join(errs...)
}
