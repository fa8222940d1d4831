// Package config provides unified configuration for the bookshelf search core.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (BOOKSHELF_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the search core.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Storage   StorageConfig   `yaml:"storage"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error; default: info
}

// CatalogConfig selects where books come from.
type CatalogConfig struct {
	Source string `yaml:"source"` // "file" or "postgres", default: "file"
	File   string `yaml:"file"`   // JSON catalog, required when source is "file"
}

// StorageConfig holds the local cache and analytics log settings.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "badger" or "memory", default: "badger"
	Path    string `yaml:"path"`    // badger directory, default: "./bookshelf-data"
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	DSNFile         string        `yaml:"dsn_file"`          // _file variant for dsn
	MaxConns        int32         `yaml:"max_conns"`         // default: 10
	MinConns        int32         `yaml:"min_conns"`         // default: 1
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"` // default: 5m
	MigrateOnStart  bool          `yaml:"migrate_on_start"`  // default: false
	Remote          bool          `yaml:"remote"`            // use the full-text functions for remote search
}

// SearchConfig holds the orchestrator settings.
type SearchConfig struct {
	Mode            string        `yaml:"mode"`              // local, remote, hybrid; default: local
	Algorithm       string        `yaml:"algorithm"`         // fuzzy, semantic, hybrid; default: hybrid
	MaxResults      int           `yaml:"max_results"`       // default: 20
	CacheTTL        time.Duration `yaml:"cache_ttl"`         // default: 5m
	BookCacheTTL    time.Duration `yaml:"book_cache_ttl"`    // default: 10m
	RemoteTimeout   time.Duration `yaml:"remote_timeout"`    // default: 5s
	RemoteRateLimit float64       `yaml:"remote_rate_limit"` // requests per second, 0 disables
	RemoteBurst     int           `yaml:"remote_burst"`      // default: 10
}

// IndexConfig holds the inverted index settings.
type IndexConfig struct {
	BatchSize         int           `yaml:"batch_size"`         // default: 100
	RebuildInterval   time.Duration `yaml:"rebuild_interval"`   // default: 1h
	MinTermFrequency  float64       `yaml:"min_term_frequency"` // default: 0.01
	OptimizationLevel string        `yaml:"optimization_level"` // basic, standard, aggressive; default: standard
}

// EmbeddingConfig holds the optional dense embedding channel settings.
type EmbeddingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Host         string  `yaml:"host"`  // default: http://localhost:11434/v1
	Model        string  `yaml:"model"` // default: embeddinggemma
	APIToken     string  `yaml:"api_token"`
	APITokenFile string  `yaml:"api_token_file"` // _file variant for api_token
	Weight       float64 `yaml:"weight"`         // default: 0.5
}

// AnalyticsConfig holds the search event log settings.
type AnalyticsConfig struct {
	MaxEvents     int           `yaml:"max_events"`     // default: 1000
	Retention     time.Duration `yaml:"retention"`      // default: 720h
	FlushInterval time.Duration `yaml:"flush_interval"` // default: 2s, 0 saves on every search
}

// Defaults returns a Config populated with the built-in defaults.
func Defaults() Config {
	return Config{
		Catalog: CatalogConfig{
			Source: "file",
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "./bookshelf-data",
		},
		Postgres: PostgresConfig{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 5 * time.Minute,
		},
		Search: SearchConfig{
			Mode:          "local",
			Algorithm:     "hybrid",
			MaxResults:    20,
			CacheTTL:      5 * time.Minute,
			BookCacheTTL:  10 * time.Minute,
			RemoteTimeout: 5 * time.Second,
			RemoteBurst:   10,
		},
		Index: IndexConfig{
			BatchSize:         100,
			RebuildInterval:   time.Hour,
			MinTermFrequency:  0.01,
			OptimizationLevel: "standard",
		},
		Embedding: EmbeddingConfig{
			Host:   "http://localhost:11434/v1",
			Model:  "embeddinggemma",
			Weight: 0.5,
		},
		Analytics: AnalyticsConfig{
			MaxEvents:     1000,
			Retention:     30 * 24 * time.Hour,
			FlushInterval: 2 * time.Second,
		},
		LogLevel: "info",
	}
}
