package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, BOOKSHELF_CONFIG env, ./bookshelf.yaml)
//  3. BOOKSHELF_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile returns the explicit path, then BOOKSHELF_CONFIG, then
// ./bookshelf.yaml if it exists. Returns empty string if none applies.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("BOOKSHELF_CONFIG"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("bookshelf.yaml"); err == nil {
		return "bookshelf.yaml"
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps BOOKSHELF_* environment variables to config fields.
// Malformed numeric or duration values are reported.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"BOOKSHELF_CATALOG_SOURCE":      &cfg.Catalog.Source,
		"BOOKSHELF_CATALOG_FILE":        &cfg.Catalog.File,
		"BOOKSHELF_STORAGE_BACKEND":     &cfg.Storage.Backend,
		"BOOKSHELF_STORAGE_PATH":        &cfg.Storage.Path,
		"BOOKSHELF_POSTGRES_DSN":        &cfg.Postgres.DSN,
		"BOOKSHELF_SEARCH_MODE":         &cfg.Search.Mode,
		"BOOKSHELF_SEARCH_ALGORITHM":    &cfg.Search.Algorithm,
		"BOOKSHELF_EMBEDDING_HOST":      &cfg.Embedding.Host,
		"BOOKSHELF_EMBEDDING_MODEL":     &cfg.Embedding.Model,
		"BOOKSHELF_EMBEDDING_API_TOKEN": &cfg.Embedding.APIToken,
		"BOOKSHELF_LOG_LEVEL":           &cfg.LogLevel,
	}
	for name, field := range strs {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	durations := map[string]*time.Duration{
		"BOOKSHELF_SEARCH_CACHE_TTL":         &cfg.Search.CacheTTL,
		"BOOKSHELF_SEARCH_REMOTE_TIMEOUT":    &cfg.Search.RemoteTimeout,
		"BOOKSHELF_ANALYTICS_RETENTION":      &cfg.Analytics.Retention,
		"BOOKSHELF_ANALYTICS_FLUSH_INTERVAL": &cfg.Analytics.FlushInterval,
	}
	for name, field := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = d
		}
	}

	ints := map[string]*int{
		"BOOKSHELF_SEARCH_MAX_RESULTS":   &cfg.Search.MaxResults,
		"BOOKSHELF_ANALYTICS_MAX_EVENTS": &cfg.Analytics.MaxEvents,
	}
	for name, field := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = n
		}
	}

	bools := map[string]*bool{
		"BOOKSHELF_POSTGRES_REMOTE":   &cfg.Postgres.Remote,
		"BOOKSHELF_POSTGRES_MIGRATE":  &cfg.Postgres.MigrateOnStart,
		"BOOKSHELF_EMBEDDING_ENABLED": &cfg.Embedding.Enabled,
	}
	for name, field := range bools {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = b
		}
	}

	return nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
func resolveFileReferences(cfg *Config) error {
	// postgres.dsn_file -> postgres.dsn
	if cfg.Postgres.DSNFile != "" && cfg.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("postgres.dsn_file: %w", err)
		}
		cfg.Postgres.DSN = val
	}

	// embedding.api_token_file -> embedding.api_token
	if cfg.Embedding.APITokenFile != "" && cfg.Embedding.APIToken == "" {
		val, err := readSecretFile(cfg.Embedding.APITokenFile)
		if err != nil {
			return fmt.Errorf("embedding.api_token_file: %w", err)
		}
		cfg.Embedding.APIToken = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
