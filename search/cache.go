package search

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/observability"
)

const cacheKeyPrefix = "search:"

// cacheKeyParts fixes the field order of the encoded key, so equal requests
// encode identically whatever order their filters were built in.
type cacheKeyParts struct {
	Query          string         `json:"q"`
	Filters        core.Filters   `json:"f"`
	Mode           core.Mode      `json:"m"`
	Algorithm      core.Algorithm `json:"a"`
	MaxResults     int            `json:"n"`
	TypoCorrection bool           `json:"t"`
}

// cacheKey derives the response cache key of a request. opts must already
// carry its defaults.
func cacheKey(query string, filters core.Filters, opts Options) (string, error) {
	raw, err := json.Marshal(cacheKeyParts{
		Query:          strings.ToLower(strings.TrimSpace(query)),
		Filters:        filters,
		Mode:           opts.Mode,
		Algorithm:      opts.Algorithm,
		MaxResults:     opts.MaxResults,
		TypoCorrection: !opts.DisableTypoCorrection,
	})
	if err != nil {
		return "", err
	}
	return cacheKeyPrefix + core.HashKey(string(raw)), nil
}

type cacheEntry struct {
	Data      *core.SearchResponse `json:"data"`
	Timestamp int64                `json:"timestampMs"`
	TTL       int64                `json:"ttlMs"`
}

// cached returns the stored response for key, if present and fresh.
// Cache failures are logged and read as a miss.
func (s *Searcher) cached(ctx context.Context, key string) (*core.SearchResponse, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("error reading search cache", "key", key, "err", err)
		ok = false
	}
	if !ok {
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Data == nil {
		s.logger.Warn("discarding corrupt search cache entry", "key", key, "err", err)
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	if s.now().UnixMilli()-entry.Timestamp >= entry.TTL {
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return entry.Data, true
}

func (s *Searcher) store(ctx context.Context, key string, resp *core.SearchResponse) {
	data := *resp
	data.EventID = ""
	data.CacheHit = false

	raw, err := json.Marshal(cacheEntry{
		Data:      &data,
		Timestamp: s.now().UnixMilli(),
		TTL:       s.cacheTTL.Milliseconds(),
	})
	if err != nil {
		s.logger.Warn("error encoding search cache entry", "key", key, "err", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("error writing search cache", "key", key, "err", err)
	}
}

// InvalidateCache drops every cached search response and reports how many
// entries were removed.
func (s *Searcher) InvalidateCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.InvalidatePattern(ctx, cacheKeyPrefix+"*")
}
