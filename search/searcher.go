package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/bookshelf/analytics"
	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/observability"
	"github.com/poiesic/bookshelf/search/fuzzy"
	"github.com/poiesic/bookshelf/search/semantic"
	"github.com/poiesic/bookshelf/storage"
)

// Searcher answers book searches from the local engines, the remote
// full-text service, or both.
type Searcher struct {
	fuzzy    *fuzzy.Engine[core.Book]
	semantic *semantic.Engine[core.Book]

	remote        storage.FullTextSearcher
	cache         storage.Cache
	analytics     *analytics.Engine
	monitor       SearchMonitor
	limiter       *rate.Limiter
	cacheTTL      time.Duration
	remoteTimeout time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewSearcher creates a new searcher.
func NewSearcher(
	fuzzyEngine *fuzzy.Engine[core.Book],
	semanticEngine *semantic.Engine[core.Book],
	opts ...Option,
) (*Searcher, error) {
	if fuzzyEngine == nil {
		return nil, ErrFuzzyEngineRequired
	}
	if semanticEngine == nil {
		return nil, ErrSemanticEngineRequired
	}

	s := &Searcher{
		fuzzy:         fuzzyEngine,
		semantic:      semanticEngine,
		monitor:       &noopMonitor{},
		cacheTTL:      DefaultCacheTTL,
		remoteTimeout: DefaultRemoteTimeout,
		now:           time.Now,
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs one search request. It returns an error only for an explicit
// remote search with DisableFallback set, wrapping ErrRemoteSearch. Every
// other failure yields an empty response flagged FallbackUsed.
func (s *Searcher) Search(ctx context.Context, query string, filters core.Filters, opts Options) (*core.SearchResponse, error) {
	opts = opts.withDefaults()
	start := s.now()

	resp, err := s.guard(query, start, func() (*core.SearchResponse, error) {
		return s.search(ctx, query, filters, opts, start)
	})
	if err != nil {
		return nil, err
	}

	if s.analytics != nil {
		resp.EventID = s.analytics.TrackSearch(ctx, query, resp.TotalResults, resp.SearchTime,
			opts.Mode, filters, resp.CorrectedQuery)
	}

	observability.SearchesTotal.WithLabelValues(string(opts.Mode), string(resp.Source)).Inc()
	observability.SearchDuration.WithLabelValues(string(resp.Source)).Observe(resp.SearchTime.Seconds())
	s.monitor.Finish(resp)
	return resp, nil
}

// guard is the single place where search failures are swallowed. Panics and
// errors other than ErrRemoteSearch become an empty fallback response.
func (s *Searcher) guard(query string, start time.Time, fn func() (*core.SearchResponse, error)) (resp *core.SearchResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("search panicked", "query", query, "panic", r)
			resp, err = s.failed(start), nil
		}
	}()

	resp, err = fn()
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, ErrRemoteSearch) {
		s.logger.Warn("remote search failed without fallback", "query", query, "err", err)
		return nil, err
	}
	s.logger.Error("search failed", "query", query, "err", err)
	return s.failed(start), nil
}

func (s *Searcher) failed(start time.Time) *core.SearchResponse {
	observability.FallbacksTotal.WithLabelValues(observability.ReasonInternalError).Inc()
	s.monitor.FallbackUsed(observability.ReasonInternalError)
	return &core.SearchResponse{
		Books:        []core.Book{},
		Source:       core.SourceLocalFuzzy,
		SearchTime:   s.now().Sub(start),
		FallbackUsed: true,
	}
}

func (s *Searcher) search(ctx context.Context, query string, filters core.Filters, opts Options, start time.Time) (*core.SearchResponse, error) {
	s.monitor.Start(query, opts)

	err := opts.validate()
	if err == nil {
		err = core.ValidateFilters(filters)
	}
	if err != nil {
		s.logger.Warn("rejecting search request", "query", query, "err", err)
	}
	if err != nil || strings.TrimSpace(query) == "" {
		return &core.SearchResponse{
			Books:      []core.Book{},
			Source:     emptySource(opts),
			SearchTime: s.now().Sub(start),
		}, nil
	}

	useCache := s.cache != nil && !opts.DisableCache
	var key string
	if useCache {
		if key, err = cacheKey(query, filters, opts); err != nil {
			return nil, fmt.Errorf("deriving cache key: %w", err)
		}
		if hit, ok := s.cached(ctx, key); ok {
			s.monitor.CacheHit(key)
			hit.CacheHit = true
			hit.SearchTime = s.now().Sub(start)
			return hit, nil
		}
	}

	resp, err := s.dispatch(ctx, query, filters, opts)
	if err != nil {
		return nil, err
	}
	resp.SearchTime = s.now().Sub(start)

	if useCache {
		s.store(ctx, key, resp)
	}
	return resp, nil
}

func (s *Searcher) dispatch(ctx context.Context, query string, filters core.Filters, opts Options) (*core.SearchResponse, error) {
	switch opts.Mode {
	case core.ModeRemote:
		books, err := s.searchRemote(ctx, query, opts.MaxResults)
		if err == nil {
			return remoteResponse(books, opts.MaxResults), nil
		}
		if opts.DisableFallback {
			return nil, err
		}
		return s.fallback(ctx, query, filters, opts, observability.ReasonRemoteError, true), nil

	case core.ModeHybrid:
		books, err := s.searchRemote(ctx, query, opts.MaxResults)
		if err != nil {
			return s.fallback(ctx, query, filters, opts, observability.ReasonRemoteError, true), nil
		}
		if len(books) == 0 {
			return s.fallback(ctx, query, filters, opts, observability.ReasonRemoteEmpty, false), nil
		}
		return remoteResponse(books, opts.MaxResults), nil

	default:
		return s.searchLocal(ctx, query, filters, opts), nil
	}
}

// fallback answers from the local engines with both algorithms.
func (s *Searcher) fallback(ctx context.Context, query string, filters core.Filters, opts Options, reason string, flag bool) *core.SearchResponse {
	s.logger.Debug("falling back to local search", "query", query, "reason", reason)
	observability.FallbacksTotal.WithLabelValues(reason).Inc()
	s.monitor.FallbackUsed(reason)

	opts.Algorithm = core.AlgorithmHybrid
	resp := s.searchLocal(ctx, query, filters, opts)
	resp.FallbackUsed = flag
	return resp
}

func (s *Searcher) searchLocal(ctx context.Context, query string, filters core.Filters, opts Options) *core.SearchResponse {
	var (
		scored    []scoredBook
		corrected string
		source    core.Source
	)

	fuzzyOpts := fuzzy.Options{MaxResults: opts.MaxResults, DisableTypoCorrection: opts.DisableTypoCorrection}
	semanticOpts := semantic.Options{MaxResults: opts.MaxResults}

	switch opts.Algorithm {
	case core.AlgorithmFuzzy:
		source = core.SourceLocalFuzzy
		fz := s.fuzzy.Search(query, fuzzyOpts)
		s.monitor.AfterFuzzySearch(fuzzyIDs(fz))
		scored = fromFuzzy(fz)
		corrected = correctedQuery(fz)

	case core.AlgorithmSemantic:
		source = core.SourceLocalSemantic
		sm := s.semantic.SearchContext(ctx, query, semanticOpts)
		s.monitor.AfterSemanticSearch(semanticIDs(sm))
		scored = fromSemantic(sm)

	default:
		source = core.SourceLocalHybrid
		half := max(1, opts.MaxResults/2)
		fuzzyOpts.MaxResults = half
		semanticOpts.MaxResults = half

		fz := s.fuzzy.Search(query, fuzzyOpts)
		s.monitor.AfterFuzzySearch(fuzzyIDs(fz))
		sm := s.semantic.SearchContext(ctx, query, semanticOpts)
		s.monitor.AfterSemanticSearch(semanticIDs(sm))

		scored = merge(fz, sm)
		corrected = correctedQuery(fz)
	}

	books := make([]core.Book, 0, len(scored))
	scores := make(map[string]float64, len(scored))
	for _, sb := range scored {
		if !filters.Matches(sb.book) {
			continue
		}
		if len(books) == opts.MaxResults {
			break
		}
		books = append(books, sb.book)
		scores[sb.book.ID] = sb.score
	}

	return &core.SearchResponse{
		Books:           books,
		Source:          source,
		TotalResults:    len(books),
		RelevanceScores: scores,
		CorrectedQuery:  corrected,
	}
}

// searchRemote calls the remote service under the rate limit and timeout.
// Every failure wraps ErrRemoteSearch.
func (s *Searcher) searchRemote(ctx context.Context, query string, limit int) ([]core.Book, error) {
	if s.remote == nil {
		err := fmt.Errorf("%w: %w", ErrRemoteSearch, ErrRemoteNotConfigured)
		s.monitor.AfterRemoteSearch(nil, err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	books, err := callRemote(ctx, s, "search_books", func(ctx context.Context) ([]core.Book, error) {
		return s.remote.SearchBooks(ctx, query, limit)
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRemoteSearch, err)
		s.monitor.AfterRemoteSearch(nil, err)
		return nil, err
	}

	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	s.monitor.AfterRemoteSearch(ids, nil)
	return books, nil
}

// callRemote waits for the rate limiter, then runs fn and records metrics.
func callRemote[V any](ctx context.Context, s *Searcher, operation string, fn func(context.Context) (V, error)) (V, error) {
	var zero V
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			observability.RemoteRequestsTotal.WithLabelValues(operation, "throttled").Inc()
			return zero, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	start := time.Now()
	v, err := fn(ctx)
	observability.RemoteLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RemoteRequestsTotal.WithLabelValues(operation, "error").Inc()
		return zero, err
	}
	observability.RemoteRequestsTotal.WithLabelValues(operation, "ok").Inc()
	return v, nil
}

func remoteResponse(books []core.Book, maxResults int) *core.SearchResponse {
	if books == nil {
		books = []core.Book{}
	}
	if len(books) > maxResults {
		books = books[:maxResults]
	}
	return &core.SearchResponse{
		Books:        books,
		Source:       core.SourceRemote,
		TotalResults: len(books),
	}
}

func emptySource(opts Options) core.Source {
	switch opts.Mode {
	case core.ModeRemote, core.ModeHybrid:
		return core.SourceRemote
	}
	switch opts.Algorithm {
	case core.AlgorithmSemantic:
		return core.SourceLocalSemantic
	case core.AlgorithmHybrid:
		return core.SourceLocalHybrid
	default:
		return core.SourceLocalFuzzy
	}
}

func correctedQuery(results []fuzzy.Result[core.Book]) string {
	for _, r := range results {
		if r.CorrectedQuery != "" {
			return r.CorrectedQuery
		}
	}
	return ""
}

func fuzzyIDs(results []fuzzy.Result[core.Book]) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Item.ID
	}
	return ids
}

func semanticIDs(results []semantic.Result[core.Book]) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Item.ID
	}
	return ids
}
