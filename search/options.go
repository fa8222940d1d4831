package search

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/bookshelf/analytics"
	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage"
)

const (
	DefaultMaxResults     = 20
	DefaultCacheTTL       = 5 * time.Minute
	DefaultRemoteTimeout  = 5 * time.Second
	DefaultMaxSuggestions = 5
)

// Options controls a single search request.
// The zero value searches locally with both engines.
type Options struct {
	// Mode defaults to core.ModeLocal.
	Mode core.Mode
	// Algorithm selects the local engines. Defaults to core.AlgorithmHybrid.
	Algorithm core.Algorithm
	// MaxResults defaults to DefaultMaxResults.
	MaxResults int
	// DisableCache skips both the cache lookup and the cache store.
	DisableCache bool
	// DisableFallback makes an explicit remote search return the remote error
	// instead of answering from the local engines.
	DisableFallback       bool
	DisableTypoCorrection bool
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = core.ModeLocal
	}
	if o.Algorithm == "" {
		o.Algorithm = core.AlgorithmHybrid
	}
	if o.MaxResults == 0 {
		o.MaxResults = DefaultMaxResults
	}
	return o
}

func (o Options) validate() error {
	if err := core.ValidateMode(o.Mode); err != nil {
		return err
	}
	if err := core.ValidateAlgorithm(o.Algorithm); err != nil {
		return err
	}
	if o.MaxResults < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxResults, o.MaxResults)
	}
	return nil
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRemote sets the remote full-text service used by the remote and
// hybrid modes. Without it those modes always fall back.
func WithRemote(remote storage.FullTextSearcher) Option {
	return func(s *Searcher) error {
		s.remote = remote
		return nil
	}
}

// WithCache enables the response cache.
func WithCache(cache storage.Cache) Option {
	return func(s *Searcher) error {
		s.cache = cache
		return nil
	}
}

// WithAnalytics records every answered search in the analytics engine.
func WithAnalytics(engine *analytics.Engine) Option {
	return func(s *Searcher) error {
		s.analytics = engine
		return nil
	}
}

// WithMonitor sets hooks that observe every search.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithClock overrides the time source used for cache expiry and timing.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// WithCacheTTL sets how long a response stays cached.
// Default is DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Searcher) error {
		if ttl <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidCacheTTL, ttl)
		}
		s.cacheTTL = ttl
		return nil
	}
}

// WithRemoteTimeout bounds every remote call.
// Default is DefaultRemoteTimeout.
func WithRemoteTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidRemoteTimeout, timeout)
		}
		s.remoteTimeout = timeout
		return nil
	}
}

// WithRemoteRateLimit throttles remote calls to r per second with the given
// burst. A call that cannot get a token before its timeout counts as a remote
// failure.
func WithRemoteRateLimit(r rate.Limit, burst int) Option {
	return func(s *Searcher) error {
		s.limiter = rate.NewLimiter(r, burst)
		return nil
	}
}
