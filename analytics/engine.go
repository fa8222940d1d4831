package analytics

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage"
)

// Engine is the search analytics log.
type Engine struct {
	mu     sync.RWMutex
	events []core.SearchEvent

	// persistMu orders Save calls so a stale snapshot never overwrites a newer one.
	persistMu sync.Mutex
	log       storage.EventLog

	// With a flush interval, writes only mark the log dirty and a
	// background loop saves it.
	flushEvery time.Duration
	dirty      atomic.Bool
	closed     atomic.Bool
	stop       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once

	sessionID string
	maxEvents int
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// InteractionUpdate carries the interaction fields to change. Nil fields are
// left as they are. Setting ClickedItemID implies Clicked.
type InteractionUpdate struct {
	Clicked       *bool
	ClickedItemID *string
	TimeToClick   *time.Duration
	ScrollDepth   *float64
}

// New creates an engine and loads the persisted log. log may be nil, in
// which case nothing is persisted. A failed load is logged and the engine
// starts empty.
func New(ctx context.Context, log storage.EventLog, opts ...Option) (*Engine, error) {
	e := &Engine{
		log:       log,
		sessionID: uuid.NewString(),
		maxEvents: DefaultMaxEvents,
		retention: DefaultRetention,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	e.load(ctx)
	if e.flushEvery > 0 && e.log != nil {
		e.stop = make(chan struct{})
		e.done = make(chan struct{})
		go e.flushLoop()
	}
	return e, nil
}

func (e *Engine) load(ctx context.Context) {
	if e.log == nil {
		return
	}

	events, err := e.log.Load(ctx)
	if err != nil {
		e.logger.Warn("failed to load search analytics, starting empty", "err", err)
		return
	}

	cutoff := e.now().Add(-e.retention)
	kept := events[:0]
	for _, ev := range events {
		if !ev.Timestamp.Before(cutoff) {
			kept = append(kept, ev)
		}
	}
	if len(kept) > e.maxEvents {
		kept = kept[len(kept)-e.maxEvents:]
	}

	e.mu.Lock()
	e.events = slices.Clone(kept)
	e.mu.Unlock()

	e.logger.Debug("search analytics loaded", "events", len(kept), "dropped", len(events)-len(kept))
}

// SessionID returns the session this engine records under.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// TrackSearch appends a search event and returns its ID. The oldest events
// are evicted beyond the cap.
func (e *Engine) TrackSearch(ctx context.Context, query string, resultCount int, searchTime time.Duration,
	mode core.Mode, filters core.Filters, correctedQuery string) string {
	event := core.SearchEvent{
		ID:             uuid.NewString(),
		Query:          query,
		Timestamp:      e.now(),
		ResultCount:    resultCount,
		SearchTime:     searchTime,
		Mode:           mode,
		Filters:        filters,
		CorrectedQuery: correctedQuery,
		SessionID:      e.sessionID,
	}

	e.mu.Lock()
	e.events = append(e.events, event)
	if over := len(e.events) - e.maxEvents; over > 0 {
		e.events = slices.Delete(e.events, 0, over)
	}
	e.mu.Unlock()

	e.persist(ctx)
	return event.ID
}

// TrackInteraction updates the interaction of an event in place. It reports
// false, and changes nothing, when the event is unknown or was evicted.
func (e *Engine) TrackInteraction(ctx context.Context, eventID string, update InteractionUpdate) bool {
	e.mu.Lock()
	i := slices.IndexFunc(e.events, func(ev core.SearchEvent) bool { return ev.ID == eventID })
	if i < 0 {
		e.mu.Unlock()
		return false
	}

	in := &e.events[i].Interaction
	if update.Clicked != nil {
		in.Clicked = *update.Clicked
	}
	if update.ClickedItemID != nil {
		in.ClickedItemID = *update.ClickedItemID
		in.Clicked = true
	}
	if update.TimeToClick != nil {
		in.TimeToClick = *update.TimeToClick
	}
	if update.ScrollDepth != nil {
		in.ScrollDepth = *update.ScrollDepth
	}
	e.mu.Unlock()

	e.persist(ctx)
	return true
}

// Events returns a copy of the log, oldest first.
func (e *Engine) Events() []core.SearchEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.events)
}

// Len returns the number of retained events.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.events)
}

// Clear drops every event, in memory and in the persisted log.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	e.events = nil
	e.mu.Unlock()

	e.persist(ctx)
}

func (e *Engine) persist(ctx context.Context) {
	if e.log == nil {
		return
	}
	if e.stop != nil && !e.closed.Load() {
		e.dirty.Store(true)
		return
	}
	e.save(ctx)
}

func (e *Engine) save(ctx context.Context) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if err := e.log.Save(ctx, e.Events()); err != nil {
		e.logger.Warn("failed to persist search analytics", "err", err)
	}
}

func (e *Engine) flushLoop() {
	defer close(e.done)

	ticker := time.NewTicker(e.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.Flush(context.Background())
		case <-e.stop:
			return
		}
	}
}

// Flush saves pending changes now. It is a no-op when nothing changed since
// the last save or when the engine persists synchronously.
func (e *Engine) Flush(ctx context.Context) {
	if e.log == nil || !e.dirty.Swap(false) {
		return
	}
	e.save(ctx)
}

// Close stops background persistence and saves pending changes. Later
// changes are saved on write. It is safe to call more than once.
func (e *Engine) Close(ctx context.Context) {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.stop != nil {
			close(e.stop)
			<-e.done
		}
		e.Flush(ctx)
	})
}
