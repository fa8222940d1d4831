package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage"
)

// EventLog implements storage.EventLog in memory.
type EventLog struct {
	mu     sync.Mutex
	events []core.SearchEvent
	saves  int
}

var _ storage.EventLog = (*EventLog)(nil)

// NewEventLog creates a log holding a copy of events.
func NewEventLog(events ...core.SearchEvent) *EventLog {
	return &EventLog{events: slices.Clone(events)}
}

func (l *EventLog) Load(ctx context.Context) ([]core.SearchEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events), nil
}

func (l *EventLog) Save(ctx context.Context, events []core.SearchEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = slices.Clone(events)
	l.saves++
	return nil
}

// Saves returns how many times Save was called.
func (l *EventLog) Saves() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saves
}
