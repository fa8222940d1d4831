package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage"
)

// EventLog implements storage.EventLog on BadgerDB. Events are stored one
// per key, keyed by their position in the log.
type EventLog struct {
	backend *Backend
}

var _ storage.EventLog = (*EventLog)(nil)

// NewEventLog creates an event log in the backend's event namespace.
func NewEventLog(backend *Backend) *EventLog {
	return &EventLog{backend: backend}
}

// Load returns the stored events, oldest first. Undecodable entries are
// skipped and logged.
func (l *EventLog) Load(ctx context.Context) ([]core.SearchEvent, error) {
	var events []core.SearchEvent

	err := l.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(eventPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := iter.Item()
			err := item.Value(func(val []byte) error {
				event, err := storage.UnmarshalSearchEvent(val)
				if err != nil {
					l.backend.logger.Warn("skipping corrupt search event", "key", string(item.Key()), "err", err)
					return nil
				}
				events = append(events, *event)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return events, nil
}

// Save replaces the stored log. Positions past the new length are deleted.
func (l *EventLog) Save(ctx context.Context, events []core.SearchEvent) error {
	existing, err := l.backend.keysWithPrefix(ctx, []byte(eventPrefix))
	if err != nil {
		return err
	}

	return l.backend.writeBatch(func(wb *badger.WriteBatch) error {
		for i := range events {
			if err := wb.Set(makeEventKey(i), storage.MarshalSearchEvent(&events[i])); err != nil {
				return err
			}
		}
		for _, k := range existing {
			if pos, ok := eventKeyPosition(k); !ok || pos >= len(events) {
				if err := wb.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
