// Package analytics records searches and the interactions that follow them,
// and derives reports from that log.
//
// The log is append-only apart from interaction updates, capped at the most
// recent events and pruned to a retention window when loaded. Persistence
// goes through a storage.EventLog and is best-effort: read and write
// failures are logged and the engine keeps working from memory.
//
//	engine, err := analytics.New(ctx, badger.NewEventLog(backend))
//	id := engine.TrackSearch(ctx, "пригоди", 3, 12*time.Millisecond, core.ModeLocal, core.Filters{}, "")
//	clicked := "book-1"
//	engine.TrackInteraction(ctx, id, analytics.InteractionUpdate{ClickedItemID: &clicked})
package analytics
