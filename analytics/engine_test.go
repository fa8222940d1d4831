package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage/memory"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)}
}

// failingLog rejects every call.
type failingLog struct{ saves int }

func (f *failingLog) Load(context.Context) ([]core.SearchEvent, error) {
	return nil, errors.New("disk gone")
}

func (f *failingLog) Save(context.Context, []core.SearchEvent) error {
	f.saves++
	return errors.New("disk gone")
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *memory.EventLog, *testClock) {
	t.Helper()
	clk := newClock()
	log := memory.NewEventLog()
	e, err := New(context.Background(), log, append([]Option{WithClock(clk.Now), WithSessionID("me")}, opts...)...)
	require.NoError(t, err)
	return e, log, clk
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(context.Background(), nil, WithMaxEvents(0))
	assert.ErrorIs(t, err, ErrInvalidMaxEvents)

	_, err = New(context.Background(), nil, WithRetention(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidRetention)

	_, err = New(context.Background(), nil, WithFlushInterval(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidFlushInterval)
}

func TestNew_LoadPrunesAndCaps(t *testing.T) {
	clk := newClock()
	var stored []core.SearchEvent
	stored = append(stored, core.SearchEvent{ID: "ancient", Timestamp: clk.now.Add(-31 * 24 * time.Hour)})
	for i := range 5 {
		stored = append(stored, core.SearchEvent{ID: fmt.Sprintf("e%d", i), Timestamp: clk.now.Add(-time.Duration(5-i) * time.Hour)})
	}

	e, err := New(context.Background(), memory.NewEventLog(stored...), WithClock(clk.Now), WithMaxEvents(3))
	require.NoError(t, err)

	events := e.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "e2", events[0].ID)
	assert.Equal(t, "e4", events[2].ID)
}

func TestNew_LoadFailureStartsEmpty(t *testing.T) {
	log := &failingLog{}
	e, err := New(context.Background(), log)
	require.NoError(t, err)
	assert.Zero(t, e.Len())

	id := e.TrackSearch(context.Background(), "q", 1, time.Millisecond, core.ModeLocal, core.Filters{}, "")
	assert.NotEmpty(t, id, "persistence failures are swallowed")
	assert.Equal(t, 1, e.Len())
	assert.Equal(t, 1, log.saves)
}

func TestTrackSearch(t *testing.T) {
	e, log, clk := newEngine(t, WithMaxEvents(2))
	ctx := context.Background()

	id1 := e.TrackSearch(ctx, "пригоди", 3, 20*time.Millisecond, core.ModeLocal, core.Filters{Category: "Казки"}, "")
	id2 := e.TrackSearch(ctx, "пригода", 1, 10*time.Millisecond, core.ModeHybrid, core.Filters{}, "пригоди")
	assert.NotEqual(t, id1, id2)

	events := e.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "me", events[0].SessionID)
	assert.Equal(t, clk.now, events[0].Timestamp)
	assert.Equal(t, "пригоди", events[1].CorrectedQuery)

	id3 := e.TrackSearch(ctx, "казки", 0, time.Millisecond, core.ModeLocal, core.Filters{}, "")
	events = e.Events()
	require.Len(t, events, 2)
	assert.Equal(t, id2, events[0].ID, "oldest evicted")
	assert.Equal(t, id3, events[1].ID)

	persisted, _ := log.Load(ctx)
	assert.Len(t, persisted, 2)
	assert.Equal(t, 3, log.Saves())
}

func TestFlushInterval_DefersSaves(t *testing.T) {
	e, log, _ := newEngine(t, WithFlushInterval(time.Hour))
	ctx := context.Background()

	for _, q := range []string{"пригоди", "казки", "вірші"} {
		e.TrackSearch(ctx, q, 1, time.Millisecond, core.ModeLocal, core.Filters{}, "")
	}
	assert.Zero(t, log.Saves(), "searches do not write through")
	assert.Equal(t, 3, e.Len())

	e.Flush(ctx)
	assert.Equal(t, 1, log.Saves())
	persisted, _ := log.Load(ctx)
	assert.Len(t, persisted, 3)

	e.Flush(ctx)
	assert.Equal(t, 1, log.Saves(), "nothing pending")

	e.TrackSearch(ctx, "загадки", 0, time.Millisecond, core.ModeLocal, core.Filters{}, "")
	e.Close(ctx)
	assert.Equal(t, 2, log.Saves())
	persisted, _ = log.Load(ctx)
	assert.Len(t, persisted, 4)

	e.Close(ctx)
	assert.Equal(t, 2, log.Saves())

	e.TrackSearch(ctx, "після", 0, time.Millisecond, core.ModeLocal, core.Filters{}, "")
	assert.Equal(t, 3, log.Saves(), "writes through once closed")
}

func TestFlushInterval_BackgroundSave(t *testing.T) {
	e, log, _ := newEngine(t, WithFlushInterval(10*time.Millisecond))
	t.Cleanup(func() { e.Close(context.Background()) })

	e.TrackSearch(context.Background(), "пригоди", 1, time.Millisecond, core.ModeLocal, core.Filters{}, "")

	require.Eventually(t, func() bool { return log.Saves() == 1 }, time.Second, 5*time.Millisecond)
	persisted, _ := log.Load(context.Background())
	assert.Len(t, persisted, 1)
}

func TestClose_SynchronousEngine(t *testing.T) {
	e, log, _ := newEngine(t)
	ctx := context.Background()

	e.TrackSearch(ctx, "пригоди", 1, time.Millisecond, core.ModeLocal, core.Filters{}, "")
	assert.Equal(t, 1, log.Saves())

	e.Close(ctx)
	e.Flush(ctx)
	assert.Equal(t, 1, log.Saves(), "already saved on write")
}

func TestTrackInteraction(t *testing.T) {
	e, log, _ := newEngine(t, WithMaxEvents(1))
	ctx := context.Background()

	id := e.TrackSearch(ctx, "пригоди", 3, time.Millisecond, core.ModeLocal, core.Filters{}, "")

	item := "book-1"
	wait := 1500 * time.Millisecond
	depth := 0.4
	assert.True(t, e.TrackInteraction(ctx, id, InteractionUpdate{ClickedItemID: &item, TimeToClick: &wait}))
	assert.True(t, e.TrackInteraction(ctx, id, InteractionUpdate{ScrollDepth: &depth}))

	got := e.Events()[0].Interaction
	assert.Equal(t, core.Interaction{Clicked: true, ClickedItemID: "book-1", TimeToClick: wait, ScrollDepth: 0.4}, got)

	persisted, _ := log.Load(ctx)
	assert.True(t, persisted[0].Interaction.Clicked)

	e.TrackSearch(ctx, "інше", 0, time.Millisecond, core.ModeLocal, core.Filters{}, "")
	saves := log.Saves()
	assert.False(t, e.TrackInteraction(ctx, id, InteractionUpdate{ScrollDepth: &depth}), "evicted event")
	assert.False(t, e.Events()[0].Interaction.Clicked)
	assert.Equal(t, saves, log.Saves(), "no write for unknown events")
}

func TestAnalytics(t *testing.T) {
	e, _, clk := newEngine(t)
	ctx := context.Background()

	clicked := "b1"
	id := e.TrackSearch(ctx, "Пригоди ", 2, 30*time.Millisecond, core.ModeLocal, core.Filters{Category: "Казки"}, "")
	e.TrackInteraction(ctx, id, InteractionUpdate{ClickedItemID: &clicked})

	clk.now = clk.now.Add(2 * time.Hour)
	e.TrackSearch(ctx, "пригоди", 1, 10*time.Millisecond, core.ModeHybrid, core.Filters{Availability: core.AvailabilityAvailable}, "")
	e.TrackSearch(ctx, "пригода", 0, 20*time.Millisecond, core.ModeLocal, core.Filters{Category: "Казки"}, "пригоди")

	r := e.Analytics()
	assert.Equal(t, 3, r.TotalSearches)
	assert.Equal(t, 2, r.SuccessfulSearches)
	assert.Equal(t, 20*time.Millisecond, r.AverageSearchTime)
	assert.Equal(t, map[string]int{"пригоди": 2, "пригода": 1}, r.PopularQueries)
	assert.Equal(t, map[string]int{"category:Казки": 2, "availability:available": 1}, r.PopularFilters)
	assert.Equal(t, map[core.Mode]int{core.ModeLocal: 2, core.ModeHybrid: 1}, r.ModeDistribution)
	assert.Equal(t, map[string]string{"пригода": "пригоди"}, r.TypoCorrections)
	assert.Equal(t, []string{"пригоди", "пригода"}, r.LowPerforming)
	assert.Equal(t, 1, r.HourlyDistribution[10])
	assert.Equal(t, 2, r.HourlyDistribution[12])
}

func TestAnalytics_LowPerformingCapped(t *testing.T) {
	e, _, _ := newEngine(t)
	for i := range 15 {
		e.TrackSearch(context.Background(), fmt.Sprintf("q%02d", i), 0, 0, core.ModeLocal, core.Filters{}, "")
	}
	r := e.Analytics()
	require.Len(t, r.LowPerforming, lowPerformingLimit)
	assert.Equal(t, "q00", r.LowPerforming[0])
}

func TestPerformanceInsights(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	for range 3 {
		e.TrackSearch(ctx, "повільний", 1, 150*time.Millisecond, core.ModeRemote, core.Filters{}, "")
	}
	for range 2 {
		e.TrackSearch(ctx, "рідкісний", 1, 500*time.Millisecond, core.ModeLocal, core.Filters{}, "")
	}
	for range 2 {
		e.TrackSearch(ctx, "нічого", 0, time.Millisecond, core.ModeLocal, core.Filters{Category: "Казки"}, "")
	}
	e.TrackSearch(ctx, "пусто", 0, time.Millisecond, core.ModeRemote, core.Filters{Category: "Навчання"}, "")

	in := e.PerformanceInsights()

	require.Len(t, in.SlowQueries, 1, "needs more than two searches")
	assert.Equal(t, QueryStat{Query: "повільний", Count: 3, AverageTime: 150 * time.Millisecond}, in.SlowQueries[0])

	require.Len(t, in.ZeroResultQueries, 2)
	assert.Equal(t, "нічого", in.ZeroResultQueries[0].Query)
	assert.Equal(t, 2, in.ZeroResultQueries[0].Count)

	assert.Equal(t, []CategoryStat{{Category: "Казки", Count: 2}, {Category: "Навчання", Count: 1}}, in.PopularCategories)
	assert.InDelta(t, 0.75, in.ModeSuccessRate[core.ModeRemote], 1e-9)
	assert.InDelta(t, 0.5, in.ModeSuccessRate[core.ModeLocal], 1e-9)
}

func TestPersonalizedSuggestions(t *testing.T) {
	clk := newClock()
	other := []core.SearchEvent{
		{ID: "o1", Query: "казки народів", Timestamp: clk.now, SessionID: "other"},
		{ID: "o2", Query: "казки народів", Timestamp: clk.now, SessionID: "other"},
		{ID: "o3", Query: "казки братів грімм", Timestamp: clk.now, SessionID: "other"},
		{ID: "o4", Query: "математика", Timestamp: clk.now, SessionID: "other"},
	}
	e, err := New(context.Background(), memory.NewEventLog(other...), WithClock(clk.Now), WithSessionID("me"))
	require.NoError(t, err)

	ctx := context.Background()
	e.TrackSearch(ctx, "казки про тварин", 1, 0, core.ModeLocal, core.Filters{}, "")
	e.TrackSearch(ctx, "Казки на ніч", 1, 0, core.ModeLocal, core.Filters{}, "")

	got := e.PersonalizedSuggestions("каз", 0)
	assert.Equal(t, []string{"казки на ніч", "казки про тварин", "казки народів", "казки братів грімм"}, got)

	assert.Equal(t, []string{"казки на ніч"}, e.PersonalizedSuggestions("КАЗ", 1))
	assert.Empty(t, e.PersonalizedSuggestions("  ", 5))
	assert.Empty(t, e.PersonalizedSuggestions("математика", 5), "the query itself is not suggested")
}

func TestExportAndClear(t *testing.T) {
	e, log, _ := newEngine(t)
	ctx := context.Background()

	e.TrackSearch(ctx, "пригоди", 1, time.Millisecond, core.ModeLocal, core.Filters{}, "")

	data, err := e.Export()
	require.NoError(t, err)

	var decoded struct {
		SessionID string             `json:"sessionId"`
		Events    []core.SearchEvent `json:"events"`
		Analytics Report             `json:"analytics"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, "me", decoded.SessionID)
	assert.Len(t, decoded.Events, 1)
	assert.Equal(t, 1, decoded.Analytics.TotalSearches)

	e.Clear(ctx)
	assert.Zero(t, e.Len())
	persisted, _ := log.Load(ctx)
	assert.Empty(t, persisted)

	data, err = e.Export()
	require.NoError(t, err)
	assert.Contains(t, data, `"events": []`)
}
