package index

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/bookshelf/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func catalog() []core.Book {
	return []core.Book{
		{ID: "1", Title: "Пригоди в лісі", Author: "Іваненко", Category: "Казки", Rating: 4.5, Available: true},
		{ID: "2", Title: "Математика для дітей", Author: "Петренко", Category: "Навчання", Rating: 3},
		{ID: "3", Title: "Лісові пригоди друзів", Author: "Іваненко", Category: "Казки", Description: "Нові пригоди", Rating: 5, Available: true},
	}
}

func newIndex(t *testing.T, books []core.Book, opts ...Option) *Index {
	t.Helper()
	ix, err := New(append([]Option{WithBatchSize(2), WithPoolSize(2)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(ix.Release)

	built, err := ix.BuildIndex(context.Background(), books, true)
	require.NoError(t, err)
	require.True(t, built)
	return ix
}

func resultIDs(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Book.ID
	}
	return out
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = New(WithMinTermFrequency(1.5))
	assert.ErrorIs(t, err, ErrInvalidMinTermFrequency)
}

func TestBuildIndex_RebuildInterval(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	ix := newIndex(t, catalog(), WithClock(clock.Now), WithRebuildInterval(time.Hour))
	ctx := context.Background()

	built, err := ix.BuildIndex(ctx, catalog()[:1], false)
	require.NoError(t, err)
	assert.False(t, built, "fresh index should not rebuild")
	assert.Equal(t, 3, ix.Len())

	built, err = ix.BuildIndex(ctx, catalog()[:1], true)
	require.NoError(t, err)
	assert.True(t, built, "forced rebuild")
	assert.Equal(t, 1, ix.Len())

	clock.Advance(2 * time.Hour)
	built, err = ix.BuildIndex(ctx, catalog(), false)
	require.NoError(t, err)
	assert.True(t, built, "stale index rebuilds")
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, clock.Now(), ix.Stats().LastBuild)
}

func TestBuildIndex_Cancelled(t *testing.T) {
	ix := newIndex(t, catalog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	built, err := ix.BuildIndex(ctx, catalog()[:1], true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, built)
	assert.Equal(t, 3, ix.Len(), "previous index is untouched")
}

func TestBuildIndex_LargeCorpus(t *testing.T) {
	books := make([]core.Book, 0, 250)
	for i := range 250 {
		books = append(books, core.Book{ID: "b" + strconv.Itoa(i), Title: "спільна назва"})
	}
	ix := newIndex(t, books, WithBatchSize(7))

	assert.Equal(t, 250, ix.Len())
	assert.Equal(t, 250, ix.DocumentFrequency("спільна"))
}

func TestSearchIndex_IntersectionAndUnion(t *testing.T) {
	ix := newIndex(t, catalog())

	assert.Empty(t, ix.SearchIndex("пригоди математика", core.Filters{}, SearchOptions{}))

	union := ix.SearchIndex("пригоди математика", core.Filters{}, SearchOptions{DisableIntersection: true})
	assert.ElementsMatch(t, []string{"1", "2", "3"}, resultIDs(union))

	both := ix.SearchIndex("пригоди іваненко", core.Filters{}, SearchOptions{})
	assert.ElementsMatch(t, []string{"1", "3"}, resultIDs(both))
}

func TestSearchIndex_EmptyQuery(t *testing.T) {
	ix := newIndex(t, catalog())

	assert.Empty(t, ix.SearchIndex("", core.Filters{}, SearchOptions{}))
	assert.Empty(t, ix.SearchIndex("в і до", core.Filters{}, SearchOptions{}), "short tokens are not indexed")
}

func TestSearchIndex_Filters(t *testing.T) {
	ix := newIndex(t, catalog())

	tests := []struct {
		name    string
		query   string
		filters core.Filters
		want    []string
	}{
		{name: "category case-insensitive", query: "пригоди", filters: core.Filters{Category: "казки"}, want: []string{"1", "3"}},
		{name: "category excludes", query: "пригоди", filters: core.Filters{Category: "Навчання"}, want: []string{}},
		{name: "author", query: "математика", filters: core.Filters{Author: "ПЕТРЕНКО"}, want: []string{"2"}},
		{name: "min rating", query: "пригоди", filters: core.Filters{MinRating: 4.8}, want: []string{"3"}},
		{name: "unavailable", query: "дітей", filters: core.Filters{Availability: core.AvailabilityUnavailable}, want: []string{"2"}},
		{name: "available", query: "дітей", filters: core.Filters{Availability: core.AvailabilityAvailable}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.SearchIndex(tt.query, tt.filters, SearchOptions{})
			assert.ElementsMatch(t, tt.want, resultIDs(got))
		})
	}
}

func TestSearchIndex_PhraseBoosts(t *testing.T) {
	ix := newIndex(t, []core.Book{
		{ID: "verbatim", Title: "red apple pie"},
		{ID: "scattered", Title: "pie apple red"},
		{ID: "contiguous", Title: "Red, apple pie"},
	})

	results := ix.SearchIndex("red apple", core.Filters{}, SearchOptions{})
	require.Equal(t, []string{"verbatim", "contiguous", "scattered"}, resultIDs(results))

	base := 2.0 / 3.0
	assert.InDelta(t, base*1.5*1.2, results[0].Score, 1e-9)
	assert.InDelta(t, base*1.2, results[1].Score, 1e-9)
	assert.InDelta(t, base, results[2].Score, 1e-9)
	assert.Equal(t, []string{"red", "apple"}, results[0].MatchedTerms)
}

func TestSearchIndex_RatingAndAvailabilityBoosts(t *testing.T) {
	ix := newIndex(t, []core.Book{
		{ID: "top", Title: "owl tales", Rating: 5},
		{ID: "mid", Title: "owl tales", Rating: 2},
		{ID: "available", Title: "owl tales", Available: true},
	})

	results := ix.SearchIndex("owl", core.Filters{}, SearchOptions{})
	require.Equal(t, []string{"top", "mid", "available"}, resultIDs(results))

	base := 0.5 * 1.5
	assert.InDelta(t, base+0.1, results[0].Score, 1e-9)
	assert.InDelta(t, base+0.04, results[1].Score, 1e-9)
	assert.InDelta(t, base*1.05, results[2].Score, 1e-9)
}

func TestSearchIndex_SingleDocumentScores(t *testing.T) {
	ix := newIndex(t, []core.Book{{ID: "only", Title: "Казки"}})

	results := ix.SearchIndex("казки", core.Filters{}, SearchOptions{})
	require.Len(t, results, 1)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchIndex_ThresholdAndCap(t *testing.T) {
	ix := newIndex(t, []core.Book{
		{ID: "a", Title: "owl tales"},
		{ID: "b", Title: "owl tales"},
		{ID: "c", Title: "owl tales"},
	})

	all := ix.SearchIndex("owl", core.Filters{}, SearchOptions{})
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, resultIDs(all), "ties keep indexing order")

	at := ix.SearchIndex("owl", core.Filters{}, SearchOptions{ScoreThreshold: all[0].Score})
	assert.Len(t, at, 3)

	capped := ix.SearchIndex("owl", core.Filters{}, SearchOptions{MaxResults: 2})
	assert.Len(t, capped, 2)
}

func assertNoPostingFor(t *testing.T, ix *Index, id string) {
	t.Helper()
	for _, term := range ix.Terms() {
		assert.NotContains(t, ix.Postings(term), id, "term %q", term)
	}
}

func TestRemoveDocument_Consistency(t *testing.T) {
	ix := newIndex(t, catalog())

	doc, ok := ix.Document("1")
	require.True(t, ok)

	before := make(map[string]int, len(doc.Terms))
	for _, term := range doc.Terms {
		before[term] = ix.DocumentFrequency(term)
	}

	assert.True(t, ix.RemoveDocument("1"))
	assert.False(t, ix.RemoveDocument("1"))

	assertNoPostingFor(t, ix, "1")
	for term, df := range before {
		assert.Equal(t, df-1, ix.DocumentFrequency(term), "term %q", term)
		if df == 1 {
			assert.NotContains(t, ix.Terms(), term, "empty posting set should be deleted")
		}
	}
	assert.Equal(t, 2, ix.Len())
}

func TestUpdateDocument(t *testing.T) {
	ix := newIndex(t, catalog())

	err := ix.UpdateDocument(core.Book{ID: "1", Title: "Космічна подорож", Author: "Іваненко", Category: "Фантастика"})
	require.NoError(t, err)

	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, 1, ix.DocumentFrequency("пригоди"))
	assert.Equal(t, 0, ix.DocumentFrequency("лісі"))
	assert.Equal(t, []string{"1"}, ix.Postings("космічна"))
	assert.Equal(t, []string{"3"}, resultIDs(ix.SearchIndex("пригоди", core.Filters{}, SearchOptions{})))
	assert.Equal(t, []string{"1"}, resultIDs(ix.SearchIndex("подорож", core.Filters{Category: "фантастика"}, SearchOptions{})))
	assert.Empty(t, ix.SearchIndex("пригоди", core.Filters{Category: "фантастика"}, SearchOptions{}))

	err = ix.UpdateDocument(core.Book{ID: "", Title: "x"})
	assert.ErrorIs(t, err, core.ErrEmptyID)
}

func TestDocument_SearchVector(t *testing.T) {
	ix := newIndex(t, catalog())

	doc, ok := ix.Document("3")
	require.True(t, ok)
	require.Len(t, doc.SearchVector, len(doc.Terms))

	var sum float64
	for _, v := range doc.SearchVector {
		sum += v * v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, "лісові пригоди друзів іваненко казки нові пригоди", doc.Content)
}

func TestCorpusInterface(t *testing.T) {
	ix := newIndex(t, nil)
	var corpus core.Corpus[core.Book] = ix

	corpus.SetItems(catalog())
	assert.Equal(t, 3, corpus.Len())

	corpus.Upsert(core.Book{ID: "4", Title: "Абетка"})
	assert.Equal(t, 4, corpus.Len())

	corpus.Upsert(core.Book{ID: "bad"})
	assert.Equal(t, 4, corpus.Len(), "invalid books are skipped")

	assert.True(t, corpus.Remove("4"))
	assert.Equal(t, 3, corpus.Len())
}

func TestSuggestions(t *testing.T) {
	ix := newIndex(t, append(catalog(), core.Book{ID: "4", Title: "Казкар"}))

	assert.Equal(t, []string{"казки", "казкар"}, ix.Suggestions("казк", 0), "ranked by document frequency")
	assert.Equal(t, []string{"лісові", "лісі"}, ix.Suggestions("ліс", 5), "ties ordered alphabetically")
	assert.Equal(t, []string{"пригоди"}, ix.Suggestions("игод", 5), "substring matches")
	assert.Equal(t, []string{"казки"}, ix.Suggestions("КАЗК", 1))
	assert.Empty(t, ix.Suggestions("", 5))
	assert.Empty(t, ix.Suggestions("zzz", 5))
}

func TestStats(t *testing.T) {
	ix := newIndex(t, catalog())

	s := ix.Stats()
	assert.Equal(t, 3, s.Documents)
	assert.Equal(t, len(ix.Terms()), s.Terms)
	assert.Equal(t, 2, s.Categories)
	assert.Equal(t, 2, s.Authors)
	assert.Greater(t, s.MemoryBytes, int64(0))
	// 4 + 4 + 6 distinct terms
	assert.InDelta(t, 14.0/3.0, s.AvgTermsPerDoc, 1e-9)
}

func TestOptimize(t *testing.T) {
	t.Run("basic drops empty buckets", func(t *testing.T) {
		ix := newIndex(t, catalog())
		require.True(t, ix.RemoveDocument("2"))
		assert.Equal(t, 2, ix.Stats().Categories, "empty bucket kept until optimized")

		report, err := ix.Optimize(LevelBasic)
		require.NoError(t, err)
		assert.Equal(t, 3, report.EmptyBuckets)
		assert.Zero(t, report.PrunedTerms)
		assert.Equal(t, 1, ix.Stats().Categories)
	})

	t.Run("standard prunes rare terms", func(t *testing.T) {
		ix := newIndex(t, catalog(), WithMinTermFrequency(0.6))
		require.True(t, ix.RemoveDocument("2"))

		report, err := ix.Optimize(LevelStandard)
		require.NoError(t, err)
		assert.Equal(t, 4, report.PrunedTerms)

		assert.Empty(t, ix.SearchIndex("лісі", core.Filters{}, SearchOptions{}))
		doc, ok := ix.Document("1")
		require.True(t, ok)
		assert.Equal(t, []string{"пригоди", "іваненко", "казки"}, doc.Terms)
		assert.Len(t, doc.SearchVector, 3)
		assert.ElementsMatch(t, []string{"1", "3"}, resultIDs(ix.SearchIndex("пригоди", core.Filters{}, SearchOptions{})))
	})

	t.Run("aggressive is standard plus a no-op", func(t *testing.T) {
		ix := newIndex(t, catalog())
		before := ix.Stats().MemoryBytes

		report, err := ix.Optimize(LevelAggressive)
		require.NoError(t, err)
		assert.Equal(t, LevelAggressive, report.Level)
		assert.Equal(t, before, ix.Stats().MemoryBytes)
	})

	t.Run("invalid level", func(t *testing.T) {
		ix := newIndex(t, catalog())
		_, err := ix.Optimize("extreme")
		assert.ErrorIs(t, err, ErrInvalidLevel)
	})
}
