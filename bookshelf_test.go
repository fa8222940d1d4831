package bookshelf

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/bookshelf/ai/mock"
	"github.com/poiesic/bookshelf/analytics"
	"github.com/poiesic/bookshelf/config"
	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/search"
	"github.com/poiesic/bookshelf/search/index"
	"github.com/poiesic/bookshelf/storage"
	"github.com/poiesic/bookshelf/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBooks() []core.Book {
	return []core.Book{
		{ID: "1", Title: "Пригоди в лісі", Author: "Іваненко", Category: "Казки", Rating: 4.5, Available: true,
			Description: "<p>Казка про <b>лісових</b> звірів</p>"},
		{ID: "2", Title: "Математика для дітей", Author: "Петренко", Category: "Навчання", Rating: 4, Available: true,
			Description: "Задачі та рівняння для школярів"},
		{ID: "3", Title: "Лісові казки", Author: "Коваль", Category: "Казки", Rating: 3.5,
			Description: "Казки про звірів у лісі"},
	}
}

func writeCatalog(t *testing.T, books []core.Book) string {
	t.Helper()
	data, err := json.Marshal(memory.Catalog{Books: books})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Catalog.File = writeCatalog(t, testBooks())
	cfg.Storage.Path = filepath.Join(t.TempDir(), "data")
	return &cfg
}

func openCatalog(t *testing.T, cfg *config.Config, opts ...Option) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func ids(books []core.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("file catalog with badger storage", func(t *testing.T) {
		c, err := Open(ctx, testConfig(t))
		require.NoError(t, err)
		require.NotNil(t, c)

		assert.NotNil(t, c.backend)
		assert.Nil(t, c.pg)
		assert.Nil(t, c.provider)
		assert.Equal(t, 3, c.IndexStats().Documents)
		assert.NoError(t, c.Close())
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := Open(ctx, nil)
		assert.Equal(t, ErrConfigRequired, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Search.Mode = "supabase"
		_, err := Open(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "search.mode")
	})

	t.Run("missing catalog file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Catalog.File = filepath.Join(t.TempDir(), "absent.json")
		_, err := Open(ctx, cfg)
		assert.Error(t, err)

		// The storage directory was released and can be reopened.
		cfg.Catalog.File = writeCatalog(t, testBooks())
		c := openCatalog(t, cfg)
		assert.Equal(t, 3, c.IndexStats().Documents)
	})

	t.Run("storage path is a file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Path = filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(cfg.Storage.Path, []byte("test"), 0o644))

		c, err := Open(ctx, cfg)
		assert.Error(t, err)
		assert.Nil(t, c)
	})

	t.Run("injected source skips catalog settings", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Storage.Backend = "memory"
		c := openCatalog(t, &cfg, WithBookSource(memory.NewSource(testBooks(), nil)))
		assert.Nil(t, c.backend)
		assert.Equal(t, 3, c.IndexStats().Documents)
	})
}

func TestCatalog_Search(t *testing.T) {
	c := openCatalog(t, testConfig(t))
	ctx := context.Background()

	resp, err := c.Search(ctx, "пригода", core.Filters{}, search.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Books)
	assert.Equal(t, "1", resp.Books[0].ID)
	assert.Equal(t, core.SourceLocalHybrid, resp.Source)
	assert.Equal(t, "пригоди", resp.CorrectedQuery)
	assert.NotEmpty(t, resp.EventID)
	assert.Equal(t, "Казка про лісових звірів", resp.Books[0].Description, "catalog HTML is stripped on load")

	again, err := c.Search(ctx, "пригода", core.Filters{}, search.Options{})
	require.NoError(t, err)
	assert.True(t, again.CacheHit)

	filtered, err := c.Search(ctx, "казки", core.Filters{Availability: core.AvailabilityUnavailable}, search.Options{Algorithm: core.AlgorithmFuzzy})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ids(filtered.Books))

	hits := c.SearchIndex("лісові казки", core.Filters{}, index.SearchOptions{})
	require.NotEmpty(t, hits)
	assert.Equal(t, "3", hits[0].Book.ID)

	assert.True(t, c.TrackInteraction(ctx, resp.EventID, analytics.InteractionUpdate{ClickedItemID: &resp.Books[0].ID}))
	report := c.Analytics().Analytics()
	assert.Equal(t, 3, report.TotalSearches)
}

func TestCatalog_SuggestionsAndRecommendations(t *testing.T) {
	c := openCatalog(t, testConfig(t))
	ctx := context.Background()

	assert.Contains(t, c.Suggestions(ctx, "приг", 5), "пригоди")

	recs, err := c.Recommendations(ctx, "1", 5)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, "3", recs[0].ID)

	_, err = c.Recommendations(ctx, "missing", 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	categories, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2)
}

func TestCatalog_AnalyticsPersistAcrossReopen(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, err := Open(ctx, cfg)
	require.NoError(t, err)
	_, err = c.Search(ctx, "математика", core.Filters{}, search.Options{})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened := openCatalog(t, cfg)
	events := reopened.Analytics().Events()
	require.Len(t, events, 1)
	assert.Equal(t, "математика", events[0].Query)
}

func TestCatalog_RemoteMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Backend = "memory"
	cfg.Search.Mode = "hybrid"

	books := testBooks()
	c := openCatalog(t, &cfg,
		WithBookSource(memory.NewSource(books, nil)),
		WithRemote(memory.NewSource(books[:1], nil)),
	)

	resp, err := c.Search(context.Background(), "пригоди", core.Filters{}, search.Options{})
	require.NoError(t, err)
	assert.Equal(t, core.SourceRemote, resp.Source)
	assert.Equal(t, []string{"1"}, ids(resp.Books))

	resp, err = c.Search(context.Background(), "математика", core.Filters{}, search.Options{})
	require.NoError(t, err)
	assert.Equal(t, core.SourceLocalHybrid, resp.Source, "empty remote answer falls back to local")
	assert.False(t, resp.FallbackUsed)
	assert.Contains(t, ids(resp.Books), "2")
}

func TestCatalog_CatalogChanges(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Backend = "memory"
	source := memory.NewSource(testBooks(), nil)
	c := openCatalog(t, &cfg, WithBookSource(source))
	ctx := context.Background()

	before, err := c.Search(ctx, "космічні", core.Filters{}, search.Options{Algorithm: core.AlgorithmFuzzy})
	require.NoError(t, err)
	assert.Empty(t, before.Books)

	source.Put(core.Book{ID: "4", Title: "Космічні пригоди", Category: "Фантастика"})
	require.NoError(t, c.UpsertBook(ctx, "4"))

	after, err := c.Search(ctx, "космічні", core.Filters{}, search.Options{Algorithm: core.AlgorithmFuzzy})
	require.NoError(t, err)
	assert.False(t, after.CacheHit, "catalog changes invalidate cached responses")
	assert.Equal(t, []string{"4"}, ids(after.Books))

	removed, err := c.RemoveBook(ctx, "4")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 3, c.IndexStats().Documents)

	source.Delete("3")
	n, err := c.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.IndexStats().Documents)
}

func TestCatalog_Embeddings(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Backend = "memory"
	cfg.Embedding.Enabled = true
	provider := mock.NewMockProvider()

	c := openCatalog(t, &cfg, WithBookSource(memory.NewSource(testBooks(), nil)), WithProvider(provider))
	assert.Same(t, provider, c.provider)
	assert.Positive(t, provider.MockEmbedder().CallCount(), "sync embeds the corpus")

	require.NoError(t, c.Embed(context.Background()))
	require.NoError(t, c.Close())
	assert.True(t, provider.Closed())
}
