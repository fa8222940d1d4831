package postgres

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage"
)

func TestBooksQuery(t *testing.T) {
	tests := []struct {
		name     string
		filters  core.Filters
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filters",
			filters: core.Filters{},
			wantSQL: "SELECT " + bookColumns + " FROM books ORDER BY created_at, id",
		},
		{
			name:     "all filters",
			filters:  core.Filters{Category: "Казки", Author: "Іваненко", Availability: core.AvailabilityUnavailable, MinRating: 4},
			wantSQL:  "SELECT " + bookColumns + " FROM books WHERE lower(category) = lower($1) AND lower(author) = lower($2) AND available = $3 AND rating >= $4 ORDER BY created_at, id",
			wantArgs: []any{"Казки", "Іваненко", false, 4.0},
		},
		{
			name:     "availability only",
			filters:  core.Filters{Availability: core.AvailabilityAvailable},
			wantSQL:  "SELECT " + bookColumns + " FROM books WHERE available = $1 ORDER BY created_at, id",
			wantArgs: []any{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := booksQuery(tt.filters)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

// setupTestDB starts a PostgreSQL container and returns a migrated Source.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Source {
	t.Helper()

	if testing.Short() || os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("skipping PostgreSQL integration tests")
	}

	if !hasContainerRuntime() {
		t.Skip("neither docker nor podman found, skipping integration tests")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := runPostgres(ctx)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	src, err := New(ctx, Config{DSN: connStr, MigrateOnStart: true})
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	return src
}

func hasContainerRuntime() bool {
	for _, bin := range []string{"docker", "podman"} {
		if _, err := exec.LookPath(bin); err == nil {
			return true
		}
	}
	return false
}

// runPostgres starts the container. Provider lookup panics when no runtime
// is reachable; that is reported as an error.
func runPostgres(ctx context.Context) (container *pgmodule.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			container, err = nil, fmt.Errorf("container runtime unavailable: %v", r)
		}
	}()

	return pgmodule.Run(ctx,
		"postgres:16",
		pgmodule.WithDatabase("bookshelf_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
}

func seed(t *testing.T, src *Source) {
	t.Helper()
	ctx := context.Background()

	books := []core.Book{
		{ID: "1", Title: "Пригоди в лісі", Author: "Іваненко", Category: "Казки", Description: "<p>Казка про лісових звірів</p>", Keywords: []string{"ліс"}, Rating: 4.5, Available: true, Year: 2020},
		{ID: "2", Title: "Математика для дітей", Author: "Петренко", Category: "Навчання", Rating: 3, Extra: map[string]any{"isbn": "123"}},
		{ID: "3", Title: "Лісові пригоди друзів", Author: "Іваненко", Category: "Казки", Rating: 5, Available: true},
	}
	for _, b := range books {
		require.NoError(t, src.UpsertBook(ctx, b))
	}
	require.NoError(t, src.UpsertCategory(ctx, core.Category{ID: "tales", Name: "Казки"}))
	require.NoError(t, src.UpsertCategory(ctx, core.Category{ID: "edu", Name: "Навчання"}))
}

func TestSource_Integration(t *testing.T) {
	src := setupTestDB(t)
	seed(t, src)
	ctx := context.Background()

	t.Run("migrations are idempotent", func(t *testing.T) {
		require.NoError(t, src.Migrate(ctx))
	})

	t.Run("fetch books with filters", func(t *testing.T) {
		all, err := src.FetchBooks(ctx, core.Filters{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		tales, err := src.FetchBooks(ctx, core.Filters{Category: "казки", Availability: core.AvailabilityAvailable, MinRating: 4.6})
		require.NoError(t, err)
		require.Len(t, tales, 1)
		assert.Equal(t, "3", tales[0].ID)
	})

	t.Run("fetch book", func(t *testing.T) {
		book, err := src.FetchBook(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "Казка про лісових звірів", book.Description)
		assert.Equal(t, []string{"ліс"}, book.Keywords)
		assert.Equal(t, 2020, book.Year)

		book, err = src.FetchBook(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, "123", book.Extra["isbn"])

		_, err = src.FetchBook(ctx, "404")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("categories", func(t *testing.T) {
		categories, err := src.FetchCategories(ctx)
		require.NoError(t, err)
		require.Len(t, categories, 2)
		assert.Equal(t, "Казки", categories[0].Name)
	})

	t.Run("search_books", func(t *testing.T) {
		books, err := src.SearchBooks(ctx, "пригоди", 10)
		require.NoError(t, err)
		ids := make([]string, len(books))
		for i, b := range books {
			ids[i] = b.ID
		}
		assert.ElementsMatch(t, []string{"1", "3"}, ids)

		limited, err := src.SearchBooks(ctx, "пригоди", 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("get_search_suggestions", func(t *testing.T) {
		suggestions, err := src.SearchSuggestions(ctx, "При", 5)
		require.NoError(t, err)
		require.NotEmpty(t, suggestions)
		assert.Equal(t, core.Suggestion{Text: "Пригоди в лісі", Type: core.SuggestionTitle, Count: 1}, suggestions[0])
		assert.Contains(t, suggestions, core.Suggestion{Text: "Лісові пригоди друзів", Type: core.SuggestionPartial, Count: 1})

		authors, err := src.SearchSuggestions(ctx, "іван", 5)
		require.NoError(t, err)
		assert.Equal(t, []core.Suggestion{{Text: "Іваненко", Type: core.SuggestionAuthor, Count: 2}}, authors)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, src.DeleteBook(ctx, "2"))
		assert.ErrorIs(t, src.DeleteBook(ctx, "2"), storage.ErrNotFound)
	})

	t.Run("invalid book rejected", func(t *testing.T) {
		assert.ErrorIs(t, src.UpsertBook(ctx, core.Book{ID: "x"}), core.ErrEmptyTitle)
	})
}
