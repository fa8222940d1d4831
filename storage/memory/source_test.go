package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage"
)

func testBooks() []core.Book {
	return []core.Book{
		{ID: "1", Title: "Пригоди в лісі", Author: "Іваненко", Category: "Казки", Rating: 4, Available: true},
		{ID: "2", Title: "Математика для дітей", Author: "Петренко", Category: "Навчання", Rating: 3},
		{ID: "3", Title: "Лісові пригоди друзів", Author: "Іваненко", Category: "Казки", Rating: 5, Available: true},
	}
}

func TestSource_FetchBooks(t *testing.T) {
	src := NewSource(testBooks(), nil)
	ctx := context.Background()

	all, err := src.FetchBooks(ctx, core.Filters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tales, err := src.FetchBooks(ctx, core.Filters{Category: "казки", MinRating: 4.5})
	require.NoError(t, err)
	require.Len(t, tales, 1)
	assert.Equal(t, "3", tales[0].ID)

	_, err = src.FetchBooks(ctx, core.Filters{MinRating: 9})
	assert.ErrorIs(t, err, core.ErrInvalidFilters)
}

func TestSource_FetchBook(t *testing.T) {
	src := NewSource(testBooks(), nil)
	ctx := context.Background()

	book, err := src.FetchBook(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Математика для дітей", book.Title)

	_, err = src.FetchBook(ctx, "404")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSource_FetchCategories(t *testing.T) {
	ctx := context.Background()

	derived, err := NewSource(testBooks(), nil).FetchCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Category{{ID: "Казки", Name: "Казки"}, {ID: "Навчання", Name: "Навчання"}}, derived)

	explicit, err := NewSource(testBooks(), []core.Category{{ID: "b", Name: "Б"}, {ID: "a", Name: "А"}}).FetchCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "А", explicit[0].Name)
}

func TestSource_PutDelete(t *testing.T) {
	src := NewSource(testBooks(), nil)
	ctx := context.Background()

	src.Put(core.Book{ID: "2", Title: "Алгебра"})
	src.Put(core.Book{ID: "4", Title: "Абетка"})

	book, err := src.FetchBook(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Алгебра", book.Title)

	assert.True(t, src.Delete("4"))
	assert.False(t, src.Delete("4"))

	all, _ := src.FetchBooks(ctx, core.Filters{})
	assert.Len(t, all, 3)
}

func TestSource_SearchBooks(t *testing.T) {
	src := NewSource(testBooks(), nil)
	ctx := context.Background()

	books, err := src.SearchBooks(ctx, "Пригоди!", 10)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "3", books[0].ID, "best rated first")

	books, err = src.SearchBooks(ctx, "пригоди лісі", 10)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "1", books[0].ID)

	books, err = src.SearchBooks(ctx, "пригоди", 1)
	require.NoError(t, err)
	assert.Len(t, books, 1)

	books, err = src.SearchBooks(ctx, "в", 10)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestSource_SearchSuggestions(t *testing.T) {
	src := NewSource(testBooks(), nil)

	got, err := src.SearchSuggestions(context.Background(), "приг", 5)
	require.NoError(t, err)
	assert.Equal(t, []core.Suggestion{
		{Text: "Пригоди в лісі", Type: core.SuggestionTitle, Count: 1},
		{Text: "Лісові пригоди друзів", Type: core.SuggestionPartial, Count: 1},
	}, got)

	empty, err := src.SearchSuggestions(context.Background(), " ", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSource_SearchSuggestionTypes(t *testing.T) {
	src := NewSource([]core.Book{
		{ID: "1", Title: "Казки", Author: "Коваль"},
		{ID: "2", Title: "Казки", Author: "Петренко"},
		{ID: "3", Title: "Ковалеві історії", Author: "Коваль"},
		{ID: "4", Title: "Народні казки", Author: "Коваль"},
	}, nil)

	got, err := src.SearchSuggestions(context.Background(), "ков", 5)
	require.NoError(t, err)
	assert.Equal(t, []core.Suggestion{
		{Text: "Ковалеві історії", Type: core.SuggestionTitle, Count: 1},
		{Text: "Коваль", Type: core.SuggestionAuthor, Count: 3},
	}, got)

	got, err = src.SearchSuggestions(context.Background(), "казки", 1)
	require.NoError(t, err)
	assert.Equal(t, []core.Suggestion{{Text: "Казки", Type: core.SuggestionTitle, Count: 2}}, got)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "catalog.json")
	data := `{"books":[{"id":"1","title":"Казки","description":"<p>Чарівні <b>історії</b></p>","rating":4}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	src, err := LoadFile(path)
	require.NoError(t, err)

	book, err := src.FetchBook(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Чарівні історії", book.Description)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"books":[{"id":"","title":"x"}]}`), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, core.ErrEmptyID)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
