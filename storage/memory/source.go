package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage"
	"github.com/poiesic/bookshelf/textproc"
)

// Catalog is the on-disk JSON layout read by LoadFile.
type Catalog struct {
	Books      []core.Book     `json:"books"`
	Categories []core.Category `json:"categories,omitempty"`
}

// Source is a static catalog held in memory. It serves both as a
// storage.BookSource and as a naive storage.FullTextSearcher.
type Source struct {
	mu         sync.RWMutex
	books      []core.Book
	categories []core.Category
}

var (
	_ storage.BookSource       = (*Source)(nil)
	_ storage.FullTextSearcher = (*Source)(nil)
)

// NewSource creates a source over copies of books and categories. When
// categories is empty they are derived from the books.
func NewSource(books []core.Book, categories []core.Category) *Source {
	return &Source{
		books:      slices.Clone(books),
		categories: slices.Clone(categories),
	}
}

// LoadFile reads a Catalog from a JSON file. Invalid books are rejected.
func LoadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	for i := range catalog.Books {
		catalog.Books[i].Description = textproc.StripHTML(catalog.Books[i].Description)
		if err := core.ValidateBook(&catalog.Books[i]); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}

	return NewSource(catalog.Books, catalog.Categories), nil
}

// Put inserts or replaces a book.
func (s *Source) Put(book core.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(book.ID); i >= 0 {
		s.books[i] = book
		return
	}
	s.books = append(s.books, book)
}

// Delete removes a book and reports whether it existed.
func (s *Source) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.books = slices.Delete(s.books, i, i+1)
	return true
}

func (s *Source) indexOf(id string) int {
	return slices.IndexFunc(s.books, func(b core.Book) bool { return b.ID == id })
}

func (s *Source) FetchBooks(ctx context.Context, filters core.Filters) ([]core.Book, error) {
	if err := core.ValidateFilters(filters); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Book, 0, len(s.books))
	for _, b := range s.books {
		if filters.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Source) FetchBook(ctx context.Context, id string) (core.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.books[i], nil
	}
	return core.Book{}, fmt.Errorf("book %q: %w", id, storage.ErrNotFound)
}

func (s *Source) FetchCategories(ctx context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := slices.Clone(s.categories)
	if len(categories) == 0 {
		seen := make(map[string]bool)
		for _, b := range s.books {
			if b.Category != "" && !seen[b.Category] {
				seen[b.Category] = true
				categories = append(categories, core.Category{ID: b.Category, Name: b.Category})
			}
		}
	}

	slices.SortFunc(categories, func(a, b core.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories, nil
}

// SearchBooks returns books containing every query token, best rated first.
func (s *Source) SearchBooks(ctx context.Context, query string, limit int) ([]core.Book, error) {
	tokens := textproc.Tokenize(query)
	if len(tokens) == 0 {
		return []core.Book{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Book
	for _, b := range s.books {
		content := textproc.Normalize(b.SearchFields().Content())
		if containsAll(content, tokens) {
			out = append(out, b)
		}
	}

	slices.SortStableFunc(out, func(a, b core.Book) int {
		switch {
		case a.Rating > b.Rating:
			return -1
		case a.Rating < b.Rating:
			return 1
		}
		return 0
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []core.Book{}
	}
	return out, nil
}

// SearchSuggestions mirrors get_search_suggestions: titles starting with
// partial, then authors starting with it, then titles containing it. Each
// text appears once, under its best type, counting the books behind it.
func (s *Source) SearchSuggestions(ctx context.Context, partial string, limit int) ([]core.Suggestion, error) {
	needle := textproc.Normalize(partial)
	if needle == "" {
		return []core.Suggestion{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rank := map[string]int{
		core.SuggestionTitle:   0,
		core.SuggestionAuthor:  1,
		core.SuggestionPartial: 2,
	}
	var out []core.Suggestion
	byText := make(map[string]int)
	add := func(text, kind string) {
		key := strings.ToLower(text)
		i, ok := byText[key]
		if !ok {
			byText[key] = len(out)
			out = append(out, core.Suggestion{Text: text, Type: kind, Count: 1})
			return
		}
		switch {
		case rank[kind] < rank[out[i].Type]:
			out[i] = core.Suggestion{Text: out[i].Text, Type: kind, Count: 1}
		case kind == out[i].Type:
			out[i].Count++
		}
	}

	for _, b := range s.books {
		title := textproc.Normalize(b.Title)
		switch {
		case strings.HasPrefix(title, needle):
			add(b.Title, core.SuggestionTitle)
		case strings.Contains(title, needle):
			add(b.Title, core.SuggestionPartial)
		}
		if b.Author != "" && strings.HasPrefix(textproc.Normalize(b.Author), needle) {
			add(b.Author, core.SuggestionAuthor)
		}
	}

	slices.SortStableFunc(out, func(a, b core.Suggestion) int {
		if d := rank[a.Type] - rank[b.Type]; d != 0 {
			return d
		}
		return b.Count - a.Count
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []core.Suggestion{}
	}
	return out, nil
}

func containsAll(content string, tokens []string) bool {
	words := strings.Fields(content)
	for _, t := range tokens {
		if !slices.Contains(words, t) {
			return false
		}
	}
	return true
}
