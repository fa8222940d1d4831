package core

import (
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// HashKey returns a deterministic hex fingerprint of text using BLAKE2b-128.
// Equal inputs always produce equal keys.
func HashKey(text string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Fields are the text fields every search engine indexes.
type Fields struct {
	ID          string
	Title       string
	Author      string
	Category    string
	Description string
	Keywords    []string
}

// Content concatenates the indexed fields into one space separated string.
func (f Fields) Content() string {
	parts := make([]string, 0, 4+len(f.Keywords))
	for _, p := range []string{f.Title, f.Author, f.Category, f.Description} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, f.Keywords...)
	return strings.Join(parts, " ")
}

// Searchable is implemented by anything the fuzzy and semantic engines can index.
// Engines only read items; they never mutate them.
type Searchable interface {
	SearchFields() Fields
}

// Book is a catalog entry.
type Book struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Author      string         `json:"author"`
	Category    string         `json:"category"`
	Description string         `json:"description,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Rating      float64        `json:"rating"`
	Available   bool           `json:"available"`
	Year        int            `json:"year,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"` // Passthrough fields not used for search
}

var _ Searchable = Book{}

// SearchFields implements Searchable.
func (b Book) SearchFields() Fields {
	return Fields{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Category:    b.Category,
		Description: b.Description,
		Keywords:    b.Keywords,
	}
}

// Category is a catalog category.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Suggestion types, by how the completion matched the partial query.
const (
	SuggestionTitle   = "title"   // a title starts with it
	SuggestionAuthor  = "author"  // an author name starts with it
	SuggestionPartial = "partial" // a title contains it
)

// Suggestion is a query completion returned by the remote full-text service.
// Count is the number of books behind the completion.
type Suggestion struct {
	Text  string `json:"suggestion"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Corpus is the maintenance surface shared by every search backend.
// Lightweight engines rebuild on each call; the index maintains incrementally.
type Corpus[T any] interface {
	SetItems(items []T)
	Upsert(item T)
	Remove(id string) bool
	Len() int
}
