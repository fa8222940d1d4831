package index

import (
	"math"
	"strings"
	"time"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/textproc"
)

// Metadata holds the fields the auxiliary indexes and boosts use.
type Metadata struct {
	Category  string
	Author    string
	Rating    float64
	Available bool
	Tags      []string
}

// Document is the indexed form of one book.
type Document struct {
	ID       string
	Terms    []string // distinct, first-seen order
	Content  string   // lowercased concatenation of the indexed fields
	Metadata Metadata
	// SearchVector is the unit-length term-frequency vector aligned with Terms.
	SearchVector []float64
	LastUpdated  time.Time
	Book         core.Book

	counts     map[string]int
	totalTerms int
	sequence   string // space-delimited token stream for phrase checks
	order      uint64
}

func analyze(book core.Book, now time.Time) *Document {
	content := strings.ToLower(book.SearchFields().Content())
	tokens := textproc.TokenizeMin(content, minTermLength)

	counts := make(map[string]int, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if counts[t] == 0 {
			terms = append(terms, t)
		}
		counts[t]++
	}

	vector := make([]float64, len(terms))
	var sum float64
	for i, t := range terms {
		vector[i] = float64(counts[t])
		sum += vector[i] * vector[i]
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for i := range vector {
			vector[i] /= norm
		}
	}

	return &Document{
		ID:      book.ID,
		Terms:   terms,
		Content: content,
		Metadata: Metadata{
			Category:  book.Category,
			Author:    book.Author,
			Rating:    book.Rating,
			Available: book.Available,
			Tags:      book.Tags,
		},
		SearchVector: vector,
		LastUpdated:  now,
		Book:         book,
		counts:       counts,
		totalTerms:   len(tokens),
		sequence:     " " + strings.Join(tokens, " ") + " ",
	}
}

func (d *Document) tf(term string) float64 {
	if d.totalTerms == 0 {
		return 0
	}
	return float64(d.counts[term]) / float64(d.totalTerms)
}

// ratingBucket rounds a rating to the nearest 0.5.
func ratingBucket(r float64) float64 {
	return math.Round(r*2) / 2
}
