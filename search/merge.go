package search

import (
	"sort"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/search/fuzzy"
	"github.com/poiesic/bookshelf/search/semantic"
)

const (
	fuzzyWeight    = 0.6
	semanticWeight = 0.4
)

type scoredBook struct {
	book  core.Book
	score float64
}

func fromFuzzy(results []fuzzy.Result[core.Book]) []scoredBook {
	out := make([]scoredBook, len(results))
	for i, r := range results {
		out[i] = scoredBook{book: r.Item, score: r.Score}
	}
	return out
}

func fromSemantic(results []semantic.Result[core.Book]) []scoredBook {
	out := make([]scoredBook, len(results))
	for i, r := range results {
		out[i] = scoredBook{book: r.Item, score: r.Score}
	}
	return out
}

// merge weights fuzzy and semantic scores and averages the weighted scores
// of books found by both. Ties keep first-seen order, fuzzy first.
func merge(fz []fuzzy.Result[core.Book], sm []semantic.Result[core.Book]) []scoredBook {
	type acc struct {
		book  core.Book
		sum   float64
		count int
	}

	byID := make(map[string]*acc, len(fz)+len(sm))
	order := make([]string, 0, len(fz)+len(sm))
	add := func(book core.Book, score float64) {
		a, ok := byID[book.ID]
		if !ok {
			a = &acc{book: book}
			byID[book.ID] = a
			order = append(order, book.ID)
		}
		a.sum += score
		a.count++
	}

	for _, r := range fz {
		add(r.Item, r.Score*fuzzyWeight)
	}
	for _, r := range sm {
		add(r.Item, r.Score*semanticWeight)
	}

	out := make([]scoredBook, 0, len(order))
	for _, id := range order {
		a := byID[id]
		out = append(out, scoredBook{book: a.book, score: a.sum / float64(a.count)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}
