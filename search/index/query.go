package index

import (
	"math"
	"sort"
	"strings"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/textproc"
)

const (
	verbatimBoost     = 1.5
	contiguousBoost   = 1.2
	ratingBoostFactor = 0.02
	maxRatingBoost    = 0.1
	availableBoost    = 1.05
)

// Result is a scored index hit.
type Result struct {
	Book         core.Book
	Score        float64
	MatchedTerms []string
}

// SearchIndex answers query against the index. Multi-term queries intersect
// postings unless DisableIntersection is set; single-term queries use the
// term's postings. Filters narrow the candidates before scoring.
func (ix *Index) SearchIndex(query string, filters core.Filters, opts SearchOptions) []Result {
	opts = opts.withDefaults()

	terms := textproc.TokenizeMin(query, minTermLength)
	if len(terms) == 0 {
		return []Result{}
	}
	terms = distinct(terms)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	candidates := ix.candidates(terms, !opts.DisableIntersection && len(terms) > 1)
	candidates = ix.filter(candidates, filters)
	if len(candidates) == 0 {
		return []Result{}
	}

	phrase := strings.ToLower(strings.TrimSpace(query))
	sequence := " " + strings.Join(terms, " ") + " "
	n := float64(len(ix.docs))

	results := make([]Result, 0, len(candidates))
	orders := make(map[string]uint64, len(candidates))
	for id := range candidates {
		doc := ix.docs[id]

		var score float64
		var matched []string
		for _, term := range terms {
			tf := doc.tf(term)
			if tf == 0 {
				continue
			}
			idf := 1 + math.Log(n/float64(ix.df[term]))
			score += tf * idf
			matched = append(matched, term)
		}
		if score == 0 {
			continue
		}

		if phrase != "" && strings.Contains(doc.Content, phrase) {
			score *= verbatimBoost
		}
		if len(terms) > 1 && strings.Contains(doc.sequence, sequence) {
			score *= contiguousBoost
		}
		score += min(doc.Metadata.Rating*ratingBoostFactor, maxRatingBoost)
		if doc.Metadata.Available {
			score *= availableBoost
		}

		if score < opts.ScoreThreshold {
			continue
		}
		results = append(results, Result{Book: doc.Book, Score: score, MatchedTerms: matched})
		orders[id] = doc.order
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return orders[results[i].Book.ID] < orders[results[j].Book.ID]
	})

	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results
}

// candidates must be called with the read lock held.
func (ix *Index) candidates(terms []string, intersect bool) idSet {
	out := make(idSet)

	if !intersect {
		for _, term := range terms {
			for id := range ix.postings[term] {
				out[id] = struct{}{}
			}
		}
		return out
	}

	// Start from the rarest term to keep the working set small.
	rarest := terms[0]
	for _, term := range terms[1:] {
		if len(ix.postings[term]) < len(ix.postings[rarest]) {
			rarest = term
		}
	}

	for id := range ix.postings[rarest] {
		inAll := true
		for _, term := range terms {
			if _, ok := ix.postings[term][id]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out[id] = struct{}{}
		}
	}
	return out
}

// filter must be called with the read lock held.
func (ix *Index) filter(candidates idSet, f core.Filters) idSet {
	if f.IsZero() {
		return candidates
	}

	out := make(idSet, len(candidates))
	for id := range candidates {
		if f.Category != "" {
			if _, ok := ix.byCategory[strings.ToLower(f.Category)][id]; !ok {
				continue
			}
		}
		if f.Author != "" {
			if _, ok := ix.byAuthor[strings.ToLower(f.Author)][id]; !ok {
				continue
			}
		}

		meta := ix.docs[id].Metadata
		switch f.Availability {
		case core.AvailabilityAvailable:
			if !meta.Available {
				continue
			}
		case core.AvailabilityUnavailable:
			if meta.Available {
				continue
			}
		}
		if f.MinRating > 0 && meta.Rating < f.MinRating {
			continue
		}

		out[id] = struct{}{}
	}
	return out
}

// Suggestions returns indexed terms starting with partial, then terms
// containing it, each group ordered by document frequency.
// maxSuggestions <= 0 means the default of 5.
func (ix *Index) Suggestions(partial string, maxSuggestions int) []string {
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	needle := textproc.Normalize(partial)
	if needle == "" {
		return []string{}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var prefix, contains []string
	for term := range ix.postings {
		switch {
		case strings.HasPrefix(term, needle):
			prefix = append(prefix, term)
		case strings.Contains(term, needle):
			contains = append(contains, term)
		}
	}

	byPopularity := func(terms []string) {
		sort.Slice(terms, func(i, j int) bool {
			if ix.df[terms[i]] != ix.df[terms[j]] {
				return ix.df[terms[i]] > ix.df[terms[j]]
			}
			return terms[i] < terms[j]
		})
	}
	byPopularity(prefix)
	byPopularity(contains)

	out := append(prefix, contains...)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func distinct(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
