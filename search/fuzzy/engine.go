package fuzzy

import (
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/textproc"
)

// Match types reported in Match.Type.
const (
	MatchExact    = "exact"
	MatchFuzzy    = "fuzzy"
	MatchPhonetic = "phonetic"
)

const (
	exactWeight    = 1.0
	fuzzyWeight    = 0.8
	phoneticWeight = 0.6

	// Length differences above this are never considered for typo correction.
	correctionLengthWindow = 2
	correctionMaxDistance  = 2
)

// Match describes why an item matched a query term.
type Match struct {
	Field string
	Text  string
	Type  string
}

// Result is a scored search hit.
type Result[T core.Searchable] struct {
	Item           T
	Score          float64
	Matches        []Match
	CorrectedQuery string
}

// fieldTokens holds the tokenized indexed fields of one item.
type fieldTokens struct {
	name   string
	terms  []string
	tokens map[string]bool
}

// Engine is a fuzzy search engine over items of type T.
// It is safe for concurrent use.
type Engine[T core.Searchable] struct {
	mu sync.RWMutex

	items  []T
	fields [][]fieldTokens

	inverted   map[string][]int    // term -> item positions
	phonetic   map[string][]int    // soundex code -> item positions
	trigrams   map[string][]string // gram -> vocabulary terms
	vocabulary []string            // first-seen order
	vocabSet   map[string]bool

	logger *slog.Logger
}

var _ core.Corpus[core.Book] = (*Engine[core.Book])(nil)

// New creates an empty engine.
func New[T core.Searchable](opts ...Option) (*Engine[T], error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	e := &Engine[T]{logger: cfg.logger}
	e.rebuild(nil)
	return e, nil
}

// SetItems replaces the corpus and rebuilds every index.
func (e *Engine[T]) SetItems(items []T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rebuild(slices.Clone(items))
}

// Upsert replaces the item with the same ID or appends it, then rebuilds.
func (e *Engine[T]) Upsert(item T) {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := slices.Clone(e.items)
	id := item.SearchFields().ID
	if i := slices.IndexFunc(items, func(it T) bool { return it.SearchFields().ID == id }); i >= 0 {
		items[i] = item
	} else {
		items = append(items, item)
	}
	e.rebuild(items)
}

// Remove drops the item with the given ID and rebuilds.
// It reports whether the item was present.
func (e *Engine[T]) Remove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := slices.IndexFunc(e.items, func(it T) bool { return it.SearchFields().ID == id })
	if i < 0 {
		return false
	}
	e.rebuild(slices.Delete(slices.Clone(e.items), i, i+1))
	return true
}

// Len returns the number of items in the corpus.
func (e *Engine[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// Items returns a copy of the corpus in insertion order.
func (e *Engine[T]) Items() []T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.items)
}

// Vocabulary returns every indexed term in first-seen order.
func (e *Engine[T]) Vocabulary() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.vocabulary)
}

// rebuild must be called with the write lock held.
func (e *Engine[T]) rebuild(items []T) {
	e.items = items
	e.fields = make([][]fieldTokens, len(items))
	e.inverted = make(map[string][]int)
	e.phonetic = make(map[string][]int)
	e.trigrams = make(map[string][]string)
	e.vocabulary = nil
	e.vocabSet = make(map[string]bool)

	for pos, item := range items {
		f := item.SearchFields()
		e.fields[pos] = []fieldTokens{
			tokenSet("title", f.Title),
			tokenSet("author", f.Author),
			tokenSet("category", f.Category),
			tokenSet("description", f.Description),
			tokenSet("keywords", strings.Join(f.Keywords, " ")),
		}

		seen := make(map[string]bool)
		for _, ft := range e.fields[pos] {
			for _, term := range ft.terms {
				if seen[term] {
					continue
				}
				seen[term] = true
				e.addTerm(term, pos)
			}
		}
	}

	e.logger.Debug("fuzzy index rebuilt", "items", len(items), "terms", len(e.vocabulary))
}

func (e *Engine[T]) addTerm(term string, pos int) {
	e.inverted[term] = append(e.inverted[term], pos)

	if code := Soundex(term); code != "" {
		postings := e.phonetic[code]
		if len(postings) == 0 || postings[len(postings)-1] != pos {
			e.phonetic[code] = append(postings, pos)
		}
	}

	if e.vocabSet[term] {
		return
	}
	e.vocabSet[term] = true
	e.vocabulary = append(e.vocabulary, term)
	for _, g := range trigrams(term) {
		e.trigrams[g] = append(e.trigrams[g], term)
	}
}

func tokenSet(name, text string) fieldTokens {
	tokens := textproc.Tokenize(text)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return fieldTokens{name: name, terms: tokens, tokens: set}
}

type termScore struct {
	exact    bool
	fuzzy    float64
	phonetic bool
	matches  []Match
}

// Search scores every item against query and returns the hits at or above
// the threshold, best first. Ties keep corpus order.
func (e *Engine[T]) Search(query string, opts Options) []Result[T] {
	opts = opts.withDefaults()

	terms := textproc.Tokenize(query)
	if len(terms) == 0 {
		return []Result[T]{}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.items) == 0 {
		return []Result[T]{}
	}

	corrected := ""
	if !opts.DisableTypoCorrection {
		fixed, changed := e.correct(terms)
		if changed {
			terms = fixed
			corrected = strings.Join(fixed, " ")
		}
	}

	scores := make([]float64, len(e.items))
	matches := make([][]Match, len(e.items))
	hit := make([]bool, len(e.items))

	for _, term := range terms {
		perItem := e.scoreTerm(term, opts.FuzzyTolerance)
		for pos, ts := range perItem {
			score := 0.0
			if ts.exact {
				score += exactWeight
			}
			nonExact := ts.fuzzy
			if ts.phonetic {
				nonExact += phoneticWeight
			}
			// Non-exact channels stay below an exact hit on the same term.
			score += min(nonExact, fuzzyWeight)

			scores[pos] += score
			matches[pos] = append(matches[pos], ts.matches...)
			hit[pos] = true
		}
	}

	results := make([]Result[T], 0)
	for pos := range e.items {
		if !hit[pos] || scores[pos] < opts.Threshold {
			continue
		}
		results = append(results, Result[T]{
			Item:           e.items[pos],
			Score:          scores[pos],
			Matches:        matches[pos],
			CorrectedQuery: corrected,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}

	return results
}

// scoreTerm must be called with the read lock held.
func (e *Engine[T]) scoreTerm(term string, tolerance int) map[int]*termScore {
	out := make(map[int]*termScore)
	get := func(pos int) *termScore {
		ts, ok := out[pos]
		if !ok {
			ts = &termScore{}
			out[pos] = ts
		}
		return ts
	}

	for _, pos := range e.inverted[term] {
		ts := get(pos)
		ts.exact = true
		ts.matches = append(ts.matches, Match{Field: e.fieldOf(pos, term), Text: term, Type: MatchExact})
	}

	termLen := utf8.RuneCountInString(term)
	for _, candidate := range e.candidates(term) {
		d := Levenshtein(term, candidate)
		if d == 0 || d > tolerance {
			continue
		}
		weight := fuzzyWeight * (1 - float64(d)/float64(max(termLen, 5)))
		for _, pos := range e.inverted[candidate] {
			ts := get(pos)
			if weight > ts.fuzzy {
				ts.fuzzy = weight
			}
			ts.matches = append(ts.matches, Match{Field: e.fieldOf(pos, candidate), Text: candidate, Type: MatchFuzzy})
		}
	}

	if code := Soundex(term); code != "" {
		for _, pos := range e.phonetic[code] {
			if ts, ok := out[pos]; ok && ts.exact {
				continue
			}
			ts := get(pos)
			ts.phonetic = true
			ts.matches = append(ts.matches, Match{Field: "content", Text: term, Type: MatchPhonetic})
		}
	}

	return out
}

// candidates returns vocabulary terms sharing at least one trigram with term,
// in vocabulary order.
func (e *Engine[T]) candidates(term string) []string {
	seen := make(map[string]bool)
	for _, g := range trigrams(term) {
		for _, t := range e.trigrams[g] {
			seen[t] = true
		}
	}

	out := make([]string, 0, len(seen))
	for _, t := range e.vocabulary {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out
}

func (e *Engine[T]) fieldOf(pos int, term string) string {
	for _, ft := range e.fields[pos] {
		if ft.tokens[term] {
			return ft.name
		}
	}
	return "content"
}

// correct replaces query terms missing from the vocabulary with the closest
// vocabulary term of similar length. This is a greedy nearest-neighbour
// correction, not a spell checker.
func (e *Engine[T]) correct(terms []string) ([]string, bool) {
	out := make([]string, len(terms))
	changed := false

	for i, term := range terms {
		out[i] = term
		if e.vocabSet[term] {
			continue
		}

		termLen := utf8.RuneCountInString(term)
		best, bestDist := "", correctionMaxDistance+1
		for _, candidate := range e.vocabulary {
			diff := utf8.RuneCountInString(candidate) - termLen
			if diff < -correctionLengthWindow || diff > correctionLengthWindow {
				continue
			}
			if d := Levenshtein(term, candidate); d < bestDist {
				best, bestDist = candidate, d
			}
		}

		if best != "" {
			out[i] = best
			changed = true
		}
	}

	return out, changed
}

// Suggestions returns vocabulary terms that start with partial, followed by
// terms that merely contain it. maxSuggestions <= 0 means the default of 5.
func (e *Engine[T]) Suggestions(partial string, maxSuggestions int) []string {
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	needle := textproc.Normalize(partial)
	if needle == "" {
		return []string{}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	prefix := make([]string, 0, maxSuggestions)
	var contains []string
	for _, term := range e.vocabulary {
		switch {
		case strings.HasPrefix(term, needle):
			prefix = append(prefix, term)
		case strings.Contains(term, needle):
			contains = append(contains, term)
		}
	}

	out := append(prefix, contains...)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}
