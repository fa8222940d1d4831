package semantic

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/embedding"
	"github.com/poiesic/bookshelf/textproc"
)

// Result is a scored semantic hit.
type Result[T core.Searchable] struct {
	Item            T
	Score           float64
	RelevantFields  []string
	SemanticMatches []string
	Explanation     string
}

// Engine is a semantic search engine over items of type T.
// It is safe for concurrent use.
type Engine[T core.Searchable] struct {
	mu sync.RWMutex

	items   []T
	vectors []ContentVector
	df      map[string]int

	// embeddings is aligned with items once IndexEmbeddings succeeds.
	embeddings [][]float32
	generation uint64

	concepts        ConceptTable
	batch           *embedding.BatchEmbedder
	embeddingWeight float64
	logger          *slog.Logger
}

var _ core.Corpus[core.Book] = (*Engine[core.Book])(nil)

// New creates an empty engine.
func New[T core.Searchable](opts ...Option) (*Engine[T], error) {
	cfg := config{
		logger:   slog.Default(),
		concepts: DefaultConcepts(),
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	e := &Engine[T]{
		concepts:        cfg.concepts,
		embeddingWeight: cfg.embeddingWeight,
		logger:          cfg.logger,
	}

	if cfg.embedder != nil {
		batch, err := embedding.NewBatchEmbedder(cfg.embedder, cfg.embeddingConfig, embedding.WithLogger(cfg.logger))
		if err != nil {
			return nil, err
		}
		e.batch = batch
	}

	e.rebuild(nil)
	return e, nil
}

// SetItems replaces the corpus and recomputes every content vector.
// Item embeddings are discarded and must be reindexed.
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

// Vector returns the content vector of the item with the given ID.
func (e *Engine[T]) Vector(id string) (ContentVector, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	i := e.indexOf(id)
	if i < 0 {
		return ContentVector{}, false
	}
	return e.vectors[i], true
}

// rebuild must be called with the write lock held.
func (e *Engine[T]) rebuild(items []T) {
	tokens := make([][]string, len(items))
	df := make(map[string]int)

	for i, item := range items {
		tokens[i] = textproc.Tokenize(item.SearchFields().Content())
		seen := make(map[string]bool, len(tokens[i]))
		for _, t := range tokens[i] {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	vectors := make([]ContentVector, len(items))
	for i, item := range items {
		vectors[i] = e.vectorize(item.SearchFields().Content(), tokens[i], df, len(items))
	}

	e.items = items
	e.vectors = vectors
	e.df = df
	e.embeddings = nil
	e.generation++

	e.logger.Debug("semantic vectors rebuilt", "items", len(items), "terms", len(df))
}

func (e *Engine[T]) vectorize(content string, tokens []string, df map[string]int, n int) ContentVector {
	weights, magnitude := weigh(termFrequencies(tokens), df, n)
	return ContentVector{
		TFIDF:            weights,
		Magnitude:        magnitude,
		SemanticKeywords: extractKeywords(content),
		Concepts:         e.concepts.Match(tokens),
	}
}

func (e *Engine[T]) indexOf(id string) int {
	return slices.IndexFunc(e.items, func(it T) bool { return it.SearchFields().ID == id })
}

// Search scores every item against query. It never consults the embedding
// channel; use SearchContext for that.
func (e *Engine[T]) Search(query string, opts Options) []Result[T] {
	return e.search(query, opts, nil)
}

// SearchContext is Search plus the embedding channel when one is configured
// and IndexEmbeddings has run. Embedding failures fall back to Search scoring.
func (e *Engine[T]) SearchContext(ctx context.Context, query string, opts Options) []Result[T] {
	var queryEmbedding []float32
	if e.batch != nil && e.hasEmbeddings() && strings.TrimSpace(query) != "" {
		v, err := e.batch.EmbedOne(ctx, query)
		if err != nil {
			e.logger.Warn("query embedding failed, using lexical scoring only", "err", err)
		} else {
			queryEmbedding = v
		}
	}
	return e.search(query, opts, queryEmbedding)
}

// ExpandedSearch adds the synonyms of every concept a query word belongs to
// before searching.
func (e *Engine[T]) ExpandedSearch(query string, opts Options) []Result[T] {
	tokens := textproc.Tokenize(query)
	if len(tokens) == 0 {
		return []Result[T]{}
	}

	expanded := slices.Clone(tokens)
	for _, t := range tokens {
		for _, syn := range e.concepts.Expand(t) {
			if !slices.Contains(expanded, syn) {
				expanded = append(expanded, syn)
			}
		}
	}

	return e.search(strings.Join(expanded, " "), opts, nil)
}

func (e *Engine[T]) search(query string, opts Options, queryEmbedding []float32) []Result[T] {
	opts = opts.withDefaults()

	tokens := textproc.Tokenize(query)
	if len(tokens) == 0 {
		return []Result[T]{}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.items) == 0 {
		return []Result[T]{}
	}

	q := e.vectorize(query, tokens, e.df, len(e.items))
	useDense := queryEmbedding != nil && len(e.embeddings) == len(e.items)

	results := make([]Result[T], 0)
	for i, item := range e.items {
		cos := Cosine(q, e.vectors[i])
		jac := Jaccard(q.Concepts, e.vectors[i].Concepts)
		score := cos*opts.SemanticWeight + jac*opts.ConceptWeight

		dense := 0.0
		if useDense {
			dense = max(embedding.Cosine(queryEmbedding, e.embeddings[i]), 0)
			score += dense * e.embeddingWeight
		}

		if score < opts.MinRelevance {
			continue
		}

		shared := intersect(q.Concepts, e.vectors[i].Concepts)
		results = append(results, Result[T]{
			Item:            item,
			Score:           score,
			RelevantFields:  relevantFields(item.SearchFields(), tokens),
			SemanticMatches: append(shared, intersect(q.SemanticKeywords, e.vectors[i].SemanticKeywords)...),
			Explanation:     explain(cos, jac, dense, shared),
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

// Recommendations returns up to maxRecommendations items most similar to
// item, excluding item itself. maxRecommendations <= 0 means the default of 5.
func (e *Engine[T]) Recommendations(item T, maxRecommendations int) []Result[T] {
	if maxRecommendations <= 0 {
		maxRecommendations = DefaultMaxRecommendations
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	fields := item.SearchFields()
	var target ContentVector
	if i := e.indexOf(fields.ID); i >= 0 {
		target = e.vectors[i]
	} else {
		target = e.vectorize(fields.Content(), textproc.Tokenize(fields.Content()), e.df, len(e.items))
	}

	results := make([]Result[T], 0)
	for i, other := range e.items {
		if other.SearchFields().ID == fields.ID {
			continue
		}

		cos := Cosine(target, e.vectors[i])
		jac := Jaccard(target.Concepts, e.vectors[i].Concepts)
		score := cos*DefaultSemanticWeight + jac*DefaultConceptWeight
		if score <= recommendationCutoff {
			continue
		}

		shared := intersect(target.Concepts, e.vectors[i].Concepts)
		results = append(results, Result[T]{
			Item:            other,
			Score:           score,
			SemanticMatches: shared,
			Explanation:     explain(cos, jac, 0, shared),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > maxRecommendations {
		results = results[:maxRecommendations]
	}
	return results
}

func relevantFields(f core.Fields, tokens []string) []string {
	candidates := []struct {
		name string
		text string
	}{
		{"title", f.Title},
		{"author", f.Author},
		{"category", f.Category},
		{"description", f.Description},
		{"keywords", strings.Join(f.Keywords, " ")},
	}

	var out []string
	for _, c := range candidates {
		fieldTokens := textproc.Tokenize(c.text)
		for _, t := range tokens {
			if slices.Contains(fieldTokens, t) {
				out = append(out, c.name)
				break
			}
		}
	}
	return out
}

func intersect(a, b []string) []string {
	var out []string
	for _, s := range a {
		if slices.Contains(b, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
