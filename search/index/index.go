package index

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/bookshelf/core"
)

type idSet map[string]struct{}

// Index is an incrementally maintained inverted index over books.
// Writers take the write lock; queries take the read lock.
type Index struct {
	mu sync.RWMutex

	docs     map[string]*Document
	postings map[string]idSet // term -> document IDs
	df       map[string]int

	byCategory map[string]idSet // lowercased category
	byAuthor   map[string]idSet // lowercased author
	byRating   map[float64]idSet

	built     bool
	lastBuild time.Time
	nextOrder uint64

	pool             *ants.Pool
	batchSize        int
	poolSize         int
	rebuildInterval  time.Duration
	minTermFrequency float64
	now              func() time.Time
	logger           *slog.Logger
}

var _ core.Corpus[core.Book] = (*Index)(nil)

// New creates an empty index and its build worker pool.
// Call Release when the index is no longer needed.
func New(opts ...Option) (*Index, error) {
	ix := &Index{
		batchSize:        DefaultBatchSize,
		poolSize:         defaultPoolSize(),
		rebuildInterval:  DefaultRebuildInterval,
		minTermFrequency: DefaultMinTermFrequency,
		now:              time.Now,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(ix.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create build pool: %w", err)
	}
	ix.pool = pool
	ix.reset()

	return ix, nil
}

// Release stops the build worker pool.
func (ix *Index) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}

func (ix *Index) reset() {
	ix.docs = make(map[string]*Document)
	ix.postings = make(map[string]idSet)
	ix.df = make(map[string]int)
	ix.byCategory = make(map[string]idSet)
	ix.byAuthor = make(map[string]idSet)
	ix.byRating = make(map[float64]idSet)
}

// BuildIndex replaces the index with the given books. It is skipped, and
// reports false, when a build exists, force is false and the rebuild interval
// has not elapsed. Documents are tokenized in batches on the worker pool;
// ctx is checked between batches and a cancelled build leaves the previous
// index untouched.
func (ix *Index) BuildIndex(ctx context.Context, books []core.Book, force bool) (bool, error) {
	ix.mu.RLock()
	fresh := ix.built && ix.now().Sub(ix.lastBuild) < ix.rebuildInterval
	ix.mu.RUnlock()

	if fresh && !force {
		ix.logger.Debug("index is fresh, skipping rebuild")
		return false, nil
	}

	start := ix.now()
	analyzed := make([]*Document, len(books))

	var wg sync.WaitGroup
	var submitErr error
	for lo := 0; lo < len(books); lo += ix.batchSize {
		if err := ctx.Err(); err != nil {
			submitErr = err
			break
		}

		hi := min(lo+ix.batchSize, len(books))
		wg.Add(1)
		err := ix.pool.Submit(func() {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				analyzed[i] = analyze(books[i], start)
			}
		})
		if err != nil {
			wg.Done()
			submitErr = fmt.Errorf("failed to submit build batch: %w", err)
			break
		}
	}
	wg.Wait()

	if submitErr != nil {
		ix.logger.Warn("index build aborted", "err", submitErr)
		return false, submitErr
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.reset()
	for _, doc := range analyzed {
		if doc.ID == "" {
			continue
		}
		if _, dup := ix.docs[doc.ID]; dup {
			ix.unwind(doc.ID)
		}
		ix.insert(doc)
	}
	ix.built = true
	ix.lastBuild = ix.now()

	ix.logger.Info("index built",
		"documents", len(ix.docs),
		"terms", len(ix.df),
		"duration", ix.lastBuild.Sub(start))
	return true, nil
}

// UpdateDocument reindexes one book, replacing any previous version.
func (ix *Index) UpdateDocument(book core.Book) error {
	if err := core.ValidateBook(&book); err != nil {
		return err
	}

	doc := analyze(book, ix.now())

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.unwind(book.ID)
	ix.insert(doc)
	return nil
}

// RemoveDocument drops a book and every posting it contributed.
// It reports whether the book was indexed.
func (ix *Index) RemoveDocument(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.unwind(id)
}

// insert must be called with the write lock held.
func (ix *Index) insert(doc *Document) {
	doc.order = ix.nextOrder
	ix.nextOrder++
	ix.docs[doc.ID] = doc

	for _, term := range doc.Terms {
		set, ok := ix.postings[term]
		if !ok {
			set = make(idSet)
			ix.postings[term] = set
		}
		set[doc.ID] = struct{}{}
		ix.df[term]++
	}

	addTo(ix.byCategory, strings.ToLower(doc.Metadata.Category), doc.ID)
	addTo(ix.byAuthor, strings.ToLower(doc.Metadata.Author), doc.ID)
	addTo(ix.byRating, ratingBucket(doc.Metadata.Rating), doc.ID)
}

// unwind must be called with the write lock held. Empty posting sets and
// zero document frequencies are deleted. Auxiliary buckets are left in place
// even when empty; Optimize prunes them.
func (ix *Index) unwind(id string) bool {
	doc, ok := ix.docs[id]
	if !ok {
		return false
	}

	for _, term := range doc.Terms {
		if set, ok := ix.postings[term]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(ix.postings, term)
			}
		}
		if ix.df[term] <= 1 {
			delete(ix.df, term)
		} else {
			ix.df[term]--
		}
	}

	delete(ix.byCategory[strings.ToLower(doc.Metadata.Category)], id)
	delete(ix.byAuthor[strings.ToLower(doc.Metadata.Author)], id)
	delete(ix.byRating[ratingBucket(doc.Metadata.Rating)], id)

	delete(ix.docs, id)
	return true
}

func addTo[K comparable](m map[K]idSet, key K, id string) {
	set, ok := m[key]
	if !ok {
		set = make(idSet)
		m[key] = set
	}
	set[id] = struct{}{}
}

// SetItems implements core.Corpus by forcing a full rebuild.
func (ix *Index) SetItems(books []core.Book) {
	if _, err := ix.BuildIndex(context.Background(), books, true); err != nil {
		ix.logger.Error("index rebuild failed", "err", err)
	}
}

// Upsert implements core.Corpus.
func (ix *Index) Upsert(book core.Book) {
	if err := ix.UpdateDocument(book); err != nil {
		ix.logger.Warn("skipping invalid book", "id", book.ID, "err", err)
	}
}

// Remove implements core.Corpus.
func (ix *Index) Remove(id string) bool {
	return ix.RemoveDocument(id)
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Document returns a copy of the indexed document.
func (ix *Index) Document(id string) (Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, ok := ix.docs[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Postings returns the sorted IDs of documents containing term.
func (ix *Index) Postings(term string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedIDs(ix.postings[term])
}

// DocumentFrequency returns the number of documents containing term.
func (ix *Index) DocumentFrequency(term string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.df[term]
}

// Terms returns every indexed term, sorted.
func (ix *Index) Terms() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	terms := make([]string, 0, len(ix.postings))
	for t := range ix.postings {
		terms = append(terms, t)
	}
	slices.Sort(terms)
	return terms
}

func sortedIDs(set idSet) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
