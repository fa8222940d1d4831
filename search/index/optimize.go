package index

import (
	"fmt"
	"slices"
)

// Level selects how much work Optimize does.
type Level string

const (
	// LevelBasic drops empty auxiliary buckets.
	LevelBasic Level = "basic"
	// LevelStandard also prunes terms rarer than the minimum term frequency.
	LevelStandard Level = "standard"
	// LevelAggressive also runs the compression hook, currently a no-op.
	LevelAggressive Level = "aggressive"
)

// ParseLevel converts a configuration string to a Level.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case LevelBasic, LevelStandard, LevelAggressive:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// OptimizeReport summarizes what Optimize removed.
type OptimizeReport struct {
	Level          Level
	EmptyBuckets   int
	PrunedTerms    int
	CompressedSize int64
}

// Optimize compacts the index in place.
func (ix *Index) Optimize(level Level) (OptimizeReport, error) {
	if _, err := ParseLevel(string(level)); err != nil {
		return OptimizeReport{}, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	report := OptimizeReport{Level: level}
	report.EmptyBuckets = pruneEmpty(ix.byCategory) + pruneEmpty(ix.byAuthor) + pruneEmpty(ix.byRating)

	if level == LevelStandard || level == LevelAggressive {
		report.PrunedTerms = ix.pruneRareTerms()
	}

	if level == LevelAggressive {
		// Compression is an extension point; nothing is compressed yet.
		ix.logger.Info("aggressive optimization requested, compression not implemented")
	}

	ix.logger.Info("index optimized",
		"level", level,
		"emptyBuckets", report.EmptyBuckets,
		"prunedTerms", report.PrunedTerms)
	return report, nil
}

func pruneEmpty[K comparable](m map[K]idSet) int {
	removed := 0
	for k, set := range m {
		if len(set) == 0 {
			delete(m, k)
			removed++
		}
	}
	return removed
}

// pruneRareTerms must be called with the write lock held. Pruned terms are
// removed from the postings, the frequency table and every document.
func (ix *Index) pruneRareTerms() int {
	n := len(ix.docs)
	if n == 0 || ix.minTermFrequency == 0 {
		return 0
	}

	var rare []string
	for term, df := range ix.df {
		if float64(df)/float64(n) < ix.minTermFrequency {
			rare = append(rare, term)
		}
	}

	for _, term := range rare {
		for id := range ix.postings[term] {
			doc := ix.docs[id]
			if i := slices.Index(doc.Terms, term); i >= 0 {
				doc.Terms = slices.Delete(slices.Clone(doc.Terms), i, i+1)
				doc.SearchVector = slices.Delete(slices.Clone(doc.SearchVector), i, i+1)
			}
			delete(doc.counts, term)
		}
		delete(ix.postings, term)
		delete(ix.df, term)
	}
	return len(rare)
}
