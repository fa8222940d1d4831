package index

import "time"

// Stats describes the size of the index. MemoryBytes is a rough estimate
// from string lengths and entry counts, not a measurement.
type Stats struct {
	Documents      int
	Terms          int
	AvgTermsPerDoc float64
	Categories     int
	Authors        int
	MemoryBytes    int64
	LastBuild      time.Time
}

const (
	mapEntryOverhead = 48
	postingOverhead  = 16
	float64Size      = 8
)

// Stats returns a snapshot of index statistics.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	s := Stats{
		Documents:  len(ix.docs),
		Terms:      len(ix.postings),
		Categories: len(ix.byCategory),
		Authors:    len(ix.byAuthor),
		LastBuild:  ix.lastBuild,
	}

	var totalTerms int
	var bytes int64
	for id, doc := range ix.docs {
		totalTerms += len(doc.Terms)
		bytes += int64(len(id) + len(doc.Content) + mapEntryOverhead)
		for _, t := range doc.Terms {
			bytes += int64(len(t) + float64Size)
		}
	}
	for term, set := range ix.postings {
		bytes += int64(len(term) + mapEntryOverhead + len(set)*postingOverhead)
	}

	if s.Documents > 0 {
		s.AvgTermsPerDoc = float64(totalTerms) / float64(s.Documents)
	}
	s.MemoryBytes = bytes
	return s
}
