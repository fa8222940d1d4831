// Package semantic implements TF-IDF and concept based search over a small
// in-memory corpus.
//
// Each item is scored as a weighted sum of the cosine similarity between the
// query's and the item's TF-IDF vectors and the Jaccard similarity of their
// concept sets. Concepts come from a ConceptTable, a hand-curated synonym
// table that can be swapped for another one at construction time.
//
// An optional embedding channel adds dense-vector similarity on top when an
// ai.Embedder is configured. It is off by default.
package semantic
