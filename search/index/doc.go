// Package index implements the catalog-scale inverted index.
//
// Unlike the fuzzy and semantic engines, which rebuild from scratch on every
// change, the index maintains itself incrementally: UpdateDocument unwinds a
// document's postings before reindexing it, and RemoveDocument unwinds them
// without reindexing. Full builds tokenize documents in batches on a worker
// pool and swap the finished structures in under the write lock.
//
// Besides the term postings the index keeps auxiliary indexes by category,
// author and rating (rounded to the nearest 0.5) that narrow candidates
// before scoring.
package index
