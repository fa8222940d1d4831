// Package ingestion keeps the local search corpora in step with the catalog.
//
// The Pipeline type loads books from a storage.BookSource and applies them to
// every registered corpus (the fuzzy engine, the semantic engine, the index):
//   - Sync replaces the corpora with the full catalog
//   - Upsert and Remove apply a single catalog change
//
// Corpora are updated concurrently on a worker pool, each under its own lock.
// After every change the search response cache is invalidated. Embedding
// failures are logged but do not fail the ingestion operation.
package ingestion
