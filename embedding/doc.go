// Package embedding turns catalog text into normalized embedding vectors.
//
// It batches requests to an ai.Embedder, retries failed batches with
// exponential backoff, reports progress, and normalizes vectors so they can
// be compared with cosine similarity.
package embedding
