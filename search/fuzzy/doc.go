// Package fuzzy implements an in-memory fuzzy search engine for small corpora.
//
// The engine keeps three indexes over the tokenized title, author, category,
// description and keywords of every item:
//   - an inverted index for exact term hits
//   - a Soundex index for sound-alike hits on Latin words
//   - a trigram index over the vocabulary for edit-distance candidates
//
// Any change to the item set rebuilds all three indexes from scratch.
package fuzzy
