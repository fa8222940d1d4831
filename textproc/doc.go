// Package textproc normalizes and tokenizes catalog text.
//
// Every search engine in this module tokenizes through this package so that
// terms line up across the fuzzy engine, the semantic engine and the index.
// Latin and Cyrillic letters, digits and underscores are word characters;
// everything else separates words.
package textproc
