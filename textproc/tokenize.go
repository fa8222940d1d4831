package textproc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize lowercases text, turns every non-word rune into a separator and
// returns the remaining words with stop words removed.
func Tokenize(text string) []string {
	return TokenizeMin(text, 1)
}

// TokenizeMin is Tokenize with a minimum token length in runes.
// The index uses a minimum of 3.
func TokenizeMin(text string, minLen int) []string {
	words := strings.Fields(Normalize(text))
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		if utf8.RuneCountInString(word) < minLen {
			continue
		}
		if stopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// Normalize lowercases text and replaces punctuation with single spaces.
// It does not drop stop words.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := true
	for _, r := range strings.ToLower(text) {
		if isWordRune(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}

	return strings.TrimRight(b.String(), " ")
}

func isWordRune(r rune) bool {
	switch {
	case r == '_':
		return true
	case r >= '0' && r <= '9':
		return true
	case unicode.Is(unicode.Latin, r), unicode.Is(unicode.Cyrillic, r):
		return true
	}
	return false
}
