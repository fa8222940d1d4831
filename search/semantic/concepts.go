package semantic

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// ConceptTable maps tokens to concept labels and back to synonyms.
type ConceptTable interface {
	// Match returns the labels of every concept any token belongs to,
	// without duplicates, in a stable order.
	Match(tokens []string) []string
	// Expand returns the synonyms of every concept token belongs to,
	// excluding token itself.
	Expand(token string) []string
}

// Concept is one entry of a Table.
type Concept struct {
	Label string
	Terms []string
}

// Table is a ConceptTable backed by a list of concepts. Tokens are matched
// against terms by shared stem, so inflected forms match their dictionary form.
type Table []Concept

var _ ConceptTable = Table(nil)

// Match implements ConceptTable.
func (t Table) Match(tokens []string) []string {
	var labels []string
	for _, c := range t {
		if slices.ContainsFunc(tokens, c.contains) {
			labels = append(labels, c.Label)
		}
	}
	return labels
}

// Expand implements ConceptTable.
func (t Table) Expand(token string) []string {
	var out []string
	for _, c := range t {
		if !c.contains(token) {
			continue
		}
		for _, term := range c.Terms {
			if term != token && !slices.Contains(out, term) {
				out = append(out, term)
			}
		}
	}
	return out
}

func (c Concept) contains(token string) bool {
	if sameStem(token, c.Label) {
		return true
	}
	for _, term := range c.Terms {
		if sameStem(token, term) {
			return true
		}
	}
	return false
}

// stem drops up to two trailing runes from words longer than four runes.
// It is a crude stand-in for morphology that handles most Ukrainian endings.
func stem(word string) string {
	r := []rune(word)
	if len(r) <= 4 {
		return word
	}
	return string(r[:max(4, len(r)-2)])
}

// sameStem never matches words shorter than three runes unless they are equal.
func sameStem(a, b string) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) < 3 || utf8.RuneCountInString(b) < 3 {
		return false
	}
	return strings.HasPrefix(a, stem(b)) || strings.HasPrefix(b, stem(a))
}

// DefaultConcepts returns the built-in children's literature concept table.
func DefaultConcepts() Table {
	return Table{
		{Label: "пригоди", Terms: []string{"пригода", "пригоди", "подорож", "мандрівка", "експедиція", "скарб", "adventure", "journey"}},
		{Label: "казка", Terms: []string{"казка", "чарівний", "магія", "фея", "дракон", "принцеса", "чаклун", "fairy", "magic"}},
		{Label: "тварини", Terms: []string{"тварина", "звір", "кіт", "собака", "лисиця", "ведмідь", "заєць", "вовк", "animal"}},
		{Label: "природа", Terms: []string{"ліс", "море", "річка", "гори", "поле", "квіти", "nature", "forest"}},
		{Label: "навчання", Terms: []string{"навчання", "школа", "урок", "математика", "абетка", "читання", "рахунок", "school"}},
		{Label: "дружба", Terms: []string{"дружба", "друзі", "товариш", "разом", "friendship", "friends"}},
		{Label: "родина", Terms: []string{"родина", "мама", "тато", "бабуся", "дідусь", "family"}},
		{Label: "фантастика", Terms: []string{"космос", "космічний", "робот", "планета", "ракета", "місяць", "space", "robot"}},
		{Label: "пізнання", Terms: []string{"енциклопедія", "наука", "відкриття", "експеримент", "science"}},
		{Label: "поезія", Terms: []string{"вірші", "поезія", "рима", "колискова", "poems", "poetry"}},
	}
}
