package semantic

import (
	"regexp"
	"slices"
	"strings"
)

// Stems of vocabulary typical for children's books. A keyword is any word
// starting with one of them.
var keywordStems = []string{
	"пригод", "подорож", "мандрів", "казк", "чарів", "магі", "дракон", "принц",
	"тварин", "звір", "друж", "друз", "навча", "школ", "наук", "дитя", "діт",
	"родин", "косм", "фантаст", "вірш", "поез",
}

var keywordPatterns = compileKeywordPatterns(keywordStems)

func compileKeywordPatterns(stems []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(stems))
	for i, s := range stems {
		patterns[i] = regexp.MustCompile(`(?:^|[^\p{L}])(` + regexp.QuoteMeta(s) + `\p{L}*)`)
	}
	return patterns
}

// extractKeywords returns the distinct keyword occurrences in text in stem order.
func extractKeywords(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, re := range keywordPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			if !slices.Contains(out, m[1]) {
				out = append(out, m[1])
			}
		}
	}
	return out
}
