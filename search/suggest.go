package search

import (
	"context"
	"strings"

	"github.com/poiesic/bookshelf/core"
)

// Suggestions completes a partial query. Sources are tried in order: the
// session's analytics history, the local vocabulary, then the remote
// service. Results are de-duplicated case-insensitively. Remote failures
// are logged and ignored.
func (s *Searcher) Suggestions(ctx context.Context, partial string, maxSuggestions int) []string {
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return []string{}
	}

	out := make([]string, 0, maxSuggestions)
	seen := make(map[string]bool)
	add := func(candidates []string) {
		for _, c := range candidates {
			if len(out) == maxSuggestions {
				return
			}
			k := strings.ToLower(c)
			if c == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, c)
		}
	}

	if s.analytics != nil {
		add(s.analytics.PersonalizedSuggestions(partial, maxSuggestions))
	}
	add(s.fuzzy.Suggestions(partial, maxSuggestions))

	if len(out) < maxSuggestions && s.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
		defer cancel()
		remote, err := callRemote(rctx, s, "get_search_suggestions", func(ctx context.Context) ([]core.Suggestion, error) {
			return s.remote.SearchSuggestions(ctx, partial, maxSuggestions)
		})
		if err != nil {
			s.logger.Debug("remote suggestions unavailable", "partial", partial, "err", err)
		}
		add(suggestionTexts(remote))
	}

	return out
}

func suggestionTexts(suggestions []core.Suggestion) []string {
	texts := make([]string, len(suggestions))
	for i, sg := range suggestions {
		texts[i] = sg.Text
	}
	return texts
}

// Recommendations returns up to maxRecommendations books similar to book.
func (s *Searcher) Recommendations(book core.Book, maxRecommendations int) []core.Book {
	results := s.semantic.Recommendations(book, maxRecommendations)
	books := make([]core.Book, len(results))
	for i, r := range results {
		books[i] = r.Item
	}
	return books
}
