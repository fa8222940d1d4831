package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/bookshelf/core"
)

// Report aggregates the whole log.
type Report struct {
	TotalSearches      int               `json:"totalSearches"`
	SuccessfulSearches int               `json:"successfulSearches"`
	AverageSearchTime  time.Duration     `json:"averageSearchTime"`
	PopularQueries     map[string]int    `json:"popularQueries"`
	PopularFilters     map[string]int    `json:"popularFilters"`
	ModeDistribution   map[core.Mode]int `json:"searchModeDistribution"`
	TypoCorrections    map[string]string `json:"typoCorrections"`
	LowPerforming      []string          `json:"lowPerformingQueries"`
	HourlyDistribution [24]int           `json:"hourlyDistribution"`
}

// QueryStat summarizes one normalized query.
type QueryStat struct {
	Query       string        `json:"query"`
	Count       int           `json:"count"`
	AverageTime time.Duration `json:"averageTime"`
}

// CategoryStat counts searches filtered by one category.
type CategoryStat struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Insights point at queries and modes that need attention.
type Insights struct {
	SlowQueries       []QueryStat           `json:"slowQueries"`
	ZeroResultQueries []QueryStat           `json:"zeroResultQueries"`
	PopularCategories []CategoryStat        `json:"popularCategories"`
	ModeSuccessRate   map[core.Mode]float64 `json:"modeSuccessRate"`
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Analytics builds a Report from the current log.
func (e *Engine) Analytics() Report {
	events := e.Events()

	r := Report{
		TotalSearches:    len(events),
		PopularQueries:   make(map[string]int),
		PopularFilters:   make(map[string]int),
		ModeDistribution: make(map[core.Mode]int),
		TypoCorrections:  make(map[string]string),
		LowPerforming:    []string{},
	}

	var total time.Duration
	seenLow := make(map[string]bool)
	for _, ev := range events {
		q := normalizeQuery(ev.Query)

		total += ev.SearchTime
		if ev.ResultCount > 0 {
			r.SuccessfulSearches++
		}
		if q != "" {
			r.PopularQueries[q]++
		}
		for _, label := range ev.Filters.Labels() {
			r.PopularFilters[label]++
		}
		r.ModeDistribution[ev.Mode]++

		if c := normalizeQuery(ev.CorrectedQuery); c != "" && c != q {
			r.TypoCorrections[q] = c
		}

		if q != "" && (ev.ResultCount == 0 || !ev.Interaction.Clicked) && !seenLow[q] && len(r.LowPerforming) < lowPerformingLimit {
			seenLow[q] = true
			r.LowPerforming = append(r.LowPerforming, q)
		}

		r.HourlyDistribution[ev.Timestamp.Hour()]++
	}

	if len(events) > 0 {
		r.AverageSearchTime = total / time.Duration(len(events))
	}
	return r
}

// PerformanceInsights derives slow queries, zero-result queries, the most
// filtered categories and per-mode success rates.
func (e *Engine) PerformanceInsights() Insights {
	events := e.Events()

	type agg struct {
		count, zero int
		total       time.Duration
	}
	queries := make(map[string]*agg)
	categories := make(map[string]int)
	modeTotal := make(map[core.Mode]int)
	modeOK := make(map[core.Mode]int)

	for _, ev := range events {
		modeTotal[ev.Mode]++
		if ev.ResultCount > 0 {
			modeOK[ev.Mode]++
		}
		if ev.Filters.Category != "" {
			categories[ev.Filters.Category]++
		}

		q := normalizeQuery(ev.Query)
		if q == "" {
			continue
		}
		a, ok := queries[q]
		if !ok {
			a = &agg{}
			queries[q] = a
		}
		a.count++
		a.total += ev.SearchTime
		if ev.ResultCount == 0 {
			a.zero++
		}
	}

	in := Insights{
		SlowQueries:       []QueryStat{},
		ZeroResultQueries: []QueryStat{},
		PopularCategories: []CategoryStat{},
		ModeSuccessRate:   make(map[core.Mode]float64, len(modeTotal)),
	}

	for q, a := range queries {
		avg := a.total / time.Duration(a.count)
		if avg > slowQueryThreshold && a.count > slowQueryMinFrequency {
			in.SlowQueries = append(in.SlowQueries, QueryStat{Query: q, Count: a.count, AverageTime: avg})
		}
		if a.zero > 0 {
			in.ZeroResultQueries = append(in.ZeroResultQueries, QueryStat{Query: q, Count: a.zero, AverageTime: avg})
		}
	}
	sort.Slice(in.SlowQueries, func(i, j int) bool {
		a, b := in.SlowQueries[i], in.SlowQueries[j]
		if a.AverageTime != b.AverageTime {
			return a.AverageTime > b.AverageTime
		}
		return a.Query < b.Query
	})
	sort.Slice(in.ZeroResultQueries, func(i, j int) bool {
		a, b := in.ZeroResultQueries[i], in.ZeroResultQueries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Query < b.Query
	})

	for c, n := range categories {
		in.PopularCategories = append(in.PopularCategories, CategoryStat{Category: c, Count: n})
	}
	sort.Slice(in.PopularCategories, func(i, j int) bool {
		a, b := in.PopularCategories[i], in.PopularCategories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	if len(in.PopularCategories) > topCategoriesLimit {
		in.PopularCategories = in.PopularCategories[:topCategoriesLimit]
	}

	for mode, n := range modeTotal {
		in.ModeSuccessRate[mode] = float64(modeOK[mode]) / float64(n)
	}
	return in
}

// PersonalizedSuggestions returns prior queries containing partial: this
// session's own queries first, most recent first, then the most popular
// queries overall. limit <= 0 means DefaultSuggestionLimit.
func (e *Engine) PersonalizedSuggestions(partial string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	needle := normalizeQuery(partial)
	if needle == "" {
		return []string{}
	}

	events := e.Events()
	out := make([]string, 0, limit)
	seen := make(map[string]bool)
	add := func(q string) bool {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
		return len(out) >= limit
	}

	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		q := normalizeQuery(ev.Query)
		if ev.SessionID == e.sessionID && q != needle && strings.Contains(q, needle) {
			if add(q) {
				return out
			}
		}
	}

	counts := make(map[string]int)
	for _, ev := range events {
		if q := normalizeQuery(ev.Query); q != needle && strings.Contains(q, needle) {
			counts[q]++
		}
	}
	popular := make([]string, 0, len(counts))
	for q := range counts {
		popular = append(popular, q)
	}
	sort.Slice(popular, func(i, j int) bool {
		if counts[popular[i]] != counts[popular[j]] {
			return counts[popular[i]] > counts[popular[j]]
		}
		return popular[i] < popular[j]
	})
	for _, q := range popular {
		if add(q) {
			break
		}
	}
	return out
}

// Export serializes the log, the report and the insights as indented JSON.
func (e *Engine) Export() (string, error) {
	export := struct {
		ExportedAt time.Time          `json:"exportedAt"`
		SessionID  string             `json:"sessionId"`
		Events     []core.SearchEvent `json:"events"`
		Analytics  Report             `json:"analytics"`
		Insights   Insights           `json:"insights"`
	}{
		ExportedAt: e.now(),
		SessionID:  e.sessionID,
		Events:     e.Events(),
		Analytics:  e.Analytics(),
		Insights:   e.PerformanceInsights(),
	}
	if export.Events == nil {
		export.Events = []core.SearchEvent{}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to export analytics: %w", err)
	}
	return string(data), nil
}
