package core

import (
	"strconv"
	"strings"
	"time"
)

// Mode selects where a search is executed.
type Mode string

const (
	// ModeLocal searches only the in-process engines.
	ModeLocal Mode = "local"
	// ModeRemote searches only the remote full-text service.
	ModeRemote Mode = "remote"
	// ModeHybrid tries the remote service first and falls back to local search.
	ModeHybrid Mode = "hybrid"
)

// Algorithm selects which local engines run in local mode.
type Algorithm string

const (
	AlgorithmFuzzy    Algorithm = "fuzzy"
	AlgorithmSemantic Algorithm = "semantic"
	AlgorithmHybrid   Algorithm = "hybrid"
)

// Source reports which backend produced a response.
type Source string

const (
	SourceLocalFuzzy    Source = "local-fuzzy"
	SourceLocalSemantic Source = "local-semantic"
	SourceLocalHybrid   Source = "local-hybrid"
	SourceRemote        Source = "remote"
)

// Availability filters books by whether they can be rented right now.
type Availability int

const (
	// AvailabilityAny disables the availability filter.
	AvailabilityAny Availability = iota
	// AvailabilityAvailable keeps only available books.
	AvailabilityAvailable
	// AvailabilityUnavailable keeps only books that are currently rented out.
	AvailabilityUnavailable
)

// String returns the canonical name of the availability value.
func (a Availability) String() string {
	switch a {
	case AvailabilityAny:
		return "any"
	case AvailabilityAvailable:
		return "available"
	case AvailabilityUnavailable:
		return "unavailable"
	default:
		return "unknown(" + strconv.Itoa(int(a)) + ")"
	}
}

// Filters narrows a search. The zero value matches every book.
type Filters struct {
	Category     string       `json:"category,omitempty"`
	Author       string       `json:"author,omitempty"`
	Availability Availability `json:"availability,omitempty"`
	MinRating    float64      `json:"minRating,omitempty"`
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// Matches reports whether the book satisfies every set filter.
// Category and author comparisons are case-insensitive.
func (f Filters) Matches(b Book) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, b.Category) {
		return false
	}
	if f.Author != "" && !strings.EqualFold(f.Author, b.Author) {
		return false
	}
	switch f.Availability {
	case AvailabilityAvailable:
		if !b.Available {
			return false
		}
	case AvailabilityUnavailable:
		if b.Available {
			return false
		}
	}
	if f.MinRating > 0 && b.Rating < f.MinRating {
		return false
	}
	return true
}

// Labels flattens the set filters into "kind:value" labels for analytics.
func (f Filters) Labels() []string {
	var labels []string
	if f.Category != "" {
		labels = append(labels, "category:"+f.Category)
	}
	if f.Author != "" {
		labels = append(labels, "author:"+f.Author)
	}
	if f.Availability != AvailabilityAny {
		labels = append(labels, "availability:"+f.Availability.String())
	}
	if f.MinRating > 0 {
		labels = append(labels, "minRating:"+strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	}
	return labels
}

// SearchResponse is what the search surface returns to its callers.
// A failed search looks like an empty one, optionally flagged FallbackUsed.
type SearchResponse struct {
	Books           []Book             `json:"books"`
	Source          Source             `json:"source"`
	TotalResults    int                `json:"totalResults"`
	SearchTime      time.Duration      `json:"searchTime"`
	CacheHit        bool               `json:"cacheHit,omitempty"`
	FallbackUsed    bool               `json:"fallbackUsed,omitempty"`
	RelevanceScores map[string]float64 `json:"relevanceScores,omitempty"`
	CorrectedQuery  string             `json:"correctedQuery,omitempty"`
	// EventID identifies the analytics event recorded for this search.
	EventID string `json:"eventId,omitempty"`
}
