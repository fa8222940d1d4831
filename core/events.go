package core

import "time"

// Interaction records what the user did with a result list.
type Interaction struct {
	Clicked       bool          `json:"clicked"`
	ClickedItemID string        `json:"clickedItemId,omitempty"`
	TimeToClick   time.Duration `json:"timeToClick,omitempty"`
	ScrollDepth   float64       `json:"scrollDepth"`
}

// SearchEvent is one entry of the append-only search log.
// It is mutated at most once more, to attach interaction data.
type SearchEvent struct {
	ID             string        `json:"id"`
	Query          string        `json:"query"`
	Timestamp      time.Time     `json:"timestamp"`
	ResultCount    int           `json:"resultCount"`
	SearchTime     time.Duration `json:"searchTime"`
	Mode           Mode          `json:"searchMode"`
	Filters        Filters       `json:"filters"`
	Interaction    Interaction   `json:"userInteraction"`
	CorrectedQuery string        `json:"correctedQuery,omitempty"`
	SessionID      string        `json:"sessionId"`
}
