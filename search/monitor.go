package search

import "github.com/poiesic/bookshelf/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, opts Options)
	CacheHit(key string)
	AfterFuzzySearch(ids []string)
	AfterSemanticSearch(ids []string)
	AfterRemoteSearch(ids []string, err error)
	FallbackUsed(reason string)
	Finish(resp *core.SearchResponse)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Options)             {}
func (n *noopMonitor) CacheHit(_ string)                     {}
func (n *noopMonitor) AfterFuzzySearch(_ []string)           {}
func (n *noopMonitor) AfterSemanticSearch(_ []string)        {}
func (n *noopMonitor) AfterRemoteSearch(_ []string, _ error) {}
func (n *noopMonitor) FallbackUsed(_ string)                 {}
func (n *noopMonitor) Finish(_ *core.SearchResponse)         {}
