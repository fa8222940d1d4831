// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package search provides the integrated book search surface.
//
// The Searcher routes each request to the local engines (fuzzy, semantic or
// both), to a remote full-text service, or to the remote service with a local
// fallback. Responses are cached for a few minutes, filtered post-hoc when they
// come from a local engine, and recorded in the analytics log.
//
// Search never fails on its own account: internal errors and panics turn into
// an empty response flagged FallbackUsed. The one exception is an explicit
// remote search with the fallback disabled, which returns ErrRemoteSearch.
//
// Example:
//
//	s, err := search.NewSearcher(fuzzyEngine, semanticEngine,
//		search.WithRemote(pg),
//		search.WithCache(cache),
//	)
//	if err != nil {
//		return err
//	}
//	resp, err := s.Search(ctx, "пригоди", core.Filters{Category: "Казки"},
//		search.Options{Mode: core.ModeHybrid})
package search
