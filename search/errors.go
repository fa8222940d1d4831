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


package search

import "errors"

var (
	// ErrFuzzyEngineRequired is returned when a fuzzy engine is not provided.
	ErrFuzzyEngineRequired = errors.New("fuzzy engine required")

	// ErrSemanticEngineRequired is returned when a semantic engine is not provided.
	ErrSemanticEngineRequired = errors.New("semantic engine required")

	// ErrRemoteSearch wraps every failure of the remote full-text service.
	// It is the only error Search ever returns.
	ErrRemoteSearch = errors.New("remote search failed")

	// ErrRemoteNotConfigured is returned when a remote search is requested
	// and no remote searcher was configured.
	ErrRemoteNotConfigured = errors.New("remote searcher not configured")

	// ErrInvalidCacheTTL is returned for a non-positive cache TTL.
	ErrInvalidCacheTTL = errors.New("cache TTL must be positive")

	// ErrInvalidRemoteTimeout is returned for a non-positive remote timeout.
	ErrInvalidRemoteTimeout = errors.New("remote timeout must be positive")

	// ErrInvalidMaxResults is returned for a negative result limit.
	ErrInvalidMaxResults = errors.New("max results cannot be negative")
)
