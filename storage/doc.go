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

// Package storage defines the persistence seams of the catalog.
//
// The search core never talks to a database directly. It depends on four
// small interfaces:
//
//   - BookSource: the authoritative catalog (books and categories)
//   - FullTextSearcher: the remote full-text procedures
//   - Cache: a string-keyed byte cache with per-entry TTL
//   - EventLog: durable storage for the analytics search log
//
// Implementations live in subpackages:
//
//	storage/badger    durable Cache and EventLog on BadgerDB
//	storage/memory    in-process Cache, EventLog and a JSON-file BookSource
//	storage/postgres  BookSource and FullTextSearcher over pgx
//	storage/cached    a BookSource decorator backed by any Cache
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
//
// # Context Support
//
// Every method accepts a context.Context for cancellation and deadlines.
package storage
