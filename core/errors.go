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


package core

import "errors"

var (
	// ErrInvalidBook indicates a Book failed validation.
	ErrInvalidBook = errors.New("invalid book")

	// ErrInvalidFilters indicates a Filters value failed validation.
	ErrInvalidFilters = errors.New("invalid filters")

	// ErrEmptyID indicates the ID field is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrInvalidRating indicates a rating outside the 0-5 scale.
	ErrInvalidRating = errors.New("rating must be between 0 and 5")

	// ErrInvalidAvailability indicates an unknown Availability value.
	ErrInvalidAvailability = errors.New("invalid availability")

	// ErrInvalidMode indicates an unknown search Mode.
	ErrInvalidMode = errors.New("invalid search mode")

	// ErrInvalidAlgorithm indicates an unknown search Algorithm.
	ErrInvalidAlgorithm = errors.New("invalid search algorithm")
)
