package core

import (
	"fmt"
)

// ValidateBook checks the fields the search engines rely on.
func ValidateBook(book *Book) error {
	if book == nil {
		return fmt.Errorf("%w: book is nil", ErrInvalidBook)
	}

	if book.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBook, ErrEmptyID)
	}

	if book.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBook, ErrEmptyTitle)
	}

	if !IsValidRating(book.Rating) {
		return fmt.Errorf("%w: %w", ErrInvalidBook, ErrInvalidRating)
	}

	return nil
}

// ValidateFilters rejects filter values no search backend can honor.
func ValidateFilters(filters Filters) error {
	if err := ValidateAvailability(filters.Availability); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFilters, err)
	}

	if !IsValidRating(filters.MinRating) {
		return fmt.Errorf("%w: %w", ErrInvalidFilters, ErrInvalidRating)
	}

	return nil
}

func ValidateAvailability(a Availability) error {
	if a < AvailabilityAny || a > AvailabilityUnavailable {
		return fmt.Errorf("%w: value %d", ErrInvalidAvailability, a)
	}
	return nil
}

func ValidateMode(mode Mode) error {
	switch mode {
	case ModeLocal, ModeRemote, ModeHybrid:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
}

func ValidateAlgorithm(algorithm Algorithm) error {
	switch algorithm {
	case AlgorithmFuzzy, AlgorithmSemantic, AlgorithmHybrid:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidAlgorithm, algorithm)
}

func IsValidRating(rating float64) bool {
	return rating >= 0 && rating <= 5
}
