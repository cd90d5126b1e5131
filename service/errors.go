package service

import (
	"errors"
	"fmt"
)

var (
	// Validation failures, reported before anything is written.
	ErrInvalidURL        = errors.New("invalid url")
	ErrInvalidValidity   = errors.New("validity must be a positive number of minutes")
	ErrInvalidCodeFormat = errors.New("shortcode must be 4-12 alphanumeric characters")

	// ErrCodeConflict covers both the pre-check and a lost insert race;
	// callers can't tell which one fired.
	ErrCodeConflict = errors.New("shortcode already exists")

	// Expected outcomes of resolve/stats, not faults.
	ErrNotFound = errors.New("short link not found")
	ErrExpired  = errors.New("short link has expired")

	// ErrStoreFault wraps any underlying storage failure.
	ErrStoreFault = errors.New("storage fault")
)

// IsNotFound reports whether err is a missing-shortcode condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsExpired reports whether err indicates a logically gone link.
func IsExpired(err error) bool { return errors.Is(err, ErrExpired) }

// IsConflict reports whether err indicates a shortcode uniqueness conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrCodeConflict) }

func storeFault(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreFault, err)
}
