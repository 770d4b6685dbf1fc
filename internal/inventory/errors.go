package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrSectionCount is returned when a schedule does not contain exactly three color sections.
	ErrSectionCount = errors.New("schedule must contain exactly 3 color sections")
	// ErrFieldCount is returned when a color section does not carry exactly seven day counts.
	ErrFieldCount = errors.New("color section must contain exactly 7 day counts")
	// ErrNegativeCount is returned when a day count is below zero.
	ErrNegativeCount = errors.New("day counts must be non-negative")
	// ErrInvalidCount is returned when a day count is not an integer or the
	// counts add up to more than an int can hold.
	ErrInvalidCount = errors.New("day count is not a usable integer")
	// ErrMissingColor is returned when a color has no section, usually because another color appears twice.
	ErrMissingColor = errors.New("schedule is missing a color section")
)

// LoadError reports why a schedule source could not be turned into a Grid.
// Location is a human readable pointer into the source (a line, a key).
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("load schedule: %v", e.Err)
	}
	return fmt.Sprintf("load schedule: %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError wraps err as a LoadError at the given location.
func NewLoadError(location string, err error) *LoadError {
	return &LoadError{Location: location, Err: err}
}
