// Package failures defines the error categories shared by the workflow services.
// Domain packages keep their own sentinels and wrap them with one of these
// categories so boundaries can map outcomes without knowing every domain rule.
package failures

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrEvidenceRequired  = errors.New("evidence required")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPartialFailure    = errors.New("partial failure")
	ErrConflict          = errors.New("concurrent modification")
	ErrAlreadyFinalized  = errors.New("already finalized")
	ErrForbidden         = errors.New("forbidden")
)

// PartialFailureError reports a side effect that failed after the primary
// transition was decided. The unit of work has been rolled back when this is returned.
type PartialFailureError struct {
	Step      string
	ProductID string
	Line      int
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s failed for product %q (line %d): %v", e.Step, e.ProductID, e.Line, e.Err)
}

// Unwrap exposes both the partial-failure category and the underlying cause.
func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}

// ordered from most to least specific; PartialFailure wraps its cause so it must come first.
var categories = []error{
	ErrAlreadyFinalized,
	ErrPartialFailure,
	ErrConflict,
	ErrForbidden,
	ErrEvidenceRequired,
	ErrInsufficientStock,
	ErrInvalidTransition,
	ErrInvalidState,
	ErrValidation,
	ErrNotFound,
}

// Kind returns the category sentinel carried by err, or nil for infrastructure errors.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, category := range categories {
		if errors.Is(err, category) {
			return category
		}
	}
	return nil
}

// Retryable reports whether the caller may retry the same command unchanged.
func Retryable(err error) bool {
	switch Kind(err) {
	case ErrPartialFailure, ErrConflict:
		return true
	default:
		return false
	}
}

// Wrap tags err with category unless it already carries one.
func Wrap(category, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", category, err)
}
