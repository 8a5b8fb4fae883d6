package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCanvasNotFound = errors.New("canvas not found")
	ErrLayerNotFound  = errors.New("layer not found")
	ErrTileNotFound   = errors.New("tile not found")
	ErrLastLayer      = errors.New("a canvas must keep at least one layer")
)

// ValidationError rejects malformed input before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// QuotaExceededError is returned by SaveTiles when a batch would push the
// canvas past its tile quota. The whole batch fails; callers branch on it.
type QuotaExceededError struct {
	CanvasID  string
	Current   int
	Requested int
	Limit     int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("canvas %s tile quota exceeded: %d stored, %d requested, limit %d",
		e.CanvasID, e.Current, e.Requested, e.Limit)
}

// IsQuotaExceeded reports whether err is a quota failure.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
