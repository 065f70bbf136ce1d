package domain

import (
	"errors"
	"fmt"
)

// The four failure classes the engine distinguishes. Every error produced
// inside the engine wraps exactly one of these, so boundary code can classify
// with errors.Is without inspecting messages.
var (
	// ErrInputValidation marks malformed or missing caller input.
	ErrInputValidation = errors.New("input validation failed")
	// ErrCapability marks an embedding/generation/search capability failure.
	// These are always converted to fallback values at the smallest scope.
	ErrCapability = errors.New("capability failure")
	// ErrParse marks malformed structured output from the generation capability.
	ErrParse = errors.New("unparseable capability output")
	// ErrAggregate marks a structurally valid input that yielded nothing to analyze.
	ErrAggregate = errors.New("nothing to analyze")
)

// Specific validation failures, each wrapping its class sentinel.
var (
	ErrEmptyQuery   = fmt.Errorf("%w: query is empty", ErrInputValidation)
	ErrQueryTooLong = fmt.Errorf("%w: query exceeds maximum length", ErrInputValidation)
	ErrEmptyPolicy  = fmt.Errorf("%w: policy text is empty", ErrInputValidation)
	ErrBadContainer = fmt.Errorf("%w: invalid document container", ErrInputValidation)
	ErrNoDocuments  = fmt.Errorf("%w: no documents extracted", ErrAggregate)
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
