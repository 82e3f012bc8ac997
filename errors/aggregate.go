package errors

import (
	"fmt"
	"strings"
)

// AggregateError reports several underlying errors as one. The Errors slice
// preserves the order in which the failures were observed.
type AggregateError struct {
	Errors []error
}

// NewAggregate combines the given errors into one *AggregateError. Nil
// entries are dropped. When no errors remain it returns a nil error
// interface, not a typed nil, so the result is safe to return directly.
func NewAggregate(errs []error) error {
	kept := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &AggregateError{Errors: kept}
}

// Error returns a single-line summary of all collected errors.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }
