package errors

import (
	stderrors "errors"
)

// IsError checks if an error is a mapkit *Error.
func IsError(err error) bool {
	var e *Error
	return stderrors.As(err, &e)
}

// AsError converts an error to a mapkit *Error if possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or the empty string if err is not
// a mapkit error. Aggregates report ErrCodeAggregate rather than the code
// of whichever inner error errors.As would reach first.
func CodeOf(err error) ErrorCode {
	if _, ok := err.(*AggregateError); ok {
		return ErrCodeAggregate
	}
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
