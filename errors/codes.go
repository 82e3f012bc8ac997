package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeOutOfRange indicates a numeric field is outside its allowed range.
	ErrCodeOutOfRange ErrorCode = "OUT_OF_RANGE"
)

// Execution errors
const (
	// ErrCodeAggregate indicates several underlying errors were collected.
	ErrCodeAggregate ErrorCode = "AGGREGATE"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
