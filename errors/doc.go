// Package errors provides unified error handling for the mapkit packages.
// It implements a structured error type with machine-readable error codes,
// optional detail maps, and an aggregate error for reporting several
// failures together.
package errors
