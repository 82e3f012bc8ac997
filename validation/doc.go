// Package validation provides input validation utilities for mapkit
// configuration types.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Struct tag validation is
// recommended for configuration structs.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    Concurrency  int `validate:"omitempty,gte=1"`
//	    Backpressure int `validate:"omitempty,gtecsfield=Concurrency"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Positive("concurrency", concurrency)
//	err := v.Validate()
package validation
