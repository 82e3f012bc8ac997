// Package logger provides structured logging for mapkit packages
// using zerolog.
//
// It supports multiple output formats (JSON, console), log level
// configuration, and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logger:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("mapper")
//	log.Debug("task settled", logger.Fields(logger.FieldIndex, 3))
package logger
