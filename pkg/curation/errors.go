// Package curation provides the memory curation engine and its
// configuration surface.
package curation

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEngineClosed indicates that the engine has been shut down.
	ErrEngineClosed = errors.New("engine closed")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBackendOperation indicates that a backend operation failed.
	ErrBackendOperation = errors.New("backend operation failed")

	// ErrUnknownProvider indicates an unrecognized backend or embedder
	// provider name.
	ErrUnknownProvider = errors.New("unknown provider")
)

// CurationError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &CurationError{
//	    Op:  "Curate",
//	    Err: ErrBackendOperation,
//	}
//	// Error() returns: "memcurator: Curate: backend operation failed"
type CurationError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "memcurator: <Op>: <Err>"
func (e *CurationError) Error() string {
	return fmt.Sprintf("memcurator: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with CurationError.
func (e *CurationError) Unwrap() error {
	return e.Err
}

// NewCurationError creates a new CurationError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewCurationError("Curate", err)
//	}
//
// Parameters:
//   - op: Name of the operation (e.g., "Curate", "RecordFeedback")
//   - err: The underlying error to wrap
//
// Returns a CurationError, or nil if err is nil.
func NewCurationError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CurationError{
		Op:  op,
		Err: err,
	}
}
