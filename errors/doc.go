// Package errors provides structured error types for the machine boundary.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a detail message, the offending value, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCreate, errors.KindConstruction).
//		Detail("invalid state root").
//		Cause(err).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Construction("unsupported network version: 99", nil)
//	err := errors.MalformedTrace("expected Call event, got Return")
//
// All errors implement the standard error interface and support errors.Is/As.
// The boundary layer maps a Kind to a response status with KindOf.
package errors
