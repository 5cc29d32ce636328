// Package errors provides structured error types for the idreg library.
//
// Errors are categorized by Phase (which registry operation failed) and
// Kind (error category). The Kind determines recoverability: exhaustion is
// recoverable by dropping handles and retrying, while invariant violations
// indicate a lifetime-management bug in the caller and must be treated as
// fatal.
//
// Use the convenience constructors for common patterns:
//
//	err := errors.Exhausted(errors.PhaseAllocate, capacity)
//	err := errors.Invariant(errors.PhaseAccess, id, "id not live")
//
// Check recoverability with the classification helpers:
//
//	if errors.IsFatal(err) {
//		// reference-count bug, do not retry
//	}
//	if errors.IsExhausted(err) {
//		// drop unused handles, then retry
//	}
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
