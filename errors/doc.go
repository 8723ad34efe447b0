// Package errors provides structured error types for the ownership library.
//
// Errors are categorized by Phase (which layer reported it) and Kind (what
// contract was broken). The core handle types never return errors; they
// report contract violations through a handler that receives an *Error.
// Handle tables, host bindings and the CLI return *Error values directly.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseUnsafe, errors.KindUnderflow).
//		Op("DecrementStrong").
//		GoType("*main.Widget").
//		Detail("strong count already zero").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(errors.PhaseTable, h)
//	err := errors.OutstandingBorrow(errors.PhaseTable, h, 2)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
