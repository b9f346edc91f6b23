// Package errors provides structured error types for the wasm-web-runtime
// library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: item path, Go/wasm type
// names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindConversion).
//		WasmType("i32").
//		Detail("cannot coerce string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Conversion(errors.PhaseConvert, "i32", v)
//	err := errors.OutOfBounds(errors.PhaseResource, 10, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
