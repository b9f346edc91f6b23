// Package bridge defines the foreign-engine surface the runtime layer is
// written against. A Runtime hands out opaque Values owned by the host
// engine; the runtime layer never inspects host objects beyond this contract.
//
// The production implementation over syscall/js lives in js.go and is built
// only for js/wasm targets. Test environments provide their own Runtime.
package bridge

import "context"

// Value is an opaque handle to a host-engine value. Handles stay valid until
// the Runtime that produced them is closed; implementations are free to
// return errors from any method once that happens.
//
// Extraction methods return a conversion error when the underlying value
// does not carry the requested shape.
type Value interface {
	// Get reads a property of the value.
	Get(property string) (Value, error)

	// Set writes a property of the value.
	Set(property string, v Value) error

	// Call invokes a method of the value.
	Call(ctx context.Context, method string, args ...Value) (Value, error)

	// Invoke calls the value as a function.
	Invoke(ctx context.Context, args ...Value) (Value, error)

	// New calls the value as a constructor.
	New(ctx context.Context, args ...Value) (Value, error)

	// Int extracts an integer. BigInt-valued handles extract through Int
	// without precision loss.
	Int() (int64, error)

	// Float extracts a float.
	Float() (float64, error)

	// Bool extracts a boolean.
	Bool() (bool, error)

	// String extracts a string.
	String() (string, error)

	// IsNull reports whether the value is null or undefined.
	IsNull() bool

	// Length reads the length property of an array-like value.
	Length() (int, error)

	// Index reads element i of an array-like value.
	Index(i int) (Value, error)

	// Entries enumerates own enumerable properties, as Object.entries does.
	Entries() ([]Entry, error)
}

// Entry is a named property of a host object.
type Entry struct {
	Value Value
	Name  string
}

// HostFunc is the shape of a Go function exposed to the host engine.
// Returning an error raises an exception on the host side.
type HostFunc func(ctx context.Context, this Value, args []Value) (Value, error)

// ReleaseFunc frees the host-side resources pinned by an exported function.
// Calling it more than once is harmless.
type ReleaseFunc func()

// Runtime is a connection to a host JS engine with a WebAssembly namespace.
type Runtime interface {
	// WebAssembly returns the host's WebAssembly namespace object.
	WebAssembly() (Value, error)

	// Null returns the host null value.
	Null() Value

	// Int32 wraps an i32 as a host number.
	Int32(v int32) Value

	// Int64 wraps an i64 as a host BigInt.
	Int64(v int64) Value

	// Float32 wraps an f32 as a host number.
	Float32(v float32) Value

	// Float64 wraps an f64 as a host number.
	Float64(v float64) Value

	// Bool wraps a boolean.
	Bool(v bool) Value

	// String wraps a string.
	String(v string) Value

	// Bytes copies b into a host Uint8Array.
	Bytes(b []byte) (Value, error)

	// Object builds a plain host object from entries, matching
	// Object.fromEntries semantics. Later duplicate names win.
	Object(entries []Entry) (Value, error)

	// RunJS evaluates a JS source snippet and returns its completion value.
	// Snippets are expression-shaped and typically evaluate to a function.
	RunJS(src string) (Value, error)

	// Func exposes fn to the host as a callable value. The returned release
	// function must be called when the callable is no longer needed.
	Func(fn HostFunc) (Value, ReleaseFunc, error)
}
