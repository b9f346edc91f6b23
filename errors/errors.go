package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse       Phase = "parse"       // binary signature parsing
	PhaseCompile     Phase = "compile"     // host module compilation
	PhaseConvert     Phase = "convert"     // value marshalling
	PhaseInstantiate Phase = "instantiate" // instance construction
	PhaseCall        Phase = "call"        // function invocation
	PhaseResource    Phase = "resource"    // memory/table/global operations
	PhaseStore       Phase = "store"       // store lifetime management
	PhaseBridge      Phase = "bridge"      // foreign bridge plumbing
)

// Kind categorizes the error
type Kind string

const (
	KindConversion        Kind = "conversion"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindHost              Kind = "host"
	KindInvariant         Kind = "invariant"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindStoreDropped      Kind = "store_dropped"
	KindCrossStore        Kind = "cross_store"
	KindTypeMismatch      Kind = "type_mismatch"
	KindDuplicateImport   Kind = "duplicate_import"
	KindNotFound          Kind = "not_found"
	KindInvalidData       Kind = "invalid_data"
	KindUnsupported       Kind = "unsupported"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	WasmType string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.WasmType != "" {
		b.WriteString(": ")
		switch {
		case e.GoType != "" && e.WasmType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", wasm type ")
			b.WriteString(e.WasmType)
		case e.GoType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		default:
			b.WriteString("wasm type ")
			b.WriteString(e.WasmType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.WasmType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the item path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WasmType sets the wasm type name
func (b *Builder) WasmType(t string) *Builder {
	b.err.WasmType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Conversion creates an error for a foreign value that could not be coerced
// to the declared wasm type.
func Conversion(phase Phase, wasmType string, value any) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindConversion,
		WasmType: wasmType,
		Detail:   fmt.Sprintf("cannot coerce %v", value),
		Value:    value,
	}
}

// SignatureMismatch creates an arity or declared-type disagreement error
func SignatureMismatch(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSignatureMismatch,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Host wraps a host-runtime exception surfaced through the bridge.
// The host message is preserved in the cause chain.
func Host(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindHost,
		Detail: detail,
		Cause:  cause,
	}
}

// Invariant creates an invariant violation error. These indicate a bug in
// the signature parser or the host runtime, not a user error.
func Invariant(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvariant,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// StoreDropped creates an error for a host callable invoked after its
// owning store was reclaimed.
func StoreDropped(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStoreDropped,
		Detail: "owning store has been dropped",
	}
}

// CrossStore creates an error for a reference used with a store it did not
// originate in.
func CrossStore(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCrossStore,
		Detail: "reference originated in a different store",
	}
}

// TypeMismatch creates a typed-downcast failure error
func TypeMismatch(phase Phase, goType, wantType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		GoType: goType,
		Detail: fmt.Sprintf("payload is not %s", wantType),
	}
}

// DuplicateImport creates an error for two imports sharing a (module, name)
func DuplicateImport(module, name string) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindDuplicateImport,
		Path:   []string{module, name},
		Detail: "import defined twice",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain matching target.
func As(err error, target any) bool { return stderrors.As(err, target) }
