package runtime

import (
	"fmt"
	"math"

	"github.com/wippyai/wasm-web-runtime/wasm"
)

// Value is a WebAssembly value of one of the six value types. The zero Value
// is an i32 zero. Values are transient; reference variants borrow handles
// owned by a store.
type Value struct {
	fn   *Func
	ext  *ExternRef
	bits uint64
	kind wasm.ValueType
}

// NewI32 returns an i32 value.
func NewI32(v int32) Value {
	return Value{kind: wasm.ValueI32, bits: uint64(uint32(v))}
}

// NewI64 returns an i64 value.
func NewI64(v int64) Value {
	return Value{kind: wasm.ValueI64, bits: uint64(v)}
}

// NewF32 returns an f32 value.
func NewF32(v float32) Value {
	return Value{kind: wasm.ValueF32, bits: uint64(math.Float32bits(v))}
}

// NewF64 returns an f64 value.
func NewF64(v float64) Value {
	return Value{kind: wasm.ValueF64, bits: math.Float64bits(v)}
}

// NewFuncRef returns a funcref value. A nil f is the null reference.
func NewFuncRef(f *Func) Value {
	return Value{kind: wasm.ValueFuncRef, fn: f}
}

// NewExternRef returns an externref value. A nil r is the null reference.
func NewExternRef(r *ExternRef) Value {
	return Value{kind: wasm.ValueExternRef, ext: r}
}

// Type returns the value type tag.
func (v Value) Type() wasm.ValueType {
	if v.kind == 0 {
		return wasm.ValueI32
	}
	return v.kind
}

// I32 returns the i32 payload. Valid only when Type is i32.
func (v Value) I32() int32 { return int32(uint32(v.bits)) }

// I64 returns the i64 payload. Valid only when Type is i64.
func (v Value) I64() int64 { return int64(v.bits) }

// F32 returns the f32 payload. Valid only when Type is f32.
func (v Value) F32() float32 { return math.Float32frombits(uint32(v.bits)) }

// F64 returns the f64 payload. Valid only when Type is f64.
func (v Value) F64() float64 { return math.Float64frombits(v.bits) }

// FuncRef returns the funcref payload, nil for the null reference.
// Valid only when Type is funcref.
func (v Value) FuncRef() *Func { return v.fn }

// ExternRef returns the externref payload, nil for the null reference.
// Valid only when Type is externref.
func (v Value) ExternRef() *ExternRef { return v.ext }

// Equal reports whether two values have the same type and payload.
// Reference variants compare by handle identity. NaN payloads compare by
// bit pattern.
func (v Value) Equal(other Value) bool {
	if v.Type() != other.Type() {
		return false
	}
	switch v.Type() {
	case wasm.ValueFuncRef:
		return v.fn == other.fn
	case wasm.ValueExternRef:
		return v.ext == other.ext
	default:
		return v.bits == other.bits
	}
}

func (v Value) String() string {
	switch v.Type() {
	case wasm.ValueI32:
		return fmt.Sprintf("i32(%d)", v.I32())
	case wasm.ValueI64:
		return fmt.Sprintf("i64(%d)", v.I64())
	case wasm.ValueF32:
		return fmt.Sprintf("f32(%g)", v.F32())
	case wasm.ValueF64:
		return fmt.Sprintf("f64(%g)", v.F64())
	case wasm.ValueFuncRef:
		if v.fn == nil {
			return "funcref(null)"
		}
		return "funcref(" + v.fn.ty.String() + ")"
	case wasm.ValueExternRef:
		if v.ext == nil {
			return "externref(null)"
		}
		return fmt.Sprintf("externref(%d)", v.ext.idx)
	default:
		return "value(?)"
	}
}
