package runtime

import (
	"context"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

// externRefProp tags the host token object of an externref with its payload
// index in the owning store.
const externRefProp = "__wasm_externref"

// jsDescriptor returns the type name used in WebAssembly.* descriptor
// objects.
func jsDescriptor(t wasm.ValueType) string {
	switch t {
	case wasm.ValueI32:
		return "i32"
	case wasm.ValueI64:
		return "i64"
	case wasm.ValueF32:
		return "f32"
	case wasm.ValueF64:
		return "f64"
	case wasm.ValueFuncRef:
		return "anyfunc"
	case wasm.ValueExternRef:
		return "externref"
	default:
		return "unknown"
	}
}

// toForeign lowers a value into a host-engine argument. Numerics become host
// numbers (i64 a BigInt), null references become host null, funcrefs pass
// their host callable, and externrefs pass their store token.
func toForeign(scope *storeScope, v Value) (bridge.Value, error) {
	rt := scope.rt()
	switch v.Type() {
	case wasm.ValueI32:
		return rt.Int32(v.I32()), nil
	case wasm.ValueI64:
		return rt.Int64(v.I64()), nil
	case wasm.ValueF32:
		return rt.Float32(v.F32()), nil
	case wasm.ValueF64:
		return rt.Float64(v.F64()), nil
	case wasm.ValueFuncRef:
		f := v.FuncRef()
		if f == nil {
			return rt.Null(), nil
		}
		if f.scope != scope {
			return nil, errors.CrossStore(errors.PhaseConvert)
		}
		return f.foreign(), nil
	case wasm.ValueExternRef:
		r := v.ExternRef()
		if r == nil {
			return rt.Null(), nil
		}
		if r.scope != scope {
			return nil, errors.CrossStore(errors.PhaseConvert)
		}
		return r.token, nil
	default:
		return nil, errors.Unsupported(errors.PhaseConvert, v.Type().String())
	}
}

// fromForeignTyped lifts a host-engine value into a Value, driven by the
// declared type. Numeric coercion failures are conversion errors. Null
// references lift to nil carriers; a non-null funcref is refused because a
// signature cannot be recovered from a bare host callable, and a non-null
// externref must carry a token minted by this store.
func fromForeignTyped(scope *storeScope, v bridge.Value, ty wasm.ValueType) (Value, error) {
	switch ty {
	case wasm.ValueI32:
		n, err := v.Int()
		if err != nil {
			return Value{}, errors.Conversion(errors.PhaseConvert, "i32", err)
		}
		return NewI32(int32(n)), nil
	case wasm.ValueI64:
		n, err := v.Int()
		if err != nil {
			return Value{}, errors.Conversion(errors.PhaseConvert, "i64", err)
		}
		return NewI64(n), nil
	case wasm.ValueF32:
		f, err := v.Float()
		if err != nil {
			return Value{}, errors.Conversion(errors.PhaseConvert, "f32", err)
		}
		return NewF32(float32(f)), nil
	case wasm.ValueF64:
		f, err := v.Float()
		if err != nil {
			return Value{}, errors.Conversion(errors.PhaseConvert, "f64", err)
		}
		return NewF64(f), nil
	case wasm.ValueFuncRef:
		if v.IsNull() {
			return NewFuncRef(nil), nil
		}
		return Value{}, errors.Conversion(errors.PhaseConvert, "funcref", nil)
	case wasm.ValueExternRef:
		if v.IsNull() {
			return NewExternRef(nil), nil
		}
		r, err := externRefFromToken(scope, v)
		if err != nil {
			return Value{}, err
		}
		return NewExternRef(r), nil
	default:
		return Value{}, errors.Unsupported(errors.PhaseConvert, ty.String())
	}
}

// instanceOf asks the host engine whether v is an instance of the named
// WebAssembly constructor.
func instanceOf(ctx context.Context, e Engine, v bridge.Value, ctorName string) (bool, error) {
	ns, err := e.webAssembly()
	if err != nil {
		return false, err
	}
	ctor, err := ns.Get(ctorName)
	if err != nil {
		return false, err
	}
	helper, err := e.helper(instanceOfSrc)
	if err != nil {
		return false, err
	}
	out, err := helper.Invoke(ctx, v, ctor)
	if err != nil {
		return false, errors.Wrap(errors.PhaseBridge, errors.KindHost, err, "instanceof check")
	}
	return out.Bool()
}
