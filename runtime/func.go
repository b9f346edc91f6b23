package runtime

import (
	"context"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
	"go.uber.org/zap"
)

// Func is a callable WebAssembly function bound to a store. Exported
// functions wrap the host callable of an instance export; host-defined
// functions wrap a Go closure registered with NewFunc.
type Func struct {
	scope  *storeScope
	handle bridge.Value
	shim   bridge.Value
	ty     wasm.FuncType
}

// Type returns the function signature.
func (f *Func) Type() wasm.FuncType { return f.ty }

// newExportedFunc wraps an exported host callable with its declared
// signature.
func newExportedFunc(scope *storeScope, handle bridge.Value, ty wasm.FuncType) *Func {
	return &Func{scope: scope, handle: handle, ty: ty}
}

// foreign returns the handle to pass across the bridge. Host-defined
// functions hand out their weak shim so the host never keeps the Go closure
// alive on its own.
func (f *Func) foreign() bridge.Value {
	if f.shim != nil {
		return f.shim
	}
	return f.handle
}

// NewFunc registers fn as a host-defined function with the given signature.
// fn receives a mutable context over the calling store, the arguments, and a
// result slice prefilled with zero values of the declared result types; it
// may call back into the guest through the context. The function stays
// callable from the host until the store closes.
func (s *Store[T]) NewFunc(ctx context.Context, ty wasm.FuncType, fn func(StoreContextMut[T], []Value, []Value) error) (*Func, error) {
	return newHostFunc(ctx, s.state, ty, fn)
}

// NewFunc registers fn as a host-defined function with the given signature.
func (c StoreContextMut[T]) NewFunc(ctx context.Context, ty wasm.FuncType, fn func(StoreContextMut[T], []Value, []Value) error) (*Func, error) {
	return newHostFunc(ctx, c.state, ty, fn)
}

func newHostFunc[T any](ctx context.Context, state *storeState[T], ty wasm.FuncType, fn func(StoreContextMut[T], []Value, []Value) error) (*Func, error) {
	scope := state.scope
	if scope.closed {
		return nil, errors.StoreDropped(errors.PhaseResource)
	}
	rt := scope.rt()

	host := func(callCtx context.Context, _ bridge.Value, args []bridge.Value) (bridge.Value, error) {
		if scope.closed {
			return nil, errors.StoreDropped(errors.PhaseCall)
		}
		if len(args) != len(ty.Params) {
			return nil, errors.SignatureMismatch(errors.PhaseCall,
				"host function got %d arguments, signature has %d", len(args), len(ty.Params))
		}
		in := make([]Value, len(ty.Params))
		for i, a := range args {
			v, err := fromForeignTyped(scope, a, ty.Params[i])
			if err != nil {
				return nil, err
			}
			in[i] = v
		}
		out := make([]Value, len(ty.Results))
		for i, res := range ty.Results {
			out[i] = zeroValue(res)
		}
		if err := fn(StoreContextMut[T]{state: state}, in, out); err != nil {
			return nil, errors.Host(errors.PhaseCall, "host function", err)
		}
		return marshalResults(callCtx, scope, out)
	}

	callable, release, err := rt.Func(host)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResource, errors.KindHost, err, "register host function")
	}

	weak, err := scope.engine.helper(weakCallSrc)
	if err != nil {
		release()
		return nil, err
	}
	shim, err := weak.Invoke(ctx, callable)
	if err != nil {
		release()
		return nil, errors.Wrap(errors.PhaseResource, errors.KindHost, err, "wrap host function")
	}

	scope.hostFuncs = append(scope.hostFuncs, &hostFuncRecord{
		callable: callable,
		shim:     shim,
		release:  release,
	})
	log().Debug("host function registered", zap.String("type", ty.String()))
	return &Func{scope: scope, handle: callable, shim: shim, ty: ty}, nil
}

// marshalResults lowers a host function's results for the host engine:
// nothing for zero results, the bare value for one, an array otherwise.
func marshalResults(ctx context.Context, scope *storeScope, out []Value) (bridge.Value, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return toForeign(scope, out[0])
	default:
		foreign := make([]bridge.Value, len(out))
		for i, v := range out {
			f, err := toForeign(scope, v)
			if err != nil {
				return nil, err
			}
			foreign[i] = f
		}
		arr, err := scope.engine.helper(toArraySrc)
		if err != nil {
			return nil, err
		}
		return arr.Invoke(ctx, foreign...)
	}
}

// Call invokes the function. args must match the signature's parameter count
// and results its result count; results is written positionally, typed by
// the declared result types.
func (f *Func) Call(ctx context.Context, store AsContextMut, args, results []Value) error {
	scope := store.storeScopeMut()
	if f.scope != scope {
		return errors.CrossStore(errors.PhaseCall)
	}
	if scope.closed {
		return errors.StoreDropped(errors.PhaseCall)
	}
	if len(args) != len(f.ty.Params) {
		return errors.SignatureMismatch(errors.PhaseCall,
			"call got %d arguments, signature has %d", len(args), len(f.ty.Params))
	}
	if len(results) != len(f.ty.Results) {
		return errors.SignatureMismatch(errors.PhaseCall,
			"call got %d result slots, signature has %d", len(results), len(f.ty.Results))
	}

	foreign := make([]bridge.Value, len(args))
	for i, a := range args {
		v, err := toForeign(scope, a)
		if err != nil {
			return err
		}
		foreign[i] = v
	}

	log().Debug("calling function", zap.String("type", f.ty.String()))
	out, err := f.handle.Invoke(ctx, foreign...)
	if err != nil {
		return errors.Host(errors.PhaseCall, "function call", err)
	}

	switch len(results) {
	case 0:
		return nil
	case 1:
		v, err := fromForeignTyped(scope, out, f.ty.Results[0])
		if err != nil {
			return err
		}
		results[0] = v
		return nil
	default:
		n, err := out.Length()
		if err != nil {
			return errors.Conversion(errors.PhaseCall, "results", err)
		}
		if n != len(results) {
			return errors.SignatureMismatch(errors.PhaseCall,
				"host returned %d results, signature has %d", n, len(results))
		}
		for i := range results {
			elem, err := out.Index(i)
			if err != nil {
				return errors.Conversion(errors.PhaseCall, "results", err)
			}
			v, err := fromForeignTyped(scope, elem, f.ty.Results[i])
			if err != nil {
				return err
			}
			results[i] = v
		}
		return nil
	}
}

// zeroValue returns the zero value of a value type.
func zeroValue(t wasm.ValueType) Value {
	switch t {
	case wasm.ValueI64:
		return NewI64(0)
	case wasm.ValueF32:
		return NewF32(0)
	case wasm.ValueF64:
		return NewF64(0)
	case wasm.ValueFuncRef:
		return NewFuncRef(nil)
	case wasm.ValueExternRef:
		return NewExternRef(nil)
	default:
		return NewI32(0)
	}
}
