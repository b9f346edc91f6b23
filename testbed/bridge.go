package testbed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

// Bridge implements bridge.Runtime over a wazero runtime, emulating the
// WebAssembly JS API closely enough to exercise the adapter without a
// browser. Each Bridge owns one wazero runtime; modules instantiated through
// it share a namespace, so independent tests should use independent Bridges.
type Bridge struct {
	rt wazero.Runtime

	mu      sync.Mutex
	handles map[uint64]bridge.Value
	byValue map[bridge.Value]uint64
	nextRef uint64
	nextMod int
}

// New creates a Bridge over a fresh wazero runtime.
func New(ctx context.Context) *Bridge {
	return &Bridge{
		rt:      wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig()),
		handles: make(map[uint64]bridge.Value),
		byValue: make(map[bridge.Value]uint64),
		nextRef: 1,
	}
}

// Close releases the underlying wazero runtime.
func (b *Bridge) Close(ctx context.Context) error {
	return b.rt.Close(ctx)
}

// moduleName hands out unique instantiation names.
func (b *Bridge) moduleName(prefix string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextMod++
	return fmt.Sprintf("__%s_%d", prefix, b.nextMod)
}

// refHandle interns v as an externref handle, reusing the handle when the
// same value crosses again so identity survives a round trip through the
// guest.
func (b *Bridge) refHandle(v bridge.Value) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.byValue[v]; ok {
		return h
	}
	h := b.nextRef
	b.nextRef++
	b.handles[h] = v
	b.byValue[v] = h
	return h
}

func (b *Bridge) refValue(h uint64) (bridge.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.handles[h]
	return v, ok
}

// WebAssembly returns the emulated namespace object.
func (b *Bridge) WebAssembly() (bridge.Value, error) {
	return &namespaceValue{unsupported{"WebAssembly"}, b}, nil
}

// Null returns the null value.
func (b *Bridge) Null() bridge.Value { return null() }

// Int32 wraps v as a number.
func (b *Bridge) Int32(v int32) bridge.Value { return number(float64(v)) }

// Int64 wraps v as a BigInt.
func (b *Bridge) Int64(v int64) bridge.Value { return bigint(v) }

// Float32 wraps v as a number.
func (b *Bridge) Float32(v float32) bridge.Value { return number(float64(v)) }

// Float64 wraps v as a number.
func (b *Bridge) Float64(v float64) bridge.Value { return number(v) }

// Bool wraps v.
func (b *Bridge) Bool(v bool) bridge.Value { return boolean(v) }

// String wraps v.
func (b *Bridge) String(v string) bridge.Value { return str(v) }

// Bytes copies data into a Uint8Array stand-in.
func (b *Bridge) Bytes(data []byte) (bridge.Value, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &bytesValue{unsupported{"bytes"}, buf}, nil
}

// Object builds a plain object; later duplicate names win.
func (b *Bridge) Object(entries []bridge.Entry) (bridge.Value, error) {
	return newObject(entries), nil
}

// RunJS recognizes the helper programs the adapter compiles and returns
// native equivalents. Arbitrary JS is not evaluated.
func (b *Bridge) RunJS(src string) (bridge.Value, error) {
	switch {
	case strings.Contains(src, "instanceof"):
		return newFunc(func(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
			if len(args) != 2 {
				return nil, errors.Invariant(errors.PhaseBridge, "instanceof helper wants 2 arguments, got %d", len(args))
			}
			ctor, ok := args[1].(*ctorValue)
			if !ok {
				return boolean(false), nil
			}
			return boolean(isInstance(args[0], ctor.name)), nil
		}), nil
	case strings.Contains(src, "WeakRef"):
		return newFunc(func(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
			if len(args) != 1 {
				return nil, errors.Invariant(errors.PhaseBridge, "weak-ref helper wants 1 argument, got %d", len(args))
			}
			target := args[0]
			return newFunc(func(ctx context.Context, inner []bridge.Value) (bridge.Value, error) {
				return target.Invoke(ctx, inner...)
			}), nil
		}), nil
	case strings.Contains(src, "Array.prototype.slice"):
		return newFunc(func(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
			elems := make([]bridge.Value, len(args))
			copy(elems, args)
			return newArray(elems), nil
		}), nil
	default:
		return nil, errors.Unsupported(errors.PhaseBridge, "script evaluation")
	}
}

// Func exposes fn as a callable value.
func (b *Bridge) Func(fn bridge.HostFunc) (bridge.Value, bridge.ReleaseFunc, error) {
	released := false
	f := newFunc(func(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
		return fn(ctx, null(), args)
	})
	f.released = &released
	release := func() { released = true }
	return f, release, nil
}

// isInstance reports whether v emulates the named WebAssembly type.
func isInstance(v bridge.Value, ctor string) bool {
	switch ctor {
	case "Module":
		_, ok := v.(*moduleValue)
		return ok
	case "Instance":
		_, ok := v.(*instanceValue)
		return ok
	case "Memory":
		_, ok := v.(*memoryValue)
		return ok
	case "Global":
		_, ok := v.(*globalValue)
		return ok
	case "Table":
		_, ok := v.(*tableValue)
		return ok
	default:
		return false
	}
}

// apiValueType maps a signature type to wazero's value type.
func apiValueType(t wasm.ValueType) (api.ValueType, error) {
	switch t {
	case wasm.ValueI32:
		return api.ValueTypeI32, nil
	case wasm.ValueI64:
		return api.ValueTypeI64, nil
	case wasm.ValueF32:
		return api.ValueTypeF32, nil
	case wasm.ValueF64:
		return api.ValueTypeF64, nil
	case wasm.ValueExternRef:
		return api.ValueTypeExternref, nil
	default:
		return 0, errors.Unsupported(errors.PhaseBridge, t.String()+" in host signature")
	}
}

func apiValueTypes(ts []wasm.ValueType) ([]api.ValueType, error) {
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		vt, err := apiValueType(t)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

// lift raises a raw stack slot into an emulated JS value.
func (b *Bridge) lift(raw uint64, t wasm.ValueType) (bridge.Value, error) {
	switch t {
	case wasm.ValueI32:
		return number(float64(api.DecodeI32(raw))), nil
	case wasm.ValueI64:
		return bigint(int64(raw)), nil
	case wasm.ValueF32:
		return number(float64(api.DecodeF32(raw))), nil
	case wasm.ValueF64:
		return number(api.DecodeF64(raw)), nil
	case wasm.ValueExternRef:
		if raw == 0 {
			return null(), nil
		}
		v, ok := b.refValue(raw)
		if !ok {
			return nil, errors.Invariant(errors.PhaseBridge, "unknown externref handle %d", raw)
		}
		return v, nil
	default:
		return nil, errors.Unsupported(errors.PhaseBridge, t.String()+" result")
	}
}

// lower flattens an emulated JS value into a raw stack slot.
func (b *Bridge) lower(v bridge.Value, t wasm.ValueType) (uint64, error) {
	switch t {
	case wasm.ValueI32:
		n, err := v.Int()
		if err != nil {
			return 0, err
		}
		return api.EncodeI32(int32(n)), nil
	case wasm.ValueI64:
		n, err := v.Int()
		if err != nil {
			return 0, err
		}
		return uint64(n), nil
	case wasm.ValueF32:
		f, err := v.Float()
		if err != nil {
			return 0, err
		}
		return api.EncodeF32(float32(f)), nil
	case wasm.ValueF64:
		f, err := v.Float()
		if err != nil {
			return 0, err
		}
		return api.EncodeF64(f), nil
	case wasm.ValueExternRef:
		if v == nil || v.IsNull() {
			return 0, nil
		}
		return b.refHandle(v), nil
	default:
		return 0, errors.Unsupported(errors.PhaseBridge, t.String()+" argument")
	}
}
