//go:build js && wasm

package bridge

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/wippyai/wasm-web-runtime/errors"
)

// JS returns the Runtime backed by the ambient JS engine through syscall/js.
func JS() Runtime {
	return jsRuntime{}
}

type jsRuntime struct{}

type jsValue struct {
	v js.Value
}

// catching recovers syscall/js panics. Host exceptions and type mismatches
// both surface as panics there, so every crossing goes through this.
func catching(err *error, what string) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = errors.Host(errors.PhaseBridge, what, e)
			return
		}
		*err = errors.Host(errors.PhaseBridge, what, fmt.Errorf("%v", r))
	}
}

func (jsRuntime) WebAssembly() (Value, error) {
	ns := js.Global().Get("WebAssembly")
	if ns.IsUndefined() {
		return nil, errors.NotFound(errors.PhaseBridge, "namespace", "WebAssembly")
	}
	return jsValue{ns}, nil
}

func (jsRuntime) Null() Value { return jsValue{js.Null()} }

func (jsRuntime) Int32(v int32) Value { return jsValue{js.ValueOf(int(v))} }

func (jsRuntime) Int64(v int64) Value {
	bigint := js.Global().Get("BigInt")
	// Route through a string so the full 64-bit range survives the float64
	// crossing of js.ValueOf.
	return jsValue{bigint.Invoke(fmt.Sprintf("%d", v))}
}

func (jsRuntime) Float32(v float32) Value { return jsValue{js.ValueOf(float64(v))} }

func (jsRuntime) Float64(v float64) Value { return jsValue{js.ValueOf(v)} }

func (jsRuntime) Bool(v bool) Value { return jsValue{js.ValueOf(v)} }

func (jsRuntime) String(v string) Value { return jsValue{js.ValueOf(v)} }

func (jsRuntime) Bytes(b []byte) (_ Value, err error) {
	defer catching(&err, "copy bytes")
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return jsValue{arr}, nil
}

func (jsRuntime) Object(entries []Entry) (_ Value, err error) {
	defer catching(&err, "build object")
	obj := js.Global().Get("Object").New()
	for _, e := range entries {
		obj.Set(e.Name, e.Value.(jsValue).v)
	}
	return jsValue{obj}, nil
}

func (jsRuntime) RunJS(src string) (_ Value, err error) {
	defer catching(&err, "eval snippet")
	out := js.Global().Call("eval", src)
	return jsValue{out}, nil
}

func (jsRuntime) Func(fn HostFunc) (Value, ReleaseFunc, error) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		wrapped := make([]Value, len(args))
		for i, a := range args {
			wrapped[i] = jsValue{a}
		}
		out, err := fn(context.Background(), jsValue{this}, wrapped)
		if err != nil {
			// Raising from Go is not possible through js.FuncOf, so throw
			// via a host-side helper.
			js.Global().Get("Function").New("m", "throw new Error(m)").Invoke(err.Error())
			return nil
		}
		if out == nil {
			return js.Undefined()
		}
		return out.(jsValue).v
	})
	released := false
	release := func() {
		if !released {
			released = true
			f.Release()
		}
	}
	return jsValue{f.Value}, release, nil
}

func (j jsValue) Get(property string) (_ Value, err error) {
	defer catching(&err, "get "+property)
	return jsValue{j.v.Get(property)}, nil
}

func (j jsValue) Set(property string, v Value) (err error) {
	defer catching(&err, "set "+property)
	j.v.Set(property, v.(jsValue).v)
	return nil
}

func (j jsValue) Call(_ context.Context, method string, args ...Value) (_ Value, err error) {
	defer catching(&err, "call "+method)
	return jsValue{j.v.Call(method, unwrap(args)...)}, nil
}

func (j jsValue) Invoke(_ context.Context, args ...Value) (_ Value, err error) {
	defer catching(&err, "invoke")
	return jsValue{j.v.Invoke(unwrap(args)...)}, nil
}

func (j jsValue) New(_ context.Context, args ...Value) (_ Value, err error) {
	defer catching(&err, "construct")
	return jsValue{j.v.New(unwrap(args)...)}, nil
}

func (j jsValue) Int() (_ int64, err error) {
	defer catching(&err, "extract int")
	if j.v.Type() == js.TypeNumber {
		return int64(j.v.Float()), nil
	}
	// BigInt has no direct syscall/js accessor; round-trip via String.
	s := js.Global().Call("String", j.v).String()
	var out int64
	if _, perr := fmt.Sscanf(s, "%d", &out); perr != nil {
		return 0, errors.Conversion(errors.PhaseBridge, "i64", s)
	}
	return out, nil
}

func (j jsValue) Float() (_ float64, err error) {
	defer catching(&err, "extract float")
	if j.v.Type() != js.TypeNumber {
		return 0, errors.Conversion(errors.PhaseBridge, "number", j.v.Type().String())
	}
	return j.v.Float(), nil
}

func (j jsValue) Bool() (_ bool, err error) {
	defer catching(&err, "extract bool")
	if j.v.Type() != js.TypeBoolean {
		return false, errors.Conversion(errors.PhaseBridge, "boolean", j.v.Type().String())
	}
	return j.v.Bool(), nil
}

func (j jsValue) String() (_ string, err error) {
	defer catching(&err, "extract string")
	if j.v.Type() != js.TypeString {
		return "", errors.Conversion(errors.PhaseBridge, "string", j.v.Type().String())
	}
	return j.v.String(), nil
}

func (j jsValue) IsNull() bool {
	return j.v.IsNull() || j.v.IsUndefined()
}

func (j jsValue) Length() (_ int, err error) {
	defer catching(&err, "length")
	return j.v.Length(), nil
}

func (j jsValue) Index(i int) (_ Value, err error) {
	defer catching(&err, "index")
	return jsValue{j.v.Index(i)}, nil
}

func (j jsValue) Entries() (_ []Entry, err error) {
	defer catching(&err, "entries")
	pairs := js.Global().Get("Object").Call("entries", j.v)
	out := make([]Entry, pairs.Length())
	for i := range out {
		pair := pairs.Index(i)
		out[i] = Entry{Name: pair.Index(0).String(), Value: jsValue{pair.Index(1)}}
	}
	return out, nil
}

func unwrap(args []Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.(jsValue).v
	}
	return out
}
