package testbed

import (
	"context"
	"fmt"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
)

// unsupported provides failing defaults for every bridge.Value method.
// Concrete value kinds embed it and override what they actually support.
type unsupported struct {
	what string
}

func (u unsupported) err(op string) error {
	return errors.Unsupported(errors.PhaseBridge, fmt.Sprintf("%s on %s", op, u.what))
}

func (u unsupported) Get(string) (bridge.Value, error) { return nil, u.err("get") }
func (u unsupported) Set(string, bridge.Value) error   { return u.err("set") }
func (u unsupported) Int() (int64, error)              { return 0, u.err("int") }
func (u unsupported) Float() (float64, error)          { return 0, u.err("float") }
func (u unsupported) Bool() (bool, error)              { return false, u.err("bool") }
func (u unsupported) String() (string, error)          { return "", u.err("string") }
func (u unsupported) IsNull() bool                     { return false }
func (u unsupported) Length() (int, error)             { return 0, u.err("length") }
func (u unsupported) Index(int) (bridge.Value, error)  { return nil, u.err("index") }
func (u unsupported) Entries() ([]bridge.Entry, error) { return nil, u.err("entries") }

func (u unsupported) Call(context.Context, string, ...bridge.Value) (bridge.Value, error) {
	return nil, u.err("call")
}

func (u unsupported) Invoke(context.Context, ...bridge.Value) (bridge.Value, error) {
	return nil, u.err("invoke")
}

func (u unsupported) New(context.Context, ...bridge.Value) (bridge.Value, error) {
	return nil, u.err("new")
}

// nullValue models JS null/undefined.
type nullValue struct {
	unsupported
}

func null() nullValue { return nullValue{unsupported{"null"}} }

func (nullValue) IsNull() bool { return true }

// numberValue models a JS number.
type numberValue struct {
	unsupported
	f float64
}

func number(f float64) *numberValue { return &numberValue{unsupported{"number"}, f} }

func (n *numberValue) Int() (int64, error)     { return int64(n.f), nil }
func (n *numberValue) Float() (float64, error) { return n.f, nil }

// bigintValue models a JS BigInt.
type bigintValue struct {
	unsupported
	v int64
}

func bigint(v int64) *bigintValue { return &bigintValue{unsupported{"bigint"}, v} }

func (b *bigintValue) Int() (int64, error) { return b.v, nil }

// boolValue models a JS boolean.
type boolValue struct {
	unsupported
	v bool
}

func boolean(v bool) *boolValue { return &boolValue{unsupported{"boolean"}, v} }

func (b *boolValue) Bool() (bool, error) { return b.v, nil }

// stringValue models a JS string.
type stringValue struct {
	unsupported
	s string
}

func str(s string) *stringValue { return &stringValue{unsupported{"string"}, s} }

func (s *stringValue) String() (string, error) { return s.s, nil }

// bytesValue models a Uint8Array.
type bytesValue struct {
	unsupported
	data []byte
}

func (b *bytesValue) Length() (int, error) { return len(b.data), nil }

// objectValue models a plain JS object with ordered own properties.
type objectValue struct {
	unsupported
	entries []bridge.Entry
}

func newObject(entries []bridge.Entry) *objectValue {
	o := &objectValue{unsupported: unsupported{"object"}}
	for _, e := range entries {
		o.set(e.Name, e.Value)
	}
	return o
}

func (o *objectValue) set(name string, v bridge.Value) {
	for i, e := range o.entries {
		if e.Name == name {
			o.entries[i].Value = v
			return
		}
	}
	o.entries = append(o.entries, bridge.Entry{Name: name, Value: v})
}

func (o *objectValue) Get(property string) (bridge.Value, error) {
	for _, e := range o.entries {
		if e.Name == property {
			return e.Value, nil
		}
	}
	return null(), nil
}

func (o *objectValue) Set(property string, v bridge.Value) error {
	o.set(property, v)
	return nil
}

func (o *objectValue) Entries() ([]bridge.Entry, error) {
	out := make([]bridge.Entry, len(o.entries))
	copy(out, o.entries)
	return out, nil
}

// arrayValue models a JS array.
type arrayValue struct {
	unsupported
	elems []bridge.Value
}

func newArray(elems []bridge.Value) *arrayValue {
	return &arrayValue{unsupported{"array"}, elems}
}

func (a *arrayValue) Length() (int, error) { return len(a.elems), nil }

func (a *arrayValue) Index(i int) (bridge.Value, error) {
	if i < 0 || i >= len(a.elems) {
		return null(), nil
	}
	return a.elems[i], nil
}

// funcValue models a JS function. Host callables registered through Func
// carry a released flag; invoking one after release fails the way a
// collected weak reference would.
type funcValue struct {
	unsupported
	invoke   func(ctx context.Context, args []bridge.Value) (bridge.Value, error)
	released *bool
}

func newFunc(invoke func(ctx context.Context, args []bridge.Value) (bridge.Value, error)) *funcValue {
	return &funcValue{unsupported: unsupported{"function"}, invoke: invoke}
}

func (f *funcValue) Invoke(ctx context.Context, args ...bridge.Value) (bridge.Value, error) {
	if f.released != nil && *f.released {
		return nil, errors.StoreDropped(errors.PhaseBridge)
	}
	return f.invoke(ctx, args)
}
