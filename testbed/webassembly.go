package testbed

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

// namespaceValue emulates the WebAssembly namespace object.
type namespaceValue struct {
	unsupported
	b *Bridge
}

func (n *namespaceValue) Get(property string) (bridge.Value, error) {
	switch property {
	case "Module", "Instance", "Memory", "Table", "Global":
		return &ctorValue{unsupported{"constructor " + property}, n.b, property}, nil
	default:
		return null(), nil
	}
}

// ctorValue emulates one WebAssembly.* constructor.
type ctorValue struct {
	unsupported
	b    *Bridge
	name string
}

func (c *ctorValue) New(ctx context.Context, args ...bridge.Value) (bridge.Value, error) {
	switch c.name {
	case "Module":
		return c.b.newModule(ctx, args)
	case "Instance":
		return c.b.newInstance(ctx, args)
	case "Memory":
		return c.b.newMemory(ctx, args)
	case "Table":
		return c.b.newTable(ctx, args)
	case "Global":
		return c.b.newGlobal(ctx, args)
	default:
		return nil, errors.Unsupported(errors.PhaseBridge, "constructor "+c.name)
	}
}

// moduleValue emulates WebAssembly.Module: the compiled wazero module plus
// the parsed signature tables.
type moduleValue struct {
	unsupported
	compiled wazero.CompiledModule
	parsed   *wasm.ParsedModule
}

// instanceValue emulates WebAssembly.Instance.
type instanceValue struct {
	unsupported
	exports *objectValue
}

func (i *instanceValue) Get(property string) (bridge.Value, error) {
	if property == "exports" {
		return i.exports, nil
	}
	return null(), nil
}

// memoryValue emulates WebAssembly.Memory over api.Memory. srcModule and
// srcName record which instantiated module exports it, so import shims can
// re-export it by name.
type memoryValue struct {
	unsupported
	mem       api.Memory
	srcModule string
	srcName   string
}

func (m *memoryValue) Get(property string) (bridge.Value, error) {
	if property == "buffer" {
		return &bufferValue{unsupported{"buffer"}, m.mem}, nil
	}
	return null(), nil
}

func (m *memoryValue) Call(ctx context.Context, method string, args ...bridge.Value) (bridge.Value, error) {
	if method != "grow" {
		return nil, m.err("call " + method)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("TypeError: grow wants 1 argument")
	}
	delta, err := args[0].Int()
	if err != nil {
		return nil, err
	}
	prev, ok := m.mem.Grow(uint32(delta))
	if !ok {
		return nil, fmt.Errorf("RangeError: failed to grow memory by %d pages", delta)
	}
	return number(float64(prev)), nil
}

// bufferValue emulates the ArrayBuffer behind a memory.
type bufferValue struct {
	unsupported
	mem api.Memory
}

func (b *bufferValue) Get(property string) (bridge.Value, error) {
	if property == "byteLength" {
		return number(float64(b.mem.Size())), nil
	}
	return null(), nil
}

// globalValue emulates WebAssembly.Global over api.Global.
type globalValue struct {
	unsupported
	g         api.Global
	srcModule string
	srcName   string
}

func (g *globalValue) Get(property string) (bridge.Value, error) {
	if property != "value" {
		return null(), nil
	}
	raw := g.g.Get()
	switch g.g.Type() {
	case api.ValueTypeI32:
		return number(float64(api.DecodeI32(raw))), nil
	case api.ValueTypeI64:
		return bigint(int64(raw)), nil
	case api.ValueTypeF32:
		return number(float64(api.DecodeF32(raw))), nil
	case api.ValueTypeF64:
		return number(api.DecodeF64(raw)), nil
	default:
		return nil, errors.Unsupported(errors.PhaseBridge, "global value type")
	}
}

func (g *globalValue) Set(property string, v bridge.Value) error {
	if property != "value" {
		return g.err("set " + property)
	}
	mg, ok := g.g.(api.MutableGlobal)
	if !ok {
		return fmt.Errorf("TypeError: global is immutable")
	}
	var raw uint64
	switch g.g.Type() {
	case api.ValueTypeI32:
		n, err := v.Int()
		if err != nil {
			return err
		}
		raw = api.EncodeI32(int32(n))
	case api.ValueTypeI64:
		n, err := v.Int()
		if err != nil {
			return err
		}
		raw = uint64(n)
	case api.ValueTypeF32:
		f, err := v.Float()
		if err != nil {
			return err
		}
		raw = api.EncodeF32(float32(f))
	case api.ValueTypeF64:
		f, err := v.Float()
		if err != nil {
			return err
		}
		raw = api.EncodeF64(f)
	default:
		return errors.Unsupported(errors.PhaseBridge, "global value type")
	}
	mg.Set(raw)
	return nil
}

// tableValue emulates WebAssembly.Table. Size and grow run through helper
// functions of a synthesized module; element contents are mirrored on the Go
// side, so get only observes elements written through set.
type tableValue struct {
	unsupported
	sizeFn    api.Function
	growFn    api.Function
	mirror    map[uint32]bridge.Value
	srcModule string
	srcName   string
}

func (t *tableValue) size(ctx context.Context) (uint32, error) {
	out, err := t.sizeFn.Call(ctx)
	if err != nil {
		return 0, err
	}
	return uint32(api.DecodeI32(out[0])), nil
}

func (t *tableValue) Get(property string) (bridge.Value, error) {
	if property != "length" {
		return null(), nil
	}
	n, err := t.size(context.Background())
	if err != nil {
		return nil, err
	}
	return number(float64(n)), nil
}

func (t *tableValue) Call(ctx context.Context, method string, args ...bridge.Value) (bridge.Value, error) {
	switch method {
	case "get":
		idx, err := args[0].Int()
		if err != nil {
			return nil, err
		}
		size, err := t.size(ctx)
		if err != nil {
			return nil, err
		}
		if idx < 0 || uint32(idx) >= size {
			return nil, fmt.Errorf("RangeError: table index %d out of range", idx)
		}
		if v, ok := t.mirror[uint32(idx)]; ok {
			return v, nil
		}
		return null(), nil
	case "set":
		idx, err := args[0].Int()
		if err != nil {
			return nil, err
		}
		size, err := t.size(ctx)
		if err != nil {
			return nil, err
		}
		if idx < 0 || uint32(idx) >= size {
			return nil, fmt.Errorf("RangeError: table index %d out of range", idx)
		}
		if len(args) < 2 || args[1].IsNull() {
			delete(t.mirror, uint32(idx))
		} else {
			t.mirror[uint32(idx)] = args[1]
		}
		return null(), nil
	case "grow":
		delta, err := args[0].Int()
		if err != nil {
			return nil, err
		}
		out, err := t.growFn.Call(ctx, api.EncodeI32(int32(delta)))
		if err != nil {
			return nil, err
		}
		prev := api.DecodeI32(out[0])
		if prev < 0 {
			return nil, fmt.Errorf("RangeError: failed to grow table by %d", delta)
		}
		return number(float64(prev)), nil
	default:
		return nil, t.err("call " + method)
	}
}
