package testbed

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

// Raw bodies of the table helper functions. Both address table index 0,
// which is the sole (imported or local) table of the synthesized module.
var (
	tableSizeBody = []byte{0xFC, 0x10, 0x00}                         // table.size 0
	tableGrowBody = []byte{0xD0, 0x70, 0x20, 0x00, 0xFC, 0x0F, 0x00} // ref.null func; local.get 0; table.grow 0
)

var (
	sizeSig = wasm.FuncType{Results: []wasm.ValueType{wasm.ValueI32}}
	growSig = wasm.FuncType{Params: []wasm.ValueType{wasm.ValueI32}, Results: []wasm.ValueType{wasm.ValueI32}}
)

// newModule compiles a module binary.
func (b *Bridge) newModule(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("TypeError: Module wants 1 argument")
	}
	buf, ok := args[0].(*bytesValue)
	if !ok {
		return nil, fmt.Errorf("TypeError: Module wants a buffer source")
	}
	parsed, err := wasm.Parse(buf.data)
	if err != nil {
		return nil, fmt.Errorf("CompileError: %w", err)
	}
	compiled, err := b.rt.CompileModule(ctx, buf.data)
	if err != nil {
		return nil, fmt.Errorf("CompileError: %w", err)
	}
	return &moduleValue{unsupported{"module"}, compiled, parsed}, nil
}

// newMemory synthesizes a provider module exporting a memory with the
// descriptor's limits.
func (b *Bridge) newMemory(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("TypeError: Memory wants a descriptor")
	}
	ty, err := limitsFromDescriptor(args[0], "initial")
	if err != nil {
		return nil, err
	}
	sb := wasm.NewModuleBuilder()
	sb.ExportMemory("memory", sb.AddMemory(wasm.MemoryType{Min: ty.Min, Max: ty.Max}))
	name := b.moduleName("memory")
	mod, err := b.instantiateSynth(ctx, sb, name)
	if err != nil {
		return nil, err
	}
	return &memoryValue{
		unsupported: unsupported{"memory"},
		mem:         mod.ExportedMemory("memory"),
		srcModule:   name,
		srcName:     "memory",
	}, nil
}

// newGlobal synthesizes a provider module exporting a global initialized
// from the given value.
func (b *Bridge) newGlobal(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("TypeError: Global wants a descriptor and a value")
	}
	desc := args[0]
	vtName, err := getString(desc, "value")
	if err != nil {
		return nil, err
	}
	vt, err := descriptorType(vtName)
	if err != nil {
		return nil, err
	}
	mutable := false
	if mv, err := desc.Get("mutable"); err == nil && !mv.IsNull() {
		mutable, _ = mv.Bool()
	}
	bits, err := initBits(args[1], vt)
	if err != nil {
		return nil, err
	}

	sb := wasm.NewModuleBuilder()
	gi := sb.AddGlobal(wasm.GlobalType{Content: vt, Mutable: mutable}, wasm.ConstInit(vt, bits))
	sb.ExportGlobal("global", gi)
	name := b.moduleName("global")
	mod, err := b.instantiateSynth(ctx, sb, name)
	if err != nil {
		return nil, err
	}
	return &globalValue{
		unsupported: unsupported{"global"},
		g:           mod.ExportedGlobal("global"),
		srcModule:   name,
		srcName:     "global",
	}, nil
}

// newTable synthesizes a provider module exporting a funcref table together
// with size and grow helpers.
func (b *Bridge) newTable(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("TypeError: Table wants a descriptor")
	}
	desc := args[0]
	elem, err := getString(desc, "element")
	if err != nil {
		return nil, err
	}
	if elem != "anyfunc" {
		return nil, fmt.Errorf("TypeError: unsupported table element %q", elem)
	}
	limits, err := limitsFromDescriptor(desc, "initial")
	if err != nil {
		return nil, err
	}

	sb := wasm.NewModuleBuilder()
	ti := sb.AddTable(wasm.TableType{Element: wasm.ValueFuncRef, Min: limits.Min, Max: limits.Max})
	sb.ExportTable("table", ti)
	sb.ExportFunc("size", sb.AddFunc(sizeSig, tableSizeBody))
	sb.ExportFunc("grow", sb.AddFunc(growSig, tableGrowBody))
	name := b.moduleName("table")
	mod, err := b.instantiateSynth(ctx, sb, name)
	if err != nil {
		return nil, err
	}
	return &tableValue{
		unsupported: unsupported{"table"},
		sizeFn:      mod.ExportedFunction("size"),
		growFn:      mod.ExportedFunction("grow"),
		mirror:      make(map[uint32]bridge.Value),
		srcModule:   name,
		srcName:     "table",
	}, nil
}

// exportedTable wraps a table exported by an instantiated module, reaching
// it through a helper module that imports the table and exposes size and
// grow.
func (b *Bridge) exportedTable(ctx context.Context, srcModule, srcName string, tt wasm.TableType) (*tableValue, error) {
	sb := wasm.NewModuleBuilder()
	sb.ImportTable(srcModule, srcName, tt)
	sb.ExportFunc("size", sb.AddFunc(sizeSig, tableSizeBody))
	sb.ExportFunc("grow", sb.AddFunc(growSig, tableGrowBody))
	mod, err := b.instantiateSynth(ctx, sb, b.moduleName("tablehelper"))
	if err != nil {
		return nil, err
	}
	return &tableValue{
		unsupported: unsupported{"table"},
		sizeFn:      mod.ExportedFunction("size"),
		growFn:      mod.ExportedFunction("grow"),
		mirror:      make(map[uint32]bridge.Value),
		srcModule:   srcModule,
		srcName:     srcName,
	}, nil
}

// newInstance instantiates a module against a two-level import object.
// Function imports are routed through wazero host modules; memory, global,
// and table imports are satisfied by synthesized re-export shims named after
// the import's module name.
func (b *Bridge) newInstance(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("TypeError: Instance wants a module")
	}
	mod, ok := args[0].(*moduleValue)
	if !ok {
		return nil, fmt.Errorf("TypeError: Instance wants a module")
	}

	provided, err := readImportObject(args)
	if err != nil {
		return nil, err
	}
	if err := b.linkImports(ctx, mod, provided); err != nil {
		return nil, err
	}

	instName := b.moduleName("inst")
	inst, err := b.rt.InstantiateModule(ctx, mod.compiled, wazero.NewModuleConfig().WithName(instName))
	if err != nil {
		return nil, fmt.Errorf("LinkError: %w", err)
	}

	exports := newObject(nil)
	for name, ext := range mod.parsed.Exports {
		switch ext.Kind {
		case wasm.ExternFunc:
			exports.set(name, b.exportedFunc(inst.ExportedFunction(name), *ext.Func))
		case wasm.ExternMemory:
			exports.set(name, &memoryValue{
				unsupported: unsupported{"memory"},
				mem:         inst.ExportedMemory(name),
				srcModule:   instName,
				srcName:     name,
			})
		case wasm.ExternGlobal:
			exports.set(name, &globalValue{
				unsupported: unsupported{"global"},
				g:           inst.ExportedGlobal(name),
				srcModule:   instName,
				srcName:     name,
			})
		case wasm.ExternTable:
			tv, err := b.exportedTable(ctx, instName, name, *ext.Table)
			if err != nil {
				return nil, err
			}
			exports.set(name, tv)
		}
	}
	return &instanceValue{unsupported{"instance"}, exports}, nil
}

// readImportObject flattens the two-level import object.
func readImportObject(args []bridge.Value) (map[wasm.ImportKey]bridge.Value, error) {
	provided := make(map[wasm.ImportKey]bridge.Value)
	if len(args) < 2 || args[1] == nil || args[1].IsNull() {
		return provided, nil
	}
	outer, err := args[1].Entries()
	if err != nil {
		return nil, err
	}
	for _, modEntry := range outer {
		inner, err := modEntry.Value.Entries()
		if err != nil {
			return nil, err
		}
		for _, item := range inner {
			provided[wasm.ImportKey{Module: modEntry.Name, Name: item.Name}] = item.Value
		}
	}
	return provided, nil
}

// linkImports materializes one wazero module per import-module name so name
// resolution satisfies the target module's imports.
func (b *Bridge) linkImports(ctx context.Context, mod *moduleValue, provided map[wasm.ImportKey]bridge.Value) error {
	grouped := make(map[string][]wasm.ImportKey)
	var order []string
	for key := range mod.parsed.Imports {
		if _, ok := grouped[key.Module]; !ok {
			order = append(order, key.Module)
		}
		grouped[key.Module] = append(grouped[key.Module], key)
	}

	for _, modName := range order {
		hostName := b.moduleName("host")
		hb := b.rt.NewHostModuleBuilder(hostName)
		haveFuncs := false
		sb := wasm.NewModuleBuilder()

		for _, key := range grouped[modName] {
			declared := mod.parsed.Imports[key]
			value, ok := provided[key]
			if !ok {
				return fmt.Errorf("LinkError: missing import %s", key)
			}
			switch declared.Kind {
			case wasm.ExternFunc:
				sig := *declared.Func
				params, err := apiValueTypes(sig.Params)
				if err != nil {
					return err
				}
				results, err := apiValueTypes(sig.Results)
				if err != nil {
					return err
				}
				hb = hb.NewFunctionBuilder().
					WithGoModuleFunction(b.hostHandler(value, sig), params, results).
					Export(key.Name)
				haveFuncs = true
				sb.ExportFunc(key.Name, sb.ImportFunc(hostName, key.Name, sig))
			case wasm.ExternMemory:
				mv, ok := value.(*memoryValue)
				if !ok {
					return fmt.Errorf("LinkError: import %s is not a memory", key)
				}
				sb.ExportMemory(key.Name, sb.ImportMemory(mv.srcModule, mv.srcName, *declared.Memory))
			case wasm.ExternGlobal:
				gv, ok := value.(*globalValue)
				if !ok {
					return fmt.Errorf("LinkError: import %s is not a global", key)
				}
				sb.ExportGlobal(key.Name, sb.ImportGlobal(gv.srcModule, gv.srcName, *declared.Global))
			case wasm.ExternTable:
				tv, ok := value.(*tableValue)
				if !ok {
					return fmt.Errorf("LinkError: import %s is not a table", key)
				}
				sb.ExportTable(key.Name, sb.ImportTable(tv.srcModule, tv.srcName, *declared.Table))
			}
		}

		if haveFuncs {
			if _, err := hb.Instantiate(ctx); err != nil {
				return fmt.Errorf("LinkError: %w", err)
			}
		}
		if _, err := b.instantiateSynth(ctx, sb, modName); err != nil {
			return err
		}
	}
	return nil
}

// hostHandler adapts an emulated JS callable to a wazero host function.
// Errors from the callable trap the calling wasm frame.
func (b *Bridge) hostHandler(fn bridge.Value, sig wasm.FuncType) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		args := make([]bridge.Value, len(sig.Params))
		for i, p := range sig.Params {
			v, err := b.lift(stack[i], p)
			if err != nil {
				panic(err)
			}
			args[i] = v
		}
		out, err := fn.Invoke(ctx, args...)
		if err != nil {
			panic(err)
		}
		switch len(sig.Results) {
		case 0:
		case 1:
			raw, err := b.lower(out, sig.Results[0])
			if err != nil {
				panic(err)
			}
			stack[0] = raw
		default:
			for i, res := range sig.Results {
				elem, err := out.Index(i)
				if err != nil {
					panic(err)
				}
				raw, err := b.lower(elem, res)
				if err != nil {
					panic(err)
				}
				stack[i] = raw
			}
		}
	}
}

// exportedFunc wraps an exported wazero function as an emulated JS callable.
func (b *Bridge) exportedFunc(fn api.Function, sig wasm.FuncType) *funcValue {
	return newFunc(func(ctx context.Context, args []bridge.Value) (bridge.Value, error) {
		if len(args) != len(sig.Params) {
			return nil, fmt.Errorf("TypeError: expected %d arguments, got %d", len(sig.Params), len(args))
		}
		raw := make([]uint64, len(args))
		for i, a := range args {
			r, err := b.lower(a, sig.Params[i])
			if err != nil {
				return nil, err
			}
			raw[i] = r
		}
		results, err := fn.Call(ctx, raw...)
		if err != nil {
			return nil, err
		}
		switch len(sig.Results) {
		case 0:
			return null(), nil
		case 1:
			return b.lift(results[0], sig.Results[0])
		default:
			elems := make([]bridge.Value, len(sig.Results))
			for i, res := range sig.Results {
				v, err := b.lift(results[i], res)
				if err != nil {
					return nil, err
				}
				elems[i] = v
			}
			return newArray(elems), nil
		}
	})
}

// instantiateSynth builds and instantiates a synthesized module under the
// given name.
func (b *Bridge) instantiateSynth(ctx context.Context, sb *wasm.ModuleBuilder, name string) (api.Module, error) {
	compiled, err := b.rt.CompileModule(ctx, sb.Build())
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBridge, errors.KindInvalidData, err, "synthesized module")
	}
	mod, err := b.rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, fmt.Errorf("LinkError: %w", err)
	}
	return mod, nil
}

// limitsFromDescriptor reads {initial|minimum, maximum?} limits.
func limitsFromDescriptor(desc bridge.Value, primary string) (wasm.MemoryType, error) {
	initial, err := desc.Get(primary)
	if err != nil {
		return wasm.MemoryType{}, err
	}
	if initial.IsNull() {
		initial, err = desc.Get("minimum")
		if err != nil {
			return wasm.MemoryType{}, err
		}
	}
	if initial.IsNull() {
		return wasm.MemoryType{}, fmt.Errorf("TypeError: descriptor needs %s", primary)
	}
	min, err := initial.Int()
	if err != nil {
		return wasm.MemoryType{}, err
	}
	out := wasm.MemoryType{Min: uint32(min)}
	maxV, err := desc.Get("maximum")
	if err == nil && !maxV.IsNull() {
		m, err := maxV.Int()
		if err != nil {
			return wasm.MemoryType{}, err
		}
		max := uint32(m)
		out.Max = &max
	}
	return out, nil
}

func getString(desc bridge.Value, property string) (string, error) {
	v, err := desc.Get(property)
	if err != nil {
		return "", err
	}
	if v.IsNull() {
		return "", fmt.Errorf("TypeError: descriptor needs %s", property)
	}
	return v.String()
}

// descriptorType maps a JS API type descriptor to a value type.
func descriptorType(name string) (wasm.ValueType, error) {
	switch name {
	case "i32":
		return wasm.ValueI32, nil
	case "i64":
		return wasm.ValueI64, nil
	case "f32":
		return wasm.ValueF32, nil
	case "f64":
		return wasm.ValueF64, nil
	case "anyfunc":
		return wasm.ValueFuncRef, nil
	case "externref":
		return wasm.ValueExternRef, nil
	default:
		return 0, fmt.Errorf("TypeError: unknown type descriptor %q", name)
	}
}

// initBits extracts the raw init bits of a global's initial value.
func initBits(v bridge.Value, t wasm.ValueType) (uint64, error) {
	switch t {
	case wasm.ValueI32:
		n, err := v.Int()
		if err != nil {
			return 0, err
		}
		return uint64(uint32(int32(n))), nil
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
		return uint64(math.Float32bits(float32(f))), nil
	case wasm.ValueF64:
		f, err := v.Float()
		if err != nil {
			return 0, err
		}
		return math.Float64bits(f), nil
	case wasm.ValueFuncRef, wasm.ValueExternRef:
		if !v.IsNull() {
			return 0, fmt.Errorf("TypeError: reference globals initialize to null")
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("TypeError: unsupported global type")
	}
}
