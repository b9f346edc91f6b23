package runtime

import (
	"context"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
	"go.uber.org/zap"
)

// Extern is one importable or exportable item. Exactly the field matching
// Kind is non-nil.
type Extern struct {
	Func   *Func
	Global *Global
	Memory *Memory
	Table  *Table
	Kind   wasm.ExternKind
}

// FuncExtern wraps a function as an extern.
func FuncExtern(f *Func) Extern { return Extern{Kind: wasm.ExternFunc, Func: f} }

// GlobalExtern wraps a global as an extern.
func GlobalExtern(g *Global) Extern { return Extern{Kind: wasm.ExternGlobal, Global: g} }

// MemoryExtern wraps a memory as an extern.
func MemoryExtern(m *Memory) Extern { return Extern{Kind: wasm.ExternMemory, Memory: m} }

// TableExtern wraps a table as an extern.
func TableExtern(t *Table) Extern { return Extern{Kind: wasm.ExternTable, Table: t} }

// foreign lowers the extern to its host handle, verifying store ownership.
func (e Extern) foreign(scope *storeScope) (bridge.Value, error) {
	switch e.Kind {
	case wasm.ExternFunc:
		if e.Func.scope != scope {
			return nil, errors.CrossStore(errors.PhaseInstantiate)
		}
		return e.Func.foreign(), nil
	case wasm.ExternGlobal:
		if e.Global.scope != scope {
			return nil, errors.CrossStore(errors.PhaseInstantiate)
		}
		return e.Global.handle, nil
	case wasm.ExternMemory:
		if e.Memory.scope != scope {
			return nil, errors.CrossStore(errors.PhaseInstantiate)
		}
		return e.Memory.handle, nil
	case wasm.ExternTable:
		if e.Table.scope != scope {
			return nil, errors.CrossStore(errors.PhaseInstantiate)
		}
		return e.Table.handle, nil
	default:
		return nil, errors.Unsupported(errors.PhaseInstantiate, e.Kind.String())
	}
}

// Imports collects the items satisfying a module's imports. Entries keep
// insertion order; defining the same two-level name twice is rejected at
// instantiation.
type Imports struct {
	entries []importEntry
}

type importEntry struct {
	key wasm.ImportKey
	ext Extern
}

// NewImports returns an empty import set.
func NewImports() *Imports {
	return &Imports{}
}

// Define adds an item under a two-level import name and returns the set for
// chaining.
func (im *Imports) Define(module, name string, ext Extern) *Imports {
	im.entries = append(im.entries, importEntry{
		key: wasm.ImportKey{Module: module, Name: name},
		ext: ext,
	})
	return im
}

// Instance is an instantiated module with resolved exports.
type Instance struct {
	handle  bridge.Value
	exports map[string]Extern
}

// NewInstance instantiates module in the store with the given imports. All
// imported items must belong to the store. Start functions run during host
// instantiation and may call imported host functions re-entrantly.
func NewInstance(ctx context.Context, store AsContextMut, module *Module, imports *Imports) (*Instance, error) {
	scope := store.storeScopeMut()
	if scope.closed {
		return nil, errors.StoreDropped(errors.PhaseInstantiate)
	}
	if module.engine.state != scope.engine.state {
		return nil, errors.CrossStore(errors.PhaseInstantiate)
	}

	importObj, err := buildImportObject(scope, imports)
	if err != nil {
		return nil, err
	}

	ctor, err := webAssemblyCtor(scope.engine, "Instance")
	if err != nil {
		return nil, err
	}
	handle, err := ctor.New(ctx, module.handle, importObj)
	if err != nil {
		return nil, errors.Host(errors.PhaseInstantiate, "WebAssembly.Instance", err)
	}

	exports, err := resolveExports(ctx, scope, module, handle)
	if err != nil {
		return nil, err
	}

	inst := &Instance{handle: handle, exports: exports}
	scope.instances = append(scope.instances, inst)
	log().Debug("module instantiated", zap.Int("exports", len(exports)))
	return inst, nil
}

// Export returns the named export.
func (i *Instance) Export(name string) (Extern, bool) {
	e, ok := i.exports[name]
	return e, ok
}

// Exports returns all exports by name.
func (i *Instance) Exports() map[string]Extern {
	out := make(map[string]Extern, len(i.exports))
	for k, v := range i.exports {
		out[k] = v
	}
	return out
}

// buildImportObject lowers the import set into the two-level object shape
// the host instantiation API expects.
func buildImportObject(scope *storeScope, imports *Imports) (bridge.Value, error) {
	rt := scope.rt()
	if imports == nil {
		return rt.Object(nil)
	}

	seen := make(map[wasm.ImportKey]struct{}, len(imports.entries))
	modules := make(map[string][]bridge.Entry)
	var order []string
	for _, entry := range imports.entries {
		if _, dup := seen[entry.key]; dup {
			return nil, errors.DuplicateImport(entry.key.Module, entry.key.Name)
		}
		seen[entry.key] = struct{}{}
		f, err := entry.ext.foreign(scope)
		if err != nil {
			return nil, err
		}
		if _, ok := modules[entry.key.Module]; !ok {
			order = append(order, entry.key.Module)
		}
		modules[entry.key.Module] = append(modules[entry.key.Module], bridge.Entry{
			Name:  entry.key.Name,
			Value: f,
		})
	}

	outer := make([]bridge.Entry, 0, len(order))
	for _, mod := range order {
		inner, err := rt.Object(modules[mod])
		if err != nil {
			return nil, errors.Wrap(errors.PhaseInstantiate, errors.KindHost, err, "import object")
		}
		outer = append(outer, bridge.Entry{Name: mod, Value: inner})
	}
	obj, err := rt.Object(outer)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInstantiate, errors.KindHost, err, "import object")
	}
	return obj, nil
}

// resolveExports walks the host exports object and wraps each item with its
// declared type. Every host export must have a parsed declaration.
func resolveExports(ctx context.Context, scope *storeScope, module *Module, handle bridge.Value) (map[string]Extern, error) {
	obj, err := handle.Get("exports")
	if err != nil {
		return nil, errors.Host(errors.PhaseInstantiate, "exports object", err)
	}
	entries, err := obj.Entries()
	if err != nil {
		return nil, errors.Host(errors.PhaseInstantiate, "exports object", err)
	}

	out := make(map[string]Extern, len(entries))
	for _, entry := range entries {
		declared, ok := module.parsed.Exports[entry.Name]
		if !ok {
			return nil, errors.Invariant(errors.PhaseInstantiate,
				"host exported %q with no declared signature", entry.Name)
		}
		switch declared.Kind {
		case wasm.ExternFunc:
			out[entry.Name] = FuncExtern(newExportedFunc(scope, entry.Value, *declared.Func))
		case wasm.ExternGlobal:
			g, err := fromExportedGlobal(ctx, scope, entry.Value, *declared.Global)
			if err != nil {
				return nil, err
			}
			out[entry.Name] = GlobalExtern(g)
		case wasm.ExternMemory:
			m, err := fromExportedMemory(ctx, scope, entry.Value, *declared.Memory)
			if err != nil {
				return nil, err
			}
			out[entry.Name] = MemoryExtern(m)
		case wasm.ExternTable:
			t, err := fromExportedTable(ctx, scope, entry.Value, *declared.Table)
			if err != nil {
				return nil, err
			}
			out[entry.Name] = TableExtern(t)
		}
	}
	return out, nil
}
