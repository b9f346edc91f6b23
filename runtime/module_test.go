package runtime

import (
	"context"
	"testing"

	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

func TestModule_ImportsAndExports(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	b := wasm.NewModuleBuilder()
	b.ImportFunc("env", "log", i32Sig(1, 0))
	b.ImportMemory("env", "mem", wasm.MemoryType{Min: 1})
	idx := b.AddFunc(i32Sig(1, 1), []byte{0x20, 0x00})
	b.ExportFunc("id", idx)

	mod, err := NewModule(ctx, store.Engine(), b.Build())
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	imports := mod.Imports()
	if len(imports) != 2 {
		t.Fatalf("Imports = %v", imports)
	}
	logTy := imports[wasm.ImportKey{Module: "env", Name: "log"}]
	if logTy.Kind != wasm.ExternFunc || logTy.Func == nil || !logTy.Func.Equal(i32Sig(1, 0)) {
		t.Errorf("env.log type = %v", logTy)
	}
	memTy := imports[wasm.ImportKey{Module: "env", Name: "mem"}]
	if memTy.Kind != wasm.ExternMemory || memTy.Memory == nil || memTy.Memory.Min != 1 {
		t.Errorf("env.mem type = %v", memTy)
	}

	exports := mod.Exports()
	idTy, ok := exports["id"]
	if !ok || idTy.Kind != wasm.ExternFunc || idTy.Func == nil || !idTy.Func.Equal(i32Sig(1, 1)) {
		t.Errorf("export id type = %v, ok=%v", idTy, ok)
	}

	// The accessors hand out copies.
	delete(imports, wasm.ImportKey{Module: "env", Name: "log"})
	if len(mod.Imports()) != 2 {
		t.Errorf("Imports map aliased internal state")
	}
}

func TestModule_InvalidBinary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := NewModule(ctx, store.Engine(), []byte{0x00, 0x61, 0x73})
	var e *errors.Error
	if !errors.As(err, &e) {
		t.Fatalf("NewModule = %v, want *errors.Error", err)
	}
	if e.Phase != errors.PhaseParse && e.Phase != errors.PhaseCompile {
		t.Errorf("Phase = %s", e.Phase)
	}
}

func TestInstance_DuplicateImport(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	f, err := store.NewFunc(ctx, i32Sig(0, 1), func(c StoreContextMut[int], args, results []Value) error {
		results[0] = NewI32(0)
		return nil
	})
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}

	b := wasm.NewModuleBuilder()
	b.ImportFunc("env", "f", i32Sig(0, 1))
	mod, err := NewModule(ctx, store.Engine(), b.Build())
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	imports := NewImports().
		Define("env", "f", FuncExtern(f)).
		Define("env", "f", FuncExtern(f))
	_, err = NewInstance(ctx, store, mod, imports)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindDuplicateImport {
		t.Errorf("NewInstance = %v, want duplicate_import", err)
	}
}

func TestInstance_MissingImport(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	b := wasm.NewModuleBuilder()
	b.ImportFunc("env", "absent", i32Sig(0, 1))
	mod, err := NewModule(ctx, store.Engine(), b.Build())
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	_, err = NewInstance(ctx, store, mod, NewImports())
	var e *errors.Error
	if !errors.As(err, &e) || e.Phase != errors.PhaseInstantiate {
		t.Errorf("NewInstance = %v, want instantiate phase error", err)
	}
}

func TestInstance_ClosedStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	b := wasm.NewModuleBuilder()
	idx := b.AddFunc(i32Sig(1, 1), []byte{0x20, 0x00})
	b.ExportFunc("id", idx)
	mod, err := NewModule(ctx, store.Engine(), b.Build())
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	store.Close()
	_, err = NewInstance(ctx, store, mod, NewImports())
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindStoreDropped {
		t.Errorf("NewInstance on closed store = %v, want store_dropped", err)
	}
}
