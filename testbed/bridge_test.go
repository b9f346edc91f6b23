package testbed

import (
	"context"
	"testing"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

// Drives the bridge the way the runtime layer does: compile a module
// through the WebAssembly namespace, instantiate it with a host import,
// and call an export.
func TestBridge_CompileInstantiateCall(t *testing.T) {
	ctx := context.Background()
	rt := New(ctx)
	defer func() {
		if err := rt.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	sig := wasm.FuncType{
		Params:  []wasm.ValueType{wasm.ValueI32, wasm.ValueI32},
		Results: []wasm.ValueType{wasm.ValueI32},
	}
	b := wasm.NewModuleBuilder()
	b.ImportFunc("env", "add", sig)
	run := b.AddFunc(sig, []byte{0x20, 0x00, 0x20, 0x01, 0x10, 0x00})
	b.ExportFunc("run", run)

	ns, err := rt.WebAssembly()
	if err != nil {
		t.Fatalf("WebAssembly: %v", err)
	}
	moduleCtor, err := ns.Get("Module")
	if err != nil {
		t.Fatalf("Get Module: %v", err)
	}
	bin, err := rt.Bytes(b.Build())
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	mod, err := moduleCtor.New(ctx, bin)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	add, release, err := rt.Func(func(ctx context.Context, this bridge.Value, args []bridge.Value) (bridge.Value, error) {
		a, err := args[0].Int()
		if err != nil {
			return nil, err
		}
		c, err := args[1].Int()
		if err != nil {
			return nil, err
		}
		return rt.Int32(int32(a + c)), nil
	})
	if err != nil {
		t.Fatalf("Func: %v", err)
	}
	defer release()

	env, err := rt.Object([]bridge.Entry{{Name: "add", Value: add}})
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	importObject, err := rt.Object([]bridge.Entry{{Name: "env", Value: env}})
	if err != nil {
		t.Fatalf("Object: %v", err)
	}

	instanceCtor, err := ns.Get("Instance")
	if err != nil {
		t.Fatalf("Get Instance: %v", err)
	}
	inst, err := instanceCtor.New(ctx, mod, importObject)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	exports, err := inst.Get("exports")
	if err != nil {
		t.Fatalf("Get exports: %v", err)
	}
	runFn, err := exports.Get("run")
	if err != nil {
		t.Fatalf("Get run: %v", err)
	}
	out, err := runFn.Invoke(ctx, rt.Int32(20), rt.Int32(22))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	got, err := out.Int()
	if err != nil {
		t.Fatalf("Int: %v", err)
	}
	if got != 42 {
		t.Errorf("run(20, 22) = %d, want 42", got)
	}
}

func TestBridge_ReleasedFuncRefuses(t *testing.T) {
	ctx := context.Background()
	rt := New(ctx)
	defer rt.Close(ctx)

	fn, release, err := rt.Func(func(ctx context.Context, this bridge.Value, args []bridge.Value) (bridge.Value, error) {
		return rt.Null(), nil
	})
	if err != nil {
		t.Fatalf("Func: %v", err)
	}
	if _, err := fn.Invoke(ctx); err != nil {
		t.Fatalf("Invoke before release: %v", err)
	}
	release()
	release()
	if _, err := fn.Invoke(ctx); err == nil {
		t.Errorf("Invoke after release succeeded")
	}
}
