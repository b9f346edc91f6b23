package runtime

import (
	"context"
	"fmt"
	"testing"

	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

func TestFunc_HostRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sig := wasm.FuncType{
		Params:  []wasm.ValueType{wasm.ValueI32, wasm.ValueI32},
		Results: []wasm.ValueType{wasm.ValueI32},
	}
	add, err := store.NewFunc(ctx, sig, func(c StoreContextMut[int], args, results []Value) error {
		results[0] = NewI32(args[0].I32() + args[1].I32())
		return nil
	})
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}
	if !add.Type().Equal(sig) {
		t.Errorf("Type() = %s, want %s", add.Type(), sig)
	}

	results := make([]Value, 1)
	if err := add.Call(ctx, store, []Value{NewI32(3), NewI32(4)}, results); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !results[0].Equal(NewI32(7)) {
		t.Errorf("add(3, 4) = %s, want i32(7)", results[0])
	}
}

func TestFunc_MultiValueResults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sig := wasm.FuncType{
		Params:  []wasm.ValueType{wasm.ValueI32},
		Results: []wasm.ValueType{wasm.ValueI32, wasm.ValueI64},
	}
	split, err := store.NewFunc(ctx, sig, func(c StoreContextMut[int], args, results []Value) error {
		results[0] = NewI32(args[0].I32() * 2)
		results[1] = NewI64(int64(args[0].I32()) * 3)
		return nil
	})
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}

	results := make([]Value, 2)
	if err := split.Call(ctx, store, []Value{NewI32(5)}, results); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !results[0].Equal(NewI32(10)) || !results[1].Equal(NewI64(15)) {
		t.Errorf("split(5) = %s, %s, want i32(10), i64(15)", results[0], results[1])
	}
}

func TestFunc_ArityMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	f, err := store.NewFunc(ctx, wasm.FuncType{Params: []wasm.ValueType{wasm.ValueI32}},
		func(c StoreContextMut[int], args, results []Value) error { return nil })
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}

	err = f.Call(ctx, store, nil, nil)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindSignatureMismatch {
		t.Errorf("Call with no args = %v, want signature_mismatch", err)
	}
	err = f.Call(ctx, store, []Value{NewI32(1)}, []Value{NewI32(0)})
	if !errors.As(err, &e) || e.Kind != errors.KindSignatureMismatch {
		t.Errorf("Call with extra result slot = %v, want signature_mismatch", err)
	}
}

func TestFunc_HostErrorPropagates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	boom := fmt.Errorf("boom")
	f, err := store.NewFunc(ctx, wasm.FuncType{}, func(c StoreContextMut[int], args, results []Value) error {
		return boom
	})
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}

	err = f.Call(ctx, store, nil, nil)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindHost {
		t.Errorf("Call = %v, want host kind", err)
	}
}

func TestFunc_MutatesUserState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	f, err := store.NewFunc(ctx, wasm.FuncType{}, func(c StoreContextMut[int], args, results []Value) error {
		*c.Data()++
		return nil
	})
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := f.Call(ctx, store, nil, nil); err != nil {
			t.Fatalf("Call %d: %v", i, err)
		}
	}
	if got := *store.Data(); got != 3 {
		t.Errorf("user state = %d, want 3", got)
	}
}
