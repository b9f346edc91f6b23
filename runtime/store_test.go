package runtime

import (
	"context"
	"testing"

	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

func TestStore_Data(t *testing.T) {
	store := newTestStore(t)
	*store.Data() = 41
	if got := store.Context().Data(); got != 41 {
		t.Errorf("Context().Data() = %d, want 41", got)
	}
	*store.ContextMut().Data() = 42
	if got := *store.Data(); got != 42 {
		t.Errorf("Data() = %d, want 42", got)
	}
}

func TestStore_CloseIdempotent(t *testing.T) {
	store := newTestStore(t)
	store.Close()
	store.Close()
	if _, err := store.NewExternRef("x"); err == nil {
		t.Fatalf("NewExternRef after close succeeded, want store_dropped")
	}
}

func TestStore_IntoData(t *testing.T) {
	store := newTestStore(t)
	*store.Data() = 7
	if got := store.IntoData(); got != 7 {
		t.Errorf("IntoData() = %d, want 7", got)
	}
	if _, err := store.NewExternRef("x"); err == nil {
		t.Fatalf("store still usable after IntoData")
	}
}

func TestStore_CloseReleasesHostFuncs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	f, err := store.NewFunc(ctx, wasm.FuncType{Results: []wasm.ValueType{wasm.ValueI32}},
		func(c StoreContextMut[int], args, results []Value) error {
			results[0] = NewI32(1)
			return nil
		})
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}

	// The host side holds only the weak shim. After close the shim must
	// refuse to dispatch into the released closure.
	shim := store.storeScope().hostFuncs[0].shim
	if _, err := shim.Invoke(ctx); err != nil {
		t.Fatalf("shim before close: %v", err)
	}

	store.Close()

	if _, err := shim.Invoke(ctx); err == nil {
		t.Fatalf("shim invoked after close, want error")
	}
	err = f.Call(ctx, store, nil, []Value{NewI32(0)})
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindStoreDropped {
		t.Errorf("Call after close = %v, want store_dropped", err)
	}
}

func TestStore_CrossStoreCall(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	other := newTestStore(t)

	f, err := store.NewFunc(ctx, wasm.FuncType{}, func(c StoreContextMut[int], args, results []Value) error {
		return nil
	})
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}
	err = f.Call(ctx, other, nil, nil)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindCrossStore {
		t.Errorf("cross-store Call = %v, want cross_store", err)
	}
}
