package runtime

import (
	"context"
	"testing"

	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

func funcrefTable(min uint32, max *uint32) wasm.TableType {
	return wasm.TableType{Element: wasm.ValueFuncRef, Min: min, Max: max}
}

func TestTable_GrowWithinMax(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tbl, err := NewTable(ctx, store, funcrefTable(2, maxPages(4)), NewFuncRef(nil))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	size, err := tbl.Size(store)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 2 {
		t.Errorf("Size = %d, want 2", size)
	}

	prev, err := tbl.Grow(ctx, store, 1, NewFuncRef(nil))
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if prev != 2 {
		t.Errorf("Grow(1) = %d, want 2", prev)
	}
	size, err = tbl.Size(store)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 3 {
		t.Errorf("Size after grow = %d, want 3", size)
	}

	// Past the maximum the grow fails and the length is unchanged.
	if _, err := tbl.Grow(ctx, store, 5, NewFuncRef(nil)); err == nil {
		t.Fatalf("Grow past max succeeded")
	}
	size, err = tbl.Size(store)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 3 {
		t.Errorf("Size after failed grow = %d, want 3", size)
	}
}

func TestTable_GetSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tbl, err := NewTable(ctx, store, funcrefTable(2, nil), NewFuncRef(nil))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	v, ok, err := tbl.Get(ctx, store, 0)
	if err != nil || !ok {
		t.Fatalf("Get(0) = %v, ok=%v", err, ok)
	}
	if v.FuncRef() != nil {
		t.Errorf("fresh slot = %s, want null funcref", v)
	}

	f, err := store.NewFunc(ctx, wasm.FuncType{}, func(c StoreContextMut[int], args, results []Value) error {
		return nil
	})
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}
	if err := tbl.Set(ctx, store, 1, NewFuncRef(f)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Out of range: get reports absence, set fails.
	if _, ok, err := tbl.Get(ctx, store, 9); err != nil || ok {
		t.Errorf("Get(9) = ok=%v err=%v, want absent", ok, err)
	}
	err = tbl.Set(ctx, store, 9, NewFuncRef(nil))
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindOutOfBounds {
		t.Errorf("Set(9) = %v, want out_of_bounds", err)
	}
}

func TestTable_ElementTypeMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tbl, err := NewTable(ctx, store, funcrefTable(1, nil), NewFuncRef(nil))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	err = tbl.Set(ctx, store, 0, NewI32(1))
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Errorf("Set with i32 = %v, want type_mismatch", err)
	}
}
