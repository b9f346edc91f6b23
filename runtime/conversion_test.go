package runtime

import (
	"context"
	"testing"

	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/testbed"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

// newTestStore builds a store over a fresh testbed bridge.
func newTestStore(t *testing.T) *Store[int] {
	t.Helper()
	ctx := context.Background()
	b := testbed.New(ctx)
	t.Cleanup(func() {
		if err := b.Close(ctx); err != nil {
			t.Errorf("closing bridge: %v", err)
		}
	})
	return NewStore(NewEngine(b), 0)
}

func TestNumericRoundTrip(t *testing.T) {
	store := newTestStore(t)
	scope := store.storeScope()

	values := []Value{
		NewI32(0),
		NewI32(42),
		NewI32(-1),
		NewI32(-2147483648),
		NewI32(2147483647),
		NewI64(0),
		NewI64(-9007199254740993), // outside float64 integer range
		NewI64(9223372036854775807),
		NewI64(-9223372036854775808),
		NewF32(0),
		NewF32(1.5),
		NewF32(-3.25),
		NewF64(0),
		NewF64(2.718281828459045),
		NewF64(-1e300),
	}
	for _, v := range values {
		foreign, err := toForeign(scope, v)
		if err != nil {
			t.Fatalf("toForeign(%s) error: %v", v, err)
		}
		back, err := fromForeignTyped(scope, foreign, v.Type())
		if err != nil {
			t.Fatalf("fromForeignTyped(%s) error: %v", v, err)
		}
		if !back.Equal(v) {
			t.Errorf("round trip %s = %s", v, back)
		}
	}
}

func TestFromForeignTyped_NullRefs(t *testing.T) {
	store := newTestStore(t)
	scope := store.storeScope()
	rt := scope.rt()

	v, err := fromForeignTyped(scope, rt.Null(), wasm.ValueFuncRef)
	if err != nil {
		t.Fatalf("null funcref: %v", err)
	}
	if v.Type() != wasm.ValueFuncRef || v.FuncRef() != nil {
		t.Errorf("null funcref = %s, want null carrier", v)
	}

	v, err = fromForeignTyped(scope, rt.Null(), wasm.ValueExternRef)
	if err != nil {
		t.Fatalf("null externref: %v", err)
	}
	if v.Type() != wasm.ValueExternRef || v.ExternRef() != nil {
		t.Errorf("null externref = %s, want null carrier", v)
	}
}

func TestFromForeignTyped_RefusesNonNullFuncref(t *testing.T) {
	store := newTestStore(t)
	scope := store.storeScope()

	_, err := fromForeignTyped(scope, scope.rt().Int32(7), wasm.ValueFuncRef)
	if err == nil {
		t.Fatalf("non-null funcref lifted, want conversion error")
	}
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindConversion {
		t.Errorf("error = %v, want conversion kind", err)
	}
}

func TestFromForeignTyped_NumericMismatch(t *testing.T) {
	store := newTestStore(t)
	scope := store.storeScope()

	_, err := fromForeignTyped(scope, scope.rt().String("nope"), wasm.ValueF64)
	if err == nil {
		t.Fatalf("string lifted as f64, want conversion error")
	}
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindConversion {
		t.Errorf("error = %v, want conversion kind", err)
	}
}

func TestToForeign_CrossStoreRef(t *testing.T) {
	store := newTestStore(t)
	other := newTestStore(t)

	ref, err := other.NewExternRef("payload")
	if err != nil {
		t.Fatalf("NewExternRef: %v", err)
	}
	_, err = toForeign(store.storeScope(), NewExternRef(ref))
	if err == nil {
		t.Fatalf("cross-store externref lowered, want error")
	}
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindCrossStore {
		t.Errorf("error = %v, want cross-store kind", err)
	}
}

func TestJSDescriptor(t *testing.T) {
	tests := []struct {
		t    wasm.ValueType
		want string
	}{
		{wasm.ValueI32, "i32"},
		{wasm.ValueI64, "i64"},
		{wasm.ValueF32, "f32"},
		{wasm.ValueF64, "f64"},
		{wasm.ValueFuncRef, "anyfunc"},
		{wasm.ValueExternRef, "externref"},
	}
	for _, tt := range tests {
		if got := jsDescriptor(tt.t); got != tt.want {
			t.Errorf("jsDescriptor(%s) = %q, want %q", tt.t, got, tt.want)
		}
	}
}
