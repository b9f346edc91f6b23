package runtime

import (
	"context"
	"testing"

	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

func TestGlobal_MutableRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name string
		ty   wasm.ValueType
		init Value
		next Value
	}{
		{"i32", wasm.ValueI32, NewI32(10), NewI32(-20)},
		{"i64", wasm.ValueI64, NewI64(1 << 40), NewI64(-5)},
		{"f32", wasm.ValueF32, NewF32(1.5), NewF32(-2.5)},
		{"f64", wasm.ValueF64, NewF64(2.75), NewF64(1e12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGlobal(ctx, store, wasm.GlobalType{Content: tt.ty, Mutable: true}, tt.init)
			if err != nil {
				t.Fatalf("NewGlobal: %v", err)
			}
			got, err := g.Get(ctx, store)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !got.Equal(tt.init) {
				t.Errorf("initial value = %s, want %s", got, tt.init)
			}
			if err := g.Set(ctx, store, tt.next); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err = g.Get(ctx, store)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !got.Equal(tt.next) {
				t.Errorf("value after set = %s, want %s", got, tt.next)
			}
		})
	}
}

func TestGlobal_ImmutableSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	g, err := NewGlobal(ctx, store, wasm.GlobalType{Content: wasm.ValueI32}, NewI32(1))
	if err != nil {
		t.Fatalf("NewGlobal: %v", err)
	}
	err = g.Set(ctx, store, NewI32(2))
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindInvariant {
		t.Errorf("Set on immutable = %v, want invariant", err)
	}
}

func TestGlobal_TypeMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := NewGlobal(ctx, store, wasm.GlobalType{Content: wasm.ValueI32}, NewF64(1))
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Errorf("NewGlobal with f64 init = %v, want type_mismatch", err)
	}

	g, err := NewGlobal(ctx, store, wasm.GlobalType{Content: wasm.ValueI64, Mutable: true}, NewI64(1))
	if err != nil {
		t.Fatalf("NewGlobal: %v", err)
	}
	err = g.Set(ctx, store, NewI32(2))
	if !errors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Errorf("Set with i32 = %v, want type_mismatch", err)
	}
}
