package runtime

import (
	"context"
	"testing"

	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

func maxPages(v uint32) *uint32 { return &v }

func TestMemory_NewAndGrow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	m, err := NewMemory(ctx, store, wasm.MemoryType{Min: 1, Max: maxPages(4)})
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	size, err := m.Size(store)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 1 {
		t.Errorf("Size = %d, want 1", size)
	}

	prev, err := m.Grow(ctx, store, 2)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if prev != 1 {
		t.Errorf("Grow(2) = %d, want 1", prev)
	}
	size, err = m.Size(store)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 3 {
		t.Errorf("Size after grow = %d, want 3", size)
	}
}

func TestMemory_GrowPastMax(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	m, err := NewMemory(ctx, store, wasm.MemoryType{Min: 1, Max: maxPages(2)})
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	_, err = m.Grow(ctx, store, 5)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindHost {
		t.Errorf("Grow past max = %v, want host error", err)
	}
	size, err := m.Size(store)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 1 {
		t.Errorf("Size after failed grow = %d, want 1", size)
	}
}

func TestMemory_CrossStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	other := newTestStore(t)

	m, err := NewMemory(ctx, store, wasm.MemoryType{Min: 1})
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	_, err = m.Size(other)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindCrossStore {
		t.Errorf("Size with wrong store = %v, want cross_store", err)
	}
}
