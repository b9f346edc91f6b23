package runtime

import (
	"testing"

	"github.com/wippyai/wasm-web-runtime/errors"
)

func TestExternRef_Downcast(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.NewExternRef("hello")
	if err != nil {
		t.Fatalf("NewExternRef: %v", err)
	}
	s, err := Downcast[string](store, ref)
	if err != nil {
		t.Fatalf("Downcast[string]: %v", err)
	}
	if s != "hello" {
		t.Errorf("Downcast[string] = %q, want %q", s, "hello")
	}

	_, err = Downcast[int](store, ref)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Errorf("Downcast[int] = %v, want type_mismatch", err)
	}
}

func TestExternRef_DowncastStruct(t *testing.T) {
	type payload struct{ n int }
	store := newTestStore(t)

	ref, err := store.NewExternRef(&payload{n: 9})
	if err != nil {
		t.Fatalf("NewExternRef: %v", err)
	}
	p, err := Downcast[*payload](store, ref)
	if err != nil {
		t.Fatalf("Downcast[*payload]: %v", err)
	}
	if p.n != 9 {
		t.Errorf("payload.n = %d, want 9", p.n)
	}
}

func TestExternRef_CrossStore(t *testing.T) {
	store := newTestStore(t)
	other := newTestStore(t)

	ref, err := store.NewExternRef("hello")
	if err != nil {
		t.Fatalf("NewExternRef: %v", err)
	}
	_, err = Downcast[string](other, ref)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindCrossStore {
		t.Errorf("cross-store Downcast = %v, want cross_store", err)
	}
}

func TestExternRef_StoreDropped(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.NewExternRef("hello")
	if err != nil {
		t.Fatalf("NewExternRef: %v", err)
	}
	store.Close()
	_, err = Downcast[string](store, ref)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindStoreDropped {
		t.Errorf("Downcast after close = %v, want store_dropped", err)
	}
}
