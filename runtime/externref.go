package runtime

import (
	"fmt"
	"reflect"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
)

// ExternRef is an opaque reference to an arbitrary Go value owned by a
// store. The payload stays alive until the store closes; the reference
// crosses the host boundary as a tagged token object.
type ExternRef struct {
	token bridge.Value
	scope *storeScope
	idx   int
}

// NewExternRef stores payload in the store and returns a reference to it.
func (s *Store[T]) NewExternRef(payload any) (*ExternRef, error) {
	return newExternRef(s.state.scope, payload)
}

// NewExternRef stores payload in the store and returns a reference to it.
func (c StoreContextMut[T]) NewExternRef(payload any) (*ExternRef, error) {
	return newExternRef(c.state.scope, payload)
}

func newExternRef(scope *storeScope, payload any) (*ExternRef, error) {
	if scope.closed {
		return nil, errors.StoreDropped(errors.PhaseResource)
	}
	idx := len(scope.externs)
	scope.externs = append(scope.externs, payload)
	rt := scope.rt()
	token, err := rt.Object([]bridge.Entry{
		{Name: externRefProp, Value: rt.Int32(int32(idx))},
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResource, errors.KindHost, err, "mint externref token")
	}
	return &ExternRef{token: token, scope: scope, idx: idx}, nil
}

// externRefFromToken recovers a reference from a host token previously
// minted by this store.
func externRefFromToken(scope *storeScope, v bridge.Value) (*ExternRef, error) {
	prop, err := v.Get(externRefProp)
	if err != nil || prop == nil || prop.IsNull() {
		return nil, errors.Conversion(errors.PhaseConvert, "externref", err)
	}
	n, err := prop.Int()
	if err != nil {
		return nil, errors.Conversion(errors.PhaseConvert, "externref", err)
	}
	if n < 0 || int(n) >= len(scope.externs) {
		return nil, errors.OutOfBounds(errors.PhaseConvert, int(n), len(scope.externs))
	}
	return &ExternRef{token: v, scope: scope, idx: int(n)}, nil
}

// Downcast returns the payload of r as a V. It fails with a type mismatch
// when the payload is not a V and with a cross-store error when r was
// created in a different store.
func Downcast[V any](store AsContext, r *ExternRef) (V, error) {
	var zero V
	scope := store.storeScope()
	if r.scope != scope {
		return zero, errors.CrossStore(errors.PhaseResource)
	}
	if scope.closed {
		return zero, errors.StoreDropped(errors.PhaseResource)
	}
	payload := scope.externs[r.idx]
	v, ok := payload.(V)
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseResource,
			fmt.Sprintf("%T", payload), reflect.TypeFor[V]().String())
	}
	return v, nil
}
