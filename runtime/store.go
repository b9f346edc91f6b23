package runtime

import (
	"github.com/wippyai/wasm-web-runtime/bridge"
	"go.uber.org/zap"
)

// AsContext grants read access to a store, erased over the user-state type.
// Store[T], StoreContext[T], and StoreContextMut[T] all satisfy it.
type AsContext interface {
	storeScope() *storeScope
}

// AsContextMut grants mutable access to a store, erased over the user-state
// type. Store[T] and StoreContextMut[T] satisfy it.
type AsContextMut interface {
	AsContext
	storeScopeMut() *storeScope
}

// Store owns all runtime objects created against it together with a typed
// user-state value. Handles created from a store must not be used with a
// different one.
//
// A store is single-threaded: host functions may re-enter it recursively
// during a call, but concurrent use from multiple goroutines is not
// supported.
type Store[T any] struct {
	state *storeState[T]
}

type storeState[T any] struct {
	engine Engine
	scope  *storeScope
	data   T
}

// storeScope is the erased shared state behind a store. Handles and host
// closures reference the scope, never the typed state, so non-generic code
// can work across stores of any user type.
type storeScope struct {
	engine    Engine
	externs   []any
	hostFuncs []*hostFuncRecord
	instances []*Instance
	closed    bool
}

// hostFuncRecord pins the host-side resources of one host-defined function
// until the store closes.
type hostFuncRecord struct {
	callable bridge.Value
	shim     bridge.Value
	release  bridge.ReleaseFunc
}

// NewStore creates a store on engine holding data as user state.
func NewStore[T any](engine Engine, data T) *Store[T] {
	return &Store[T]{state: &storeState[T]{
		engine: engine,
		scope:  &storeScope{engine: engine},
		data:   data,
	}}
}

// Engine returns the engine the store was created on.
func (s *Store[T]) Engine() Engine { return s.state.engine }

// Data returns the user state.
func (s *Store[T]) Data() *T { return &s.state.data }

// Context returns a read-only context over the store.
func (s *Store[T]) Context() StoreContext[T] {
	return StoreContext[T]{state: s.state}
}

// ContextMut returns a mutable context over the store.
func (s *Store[T]) ContextMut() StoreContextMut[T] {
	return StoreContextMut[T]{state: s.state}
}

// Close releases every host callable registered with the store and drops the
// externref payload table. Handles created from the store become unusable;
// host-side invocations of the store's functions fail from then on. Close is
// idempotent.
func (s *Store[T]) Close() {
	s.state.scope.close()
}

// IntoData closes the store and returns the user state.
func (s *Store[T]) IntoData() T {
	s.state.scope.close()
	return s.state.data
}

func (s *Store[T]) storeScope() *storeScope    { return s.state.scope }
func (s *Store[T]) storeScopeMut() *storeScope { return s.state.scope }

// StoreContext is a read-only view of a store, passed to operations that
// only inspect state.
type StoreContext[T any] struct {
	state *storeState[T]
}

// Engine returns the engine the store was created on.
func (c StoreContext[T]) Engine() Engine { return c.state.engine }

// Data returns the user state.
func (c StoreContext[T]) Data() T { return c.state.data }

func (c StoreContext[T]) storeScope() *storeScope { return c.state.scope }

// StoreContextMut is a mutable view of a store. Host functions receive a
// fresh StoreContextMut over the calling store, so they can mutate user
// state and call back into the guest re-entrantly.
type StoreContextMut[T any] struct {
	state *storeState[T]
}

// Engine returns the engine the store was created on.
func (c StoreContextMut[T]) Engine() Engine { return c.state.engine }

// Data returns the user state.
func (c StoreContextMut[T]) Data() *T { return &c.state.data }

func (c StoreContextMut[T]) storeScope() *storeScope    { return c.state.scope }
func (c StoreContextMut[T]) storeScopeMut() *storeScope { return c.state.scope }

func (sc *storeScope) close() {
	if sc.closed {
		return
	}
	sc.closed = true
	for _, rec := range sc.hostFuncs {
		if rec.release != nil {
			rec.release()
		}
	}
	log().Debug("store closed",
		zap.Int("host_funcs", len(sc.hostFuncs)),
		zap.Int("externs", len(sc.externs)),
		zap.Int("instances", len(sc.instances)))
	sc.hostFuncs = nil
	sc.externs = nil
	sc.instances = nil
}

// rt returns the scope's bridge runtime.
func (sc *storeScope) rt() bridge.Runtime {
	return sc.engine.state.rt
}
