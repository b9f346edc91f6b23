package runtime

import (
	"context"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

// Global is a handle to a host WebAssembly.Global.
type Global struct {
	scope  *storeScope
	handle bridge.Value
	ty     wasm.GlobalType
}

// NewGlobal creates a host global with the given type and initial value.
func NewGlobal(ctx context.Context, store AsContextMut, ty wasm.GlobalType, init Value) (*Global, error) {
	scope := store.storeScopeMut()
	if scope.closed {
		return nil, errors.StoreDropped(errors.PhaseResource)
	}
	if init.Type() != ty.Content {
		return nil, errors.TypeMismatch(errors.PhaseResource, init.Type().String(), ty.Content.String())
	}
	rt := scope.rt()
	desc, err := rt.Object([]bridge.Entry{
		{Name: "value", Value: rt.String(jsDescriptor(ty.Content))},
		{Name: "mutable", Value: rt.Bool(ty.Mutable)},
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResource, errors.KindHost, err, "global descriptor")
	}
	fInit, err := toForeign(scope, init)
	if err != nil {
		return nil, err
	}
	ctor, err := webAssemblyCtor(scope.engine, "Global")
	if err != nil {
		return nil, err
	}
	handle, err := ctor.New(ctx, desc, fInit)
	if err != nil {
		return nil, errors.Host(errors.PhaseResource, "WebAssembly.Global", err)
	}
	return &Global{scope: scope, handle: handle, ty: ty}, nil
}

// Type returns the global's content type and mutability.
func (g *Global) Type() wasm.GlobalType { return g.ty }

// Get reads the global's current value.
func (g *Global) Get(ctx context.Context, store AsContextMut) (Value, error) {
	scope := store.storeScopeMut()
	if g.scope != scope {
		return Value{}, errors.CrossStore(errors.PhaseResource)
	}
	if scope.closed {
		return Value{}, errors.StoreDropped(errors.PhaseResource)
	}
	v, err := g.handle.Get("value")
	if err != nil {
		return Value{}, errors.Host(errors.PhaseResource, "global read", err)
	}
	return fromForeignTyped(scope, v, g.ty.Content)
}

// Set writes the global's value. The value must match the declared content
// type and the global must be mutable.
func (g *Global) Set(ctx context.Context, store AsContextMut, v Value) error {
	scope := store.storeScopeMut()
	if g.scope != scope {
		return errors.CrossStore(errors.PhaseResource)
	}
	if scope.closed {
		return errors.StoreDropped(errors.PhaseResource)
	}
	if !g.ty.Mutable {
		return errors.Invariant(errors.PhaseResource, "global is immutable")
	}
	if v.Type() != g.ty.Content {
		return errors.TypeMismatch(errors.PhaseResource, v.Type().String(), g.ty.Content.String())
	}
	f, err := toForeign(scope, v)
	if err != nil {
		return err
	}
	if err := g.handle.Set("value", f); err != nil {
		return errors.Host(errors.PhaseResource, "global write", err)
	}
	return nil
}

// fromExportedGlobal wraps an exported host global after verifying it is a
// WebAssembly.Global.
func fromExportedGlobal(ctx context.Context, scope *storeScope, v bridge.Value, ty wasm.GlobalType) (*Global, error) {
	ok, err := instanceOf(ctx, scope.engine, v, "Global")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Invariant(errors.PhaseInstantiate, "export is not a WebAssembly.Global")
	}
	return &Global{scope: scope, handle: v, ty: ty}, nil
}

// webAssemblyCtor resolves a constructor from the host's WebAssembly
// namespace.
func webAssemblyCtor(e Engine, name string) (bridge.Value, error) {
	ns, err := e.webAssembly()
	if err != nil {
		return nil, err
	}
	ctor, err := ns.Get(name)
	if err != nil || ctor == nil || ctor.IsNull() {
		return nil, errors.NotFound(errors.PhaseBridge, "constructor", "WebAssembly."+name)
	}
	return ctor, nil
}
