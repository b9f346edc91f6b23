package runtime

import (
	"context"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
	"go.uber.org/zap"
)

// PageSize is the WebAssembly linear memory page size in bytes.
const PageSize = 65536

// Memory is a handle to a host WebAssembly.Memory.
type Memory struct {
	scope  *storeScope
	handle bridge.Value
	ty     wasm.MemoryType
}

// NewMemory creates a host memory with the given limits.
func NewMemory(ctx context.Context, store AsContextMut, ty wasm.MemoryType) (*Memory, error) {
	scope := store.storeScopeMut()
	if scope.closed {
		return nil, errors.StoreDropped(errors.PhaseResource)
	}
	rt := scope.rt()
	entries := []bridge.Entry{
		{Name: "initial", Value: rt.Int32(int32(ty.Min))},
	}
	if ty.Max != nil {
		entries = append(entries, bridge.Entry{Name: "maximum", Value: rt.Int32(int32(*ty.Max))})
	}
	desc, err := rt.Object(entries)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResource, errors.KindHost, err, "memory descriptor")
	}
	ctor, err := webAssemblyCtor(scope.engine, "Memory")
	if err != nil {
		return nil, err
	}
	handle, err := ctor.New(ctx, desc)
	if err != nil {
		return nil, errors.Host(errors.PhaseResource, "WebAssembly.Memory", err)
	}
	return &Memory{scope: scope, handle: handle, ty: ty}, nil
}

// Type returns the memory's declared limits.
func (m *Memory) Type() wasm.MemoryType { return m.ty }

// Size returns the current size in pages, read from the host buffer.
func (m *Memory) Size(store AsContext) (uint32, error) {
	scope := store.storeScope()
	if m.scope != scope {
		return 0, errors.CrossStore(errors.PhaseResource)
	}
	if scope.closed {
		return 0, errors.StoreDropped(errors.PhaseResource)
	}
	return m.pages()
}

func (m *Memory) pages() (uint32, error) {
	buf, err := m.handle.Get("buffer")
	if err != nil {
		return 0, errors.Host(errors.PhaseResource, "memory buffer", err)
	}
	n, err := buf.Get("byteLength")
	if err != nil {
		return 0, errors.Host(errors.PhaseResource, "memory buffer", err)
	}
	bytes, err := n.Int()
	if err != nil {
		return 0, errors.Conversion(errors.PhaseResource, "i32", err)
	}
	return uint32(bytes / PageSize), nil
}

// Grow grows the memory by delta pages and returns the previous size in
// pages.
func (m *Memory) Grow(ctx context.Context, store AsContextMut, delta uint32) (uint32, error) {
	scope := store.storeScopeMut()
	if m.scope != scope {
		return 0, errors.CrossStore(errors.PhaseResource)
	}
	if scope.closed {
		return 0, errors.StoreDropped(errors.PhaseResource)
	}
	out, err := m.handle.Call(ctx, "grow", scope.rt().Int32(int32(delta)))
	if err != nil {
		return 0, errors.Host(errors.PhaseResource, "memory grow", err)
	}
	prev, err := out.Int()
	if err != nil {
		return 0, errors.Conversion(errors.PhaseResource, "i32", err)
	}
	log().Debug("memory grown", zap.Uint32("delta", delta), zap.Int64("previous_pages", prev))
	return uint32(prev), nil
}

// fromExportedMemory wraps an exported host memory after verifying it is a
// WebAssembly.Memory and that its size covers the declared minimum.
func fromExportedMemory(ctx context.Context, scope *storeScope, v bridge.Value, ty wasm.MemoryType) (*Memory, error) {
	ok, err := instanceOf(ctx, scope.engine, v, "Memory")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Invariant(errors.PhaseInstantiate, "export is not a WebAssembly.Memory")
	}
	m := &Memory{scope: scope, handle: v, ty: ty}
	pages, err := m.pages()
	if err != nil {
		return nil, err
	}
	if pages < ty.Min {
		return nil, errors.Invariant(errors.PhaseInstantiate,
			"exported memory has %d pages, declared minimum is %d", pages, ty.Min)
	}
	return m, nil
}
