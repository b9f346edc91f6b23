package runtime

import (
	"context"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
	"go.uber.org/zap"
)

// Table is a handle to a host WebAssembly.Table.
type Table struct {
	scope  *storeScope
	handle bridge.Value
	ty     wasm.TableType
}

// NewTable creates a host table with the given type, filled with init.
func NewTable(ctx context.Context, store AsContextMut, ty wasm.TableType, init Value) (*Table, error) {
	scope := store.storeScopeMut()
	if scope.closed {
		return nil, errors.StoreDropped(errors.PhaseResource)
	}
	if init.Type() != ty.Element {
		return nil, errors.TypeMismatch(errors.PhaseResource, init.Type().String(), ty.Element.String())
	}
	rt := scope.rt()
	entries := []bridge.Entry{
		{Name: "element", Value: rt.String(jsDescriptor(ty.Element))},
		{Name: "initial", Value: rt.Int32(int32(ty.Min))},
	}
	if ty.Max != nil {
		entries = append(entries, bridge.Entry{Name: "maximum", Value: rt.Int32(int32(*ty.Max))})
	}
	desc, err := rt.Object(entries)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResource, errors.KindHost, err, "table descriptor")
	}
	fInit, err := toForeign(scope, init)
	if err != nil {
		return nil, err
	}
	ctor, err := webAssemblyCtor(scope.engine, "Table")
	if err != nil {
		return nil, err
	}
	handle, err := ctor.New(ctx, desc, fInit)
	if err != nil {
		return nil, errors.Host(errors.PhaseResource, "WebAssembly.Table", err)
	}
	return &Table{scope: scope, handle: handle, ty: ty}, nil
}

// Type returns the table's element type and limits.
func (t *Table) Type() wasm.TableType { return t.ty }

// Size returns the current number of elements.
func (t *Table) Size(store AsContext) (uint32, error) {
	scope := store.storeScope()
	if t.scope != scope {
		return 0, errors.CrossStore(errors.PhaseResource)
	}
	if scope.closed {
		return 0, errors.StoreDropped(errors.PhaseResource)
	}
	n, err := t.handle.Get("length")
	if err != nil {
		return 0, errors.Host(errors.PhaseResource, "table length", err)
	}
	length, err := n.Int()
	if err != nil {
		return 0, errors.Conversion(errors.PhaseResource, "i32", err)
	}
	return uint32(length), nil
}

// Grow grows the table by delta elements filled with init and returns the
// previous size.
func (t *Table) Grow(ctx context.Context, store AsContextMut, delta uint32, init Value) (uint32, error) {
	scope := store.storeScopeMut()
	if t.scope != scope {
		return 0, errors.CrossStore(errors.PhaseResource)
	}
	if scope.closed {
		return 0, errors.StoreDropped(errors.PhaseResource)
	}
	fInit, err := toForeign(scope, init)
	if err != nil {
		return 0, err
	}
	out, err := t.handle.Call(ctx, "grow", scope.rt().Int32(int32(delta)), fInit)
	if err != nil {
		return 0, errors.Host(errors.PhaseResource, "table grow", err)
	}
	prev, err := out.Int()
	if err != nil {
		return 0, errors.Conversion(errors.PhaseResource, "i32", err)
	}
	log().Debug("table grown", zap.Uint32("delta", delta), zap.Int64("previous_size", prev))
	return uint32(prev), nil
}

// Get reads the element at index, typed by the declared element type. It
// reports ok=false when the index is out of range.
func (t *Table) Get(ctx context.Context, store AsContextMut, index uint32) (Value, bool, error) {
	scope := store.storeScopeMut()
	if t.scope != scope {
		return Value{}, false, errors.CrossStore(errors.PhaseResource)
	}
	if scope.closed {
		return Value{}, false, errors.StoreDropped(errors.PhaseResource)
	}
	out, err := t.handle.Call(ctx, "get", scope.rt().Int32(int32(index)))
	if err != nil {
		// The host throws a RangeError for out-of-range indices.
		return Value{}, false, nil
	}
	v, err := fromForeignTyped(scope, out, t.ty.Element)
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

// Set writes value at index. Out-of-range indices fail with an out-of-bounds
// error.
func (t *Table) Set(ctx context.Context, store AsContextMut, index uint32, value Value) error {
	scope := store.storeScopeMut()
	if t.scope != scope {
		return errors.CrossStore(errors.PhaseResource)
	}
	if scope.closed {
		return errors.StoreDropped(errors.PhaseResource)
	}
	if value.Type() != t.ty.Element {
		return errors.TypeMismatch(errors.PhaseResource, value.Type().String(), t.ty.Element.String())
	}
	size, err := t.Size(store)
	if err != nil {
		return err
	}
	if index >= size {
		return errors.OutOfBounds(errors.PhaseResource, int(index), int(size))
	}
	f, err := toForeign(scope, value)
	if err != nil {
		return err
	}
	if _, err := t.handle.Call(ctx, "set", scope.rt().Int32(int32(index)), f); err != nil {
		return errors.Host(errors.PhaseResource, "table set", err)
	}
	return nil
}

// fromExportedTable wraps an exported host table after verifying it is a
// WebAssembly.Table. Only funcref tables are exposed through exports; the
// observed length must cover the declared minimum.
func fromExportedTable(ctx context.Context, scope *storeScope, v bridge.Value, ty wasm.TableType) (*Table, error) {
	ok, err := instanceOf(ctx, scope.engine, v, "Table")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Invariant(errors.PhaseInstantiate, "export is not a WebAssembly.Table")
	}
	if ty.Element != wasm.ValueFuncRef {
		return nil, errors.Invariant(errors.PhaseInstantiate,
			"exported table has element type %s, only funcref is supported", ty.Element)
	}
	tbl := &Table{scope: scope, handle: v, ty: ty}
	size, err := tbl.Size(asScope{scope})
	if err != nil {
		return nil, err
	}
	if size < ty.Min {
		return nil, errors.Invariant(errors.PhaseInstantiate,
			"exported table has %d elements, declared minimum is %d", size, ty.Min)
	}
	return tbl, nil
}

// asScope adapts a bare scope to the context interfaces for internal use.
type asScope struct{ s *storeScope }

func (a asScope) storeScope() *storeScope    { return a.s }
func (a asScope) storeScopeMut() *storeScope { return a.s }
