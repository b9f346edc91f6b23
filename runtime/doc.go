// Package runtime adapts a host-provided WebAssembly engine, reached
// through a bridge.Runtime, to a typed Go API.
//
// All execution happens in the host engine. This package marshals values
// across the boundary, tracks handle ownership through stores, and keeps
// host-closure lifetimes coupled to store lifetime: closing a store releases
// every host callable it registered, and host-side invocations of those
// callables fail from then on.
//
// The main types mirror the WebAssembly JS API: Engine, Store, Module,
// Instance, Func, Global, Memory, Table, and ExternRef. A Store carries a
// user-state value of any type; host functions registered with NewFunc
// receive a mutable context over the calling store and may re-enter the
// guest.
package runtime
