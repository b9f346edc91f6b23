// Package wasmwebruntime adapts WebAssembly execution to a host-provided
// JS engine. Nothing is executed in-process: modules are compiled and
// instantiated by the host's WebAssembly namespace, reached through a small
// foreign-value bridge, and the packages here marshal values and coordinate
// lifetimes across that boundary.
//
// # Architecture Overview
//
//	wasmwebruntime/
//	├── runtime/   High-level API: Engine, Store, Module, Instance, and the
//	│              Func/Global/Memory/Table handles over host objects
//	├── bridge/    Foreign-engine contract and the syscall/js implementation
//	├── wasm/      Binary-format types, signature parsing, module synthesis
//	├── errors/    Structured error types shared across packages
//	└── testbed/   wazero-backed bridge emulation for native test runs
//
// # Quick Start
//
//	engine := runtime.NewEngine(bridgeRuntime)
//	store := runtime.NewStore(engine, myState{})
//	defer store.Close()
//
//	mod, err := runtime.NewModule(ctx, engine, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	inst, err := runtime.NewInstance(ctx, store, mod, runtime.NewImports())
//	if err != nil {
//	    log.Fatal(err)
//	}
package wasmwebruntime
