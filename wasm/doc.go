// Package wasm provides the type model and binary-format tooling shared by
// the runtime adapter and its test infrastructure.
//
// Parse reads the signature-bearing sections of a module binary (types,
// imports, exports, and the index spaces that connect them) into a
// ParsedModule; function bodies and data are skipped. ModuleBuilder does the
// reverse for small synthesized modules: providers, shims, and test inputs.
package wasm
