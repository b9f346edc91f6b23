// Package testbed implements bridge.Runtime over wazero, emulating the
// WebAssembly JS API so the adapter can run and be tested outside a
// JS host.
//
// Modules compile through wazero; imports are satisfied by synthesized
// wazero modules named after the import's module name, with function imports
// routed through host modules. Memories, globals, and tables created through
// the emulated constructors live in small synthesized provider modules.
//
// Two deliberate deviations from a real JS engine: RunJS recognizes only the
// helper programs the adapter compiles, and table element reads observe only
// elements written through the emulated set (elements installed by a
// module's own element segments are visible to call_indirect but not to
// get).
package testbed
