package runtime

import (
	"context"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
	"github.com/wippyai/wasm-web-runtime/wasm"
	"go.uber.org/zap"
)

// Module is a compiled WebAssembly module. The binary is parsed locally for
// its import and export signatures and compiled by the host engine.
type Module struct {
	engine Engine
	handle bridge.Value
	parsed *wasm.ParsedModule
}

// NewModule parses and compiles a module binary on the engine.
func NewModule(ctx context.Context, engine Engine, binary []byte) (*Module, error) {
	parsed, err := wasm.Parse(binary)
	if err != nil {
		return nil, err
	}
	buf, err := engine.Runtime().Bytes(binary)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindHost, err, "copy module bytes")
	}
	ctor, err := webAssemblyCtor(engine, "Module")
	if err != nil {
		return nil, err
	}
	handle, err := ctor.New(ctx, buf)
	if err != nil {
		return nil, errors.Host(errors.PhaseCompile, "WebAssembly.Module", err)
	}
	log().Debug("module compiled",
		zap.Int("size", len(binary)),
		zap.Int("imports", len(parsed.Imports)),
		zap.Int("exports", len(parsed.Exports)))
	return &Module{engine: engine, handle: handle, parsed: parsed}, nil
}

// Imports returns the module's declared imports.
func (m *Module) Imports() map[wasm.ImportKey]wasm.ExternType {
	out := make(map[wasm.ImportKey]wasm.ExternType, len(m.parsed.Imports))
	for k, v := range m.parsed.Imports {
		out[k] = v
	}
	return out
}

// Exports returns the module's declared exports.
func (m *Module) Exports() map[string]wasm.ExternType {
	out := make(map[string]wasm.ExternType, len(m.parsed.Exports))
	for k, v := range m.parsed.Exports {
		out[k] = v
	}
	return out
}
