package runtime

import (
	"sync"

	"github.com/wippyai/wasm-web-runtime/bridge"
	"github.com/wippyai/wasm-web-runtime/errors"
)

// JS helper snippets compiled once per engine. Each evaluates to a function;
// the result is memoized so repeated conversions reuse one host callable.
const (
	instanceOfSrc = `(function(value, ctor) { return value instanceof ctor; })`
	toArraySrc    = `(function() { return Array.prototype.slice.call(arguments); })`
	weakCallSrc   = `(function(target) {
	var ref = new WeakRef(target);
	return function() {
		var fn = ref.deref();
		if (fn === undefined) {
			throw new Error("function store dropped");
		}
		return fn.apply(this, arguments);
	};
})`
)

// Engine connects the adapter to a host WebAssembly implementation reached
// through a bridge runtime. Engines are cheap to copy and safe to share
// between stores.
type Engine struct {
	state *engineState
}

type engineState struct {
	rt bridge.Runtime

	helperMu sync.Mutex
	helpers  map[string]bridge.Value
}

// NewEngine returns an engine executing on rt.
func NewEngine(rt bridge.Runtime) Engine {
	return Engine{state: &engineState{
		rt:      rt,
		helpers: make(map[string]bridge.Value),
	}}
}

// Runtime returns the underlying bridge runtime.
func (e Engine) Runtime() bridge.Runtime {
	return e.state.rt
}

// webAssembly returns the host WebAssembly namespace object.
func (e Engine) webAssembly() (bridge.Value, error) {
	return e.state.rt.WebAssembly()
}

// helper compiles src once and returns the memoized callable.
func (e Engine) helper(src string) (bridge.Value, error) {
	s := e.state
	s.helperMu.Lock()
	defer s.helperMu.Unlock()
	if v, ok := s.helpers[src]; ok {
		return v, nil
	}
	v, err := s.rt.RunJS(src)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBridge, errors.KindHost, err, "compile helper")
	}
	s.helpers[src] = v
	return v, nil
}
