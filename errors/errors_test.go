package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseConvert,
				Kind:     KindConversion,
				Path:     []string{"env", "add"},
				GoType:   "string",
				WasmType: "i32",
				Detail:   "cannot coerce",
			},
			contains: []string{"[convert]", "conversion", "env.add", "string", "i32", "cannot coerce"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseResource,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[resource]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseCall,
				Kind:   KindHost,
				Detail: "invoke exported function",
				Cause:  errors.New("RangeError: out of range"),
			},
			contains: []string{"[call]", "host", "invoke exported function", "caused by", "RangeError"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseBridge,
		Kind:  KindHost,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseConvert,
		Kind:  KindConversion,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseConvert, Kind: KindConversion}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseCall, Kind: KindConversion}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseConvert, Kind: KindHost}) {
		t.Error("Is should not match different kind")
	}
	if err.Is(errors.New("plain")) {
		t.Error("Is should not match non-structured error")
	}
}

func TestError_IsViaStdlib(t *testing.T) {
	wrapped := Wrap(PhaseCall, KindHost, StoreDropped(PhaseStore), "invoke")

	if !errors.Is(wrapped, &Error{Phase: PhaseCall, Kind: KindHost}) {
		t.Error("errors.Is should match outer phase/kind")
	}
	if !errors.Is(wrapped, &Error{Phase: PhaseStore, Kind: KindStoreDropped}) {
		t.Error("errors.Is should traverse the cause chain")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"conversion", Conversion(PhaseConvert, "i64", "abc"), PhaseConvert, KindConversion},
		{"signature", SignatureMismatch(PhaseCall, "expected %d args, got %d", 2, 3), PhaseCall, KindSignatureMismatch},
		{"host", Host(PhaseCall, "call", errors.New("trap")), PhaseCall, KindHost},
		{"invariant", Invariant(PhaseInstantiate, "export %q missing signature", "foo"), PhaseInstantiate, KindInvariant},
		{"out of bounds", OutOfBounds(PhaseResource, 7, 4), PhaseResource, KindOutOfBounds},
		{"store dropped", StoreDropped(PhaseCall), PhaseCall, KindStoreDropped},
		{"cross store", CrossStore(PhaseStore), PhaseStore, KindCrossStore},
		{"type mismatch", TypeMismatch(PhaseStore, "int", "string"), PhaseStore, KindTypeMismatch},
		{"duplicate import", DuplicateImport("env", "add"), PhaseInstantiate, KindDuplicateImport},
		{"not found", NotFound(PhaseInstantiate, "export", "run"), PhaseInstantiate, KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("phase = %q, want %q", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("boom")
	err := New(PhaseInstantiate, KindInvalidData).
		Path("env", "table").
		GoType("int").
		WasmType("funcref").
		Value(42).
		Cause(cause).
		Detail("element %d rejected", 42).
		Build()

	if err.Phase != PhaseInstantiate || err.Kind != KindInvalidData {
		t.Fatalf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Detail != "element 42 rejected" {
		t.Errorf("detail = %q", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wrapped")
	}
}
