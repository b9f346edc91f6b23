package wasm

import "testing"

func TestFuncType_String(t *testing.T) {
	tests := []struct {
		ft   FuncType
		want string
	}{
		{FuncType{}, "func()"},
		{FuncType{Params: []ValueType{ValueI32}}, "func(i32)"},
		{FuncType{Results: []ValueType{ValueF64}}, "func() -> f64"},
		{
			FuncType{Params: []ValueType{ValueI64, ValueExternRef}, Results: []ValueType{ValueI32, ValueFuncRef}},
			"func(i64, externref) -> i32, funcref",
		},
	}
	for _, tt := range tests {
		if got := tt.ft.String(); got != tt.want {
			t.Errorf("%+v String() = %q, want %q", tt.ft, got, tt.want)
		}
	}
}

func TestFuncType_Equal(t *testing.T) {
	a := FuncType{Params: []ValueType{ValueI32}, Results: []ValueType{ValueI32}}
	if !a.Equal(FuncType{Params: []ValueType{ValueI32}, Results: []ValueType{ValueI32}}) {
		t.Errorf("identical signatures not equal")
	}
	if a.Equal(FuncType{Params: []ValueType{ValueI64}, Results: []ValueType{ValueI32}}) {
		t.Errorf("differing params reported equal")
	}
	if a.Equal(FuncType{Params: []ValueType{ValueI32}}) {
		t.Errorf("differing results reported equal")
	}
}

func TestValueType_Predicates(t *testing.T) {
	for _, vt := range []ValueType{ValueI32, ValueI64, ValueF32, ValueF64} {
		if !vt.IsNum() || vt.IsRef() {
			t.Errorf("%s: IsNum=%v IsRef=%v, want numeric", vt, vt.IsNum(), vt.IsRef())
		}
	}
	for _, vt := range []ValueType{ValueFuncRef, ValueExternRef} {
		if vt.IsNum() || !vt.IsRef() {
			t.Errorf("%s: IsNum=%v IsRef=%v, want reference", vt, vt.IsNum(), vt.IsRef())
		}
	}
}

func TestImportKey_String(t *testing.T) {
	k := ImportKey{Module: "env", Name: "log"}
	if got := k.String(); got != "env.log" {
		t.Errorf("String() = %q, want %q", got, "env.log")
	}
}
