package wasm

import "fmt"

// ValueType represents a WebAssembly value type, using the binary format
// encoding bytes.
type ValueType byte

const (
	ValueI32       ValueType = 0x7F
	ValueI64       ValueType = 0x7E
	ValueF32       ValueType = 0x7D
	ValueF64       ValueType = 0x7C
	ValueFuncRef   ValueType = 0x70
	ValueExternRef ValueType = 0x6F
)

func (v ValueType) String() string {
	switch v {
	case ValueI32:
		return "i32"
	case ValueI64:
		return "i64"
	case ValueF32:
		return "f32"
	case ValueF64:
		return "f64"
	case ValueFuncRef:
		return "funcref"
	case ValueExternRef:
		return "externref"
	default:
		return fmt.Sprintf("valuetype(0x%02x)", byte(v))
	}
}

// IsNum reports whether the type is one of the four numeric types.
func (v ValueType) IsNum() bool {
	switch v {
	case ValueI32, ValueI64, ValueF32, ValueF64:
		return true
	}
	return false
}

// IsRef reports whether the type is funcref or externref.
func (v ValueType) IsRef() bool {
	return v == ValueFuncRef || v == ValueExternRef
}

// FuncType represents a function signature with parameter and result types.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

func (f FuncType) String() string {
	s := "func("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	s += ")"
	for i, r := range f.Results {
		if i == 0 {
			s += " -> "
		} else {
			s += ", "
		}
		s += r.String()
	}
	return s
}

// Equal reports whether two signatures have identical parameter and result
// types.
func (f FuncType) Equal(other FuncType) bool {
	if len(f.Params) != len(other.Params) || len(f.Results) != len(other.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

// GlobalType describes a global variable's content type and mutability.
type GlobalType struct {
	Content ValueType
	Mutable bool
}

// MemoryType describes a linear memory's limits, in 64KiB pages.
// Max is nil when the memory is unbounded.
type MemoryType struct {
	Max *uint32
	Min uint32
}

// TableType describes a table with element type and size limits.
// Max is nil when the table is unbounded.
type TableType struct {
	Max     *uint32
	Element ValueType
	Min     uint32
}

// ExternKind identifies the variant of an ExternType.
type ExternKind byte

const (
	ExternFunc ExternKind = iota
	ExternGlobal
	ExternMemory
	ExternTable
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternGlobal:
		return "global"
	case ExternMemory:
		return "memory"
	case ExternTable:
		return "table"
	default:
		return fmt.Sprintf("externkind(%d)", byte(k))
	}
}

// ExternType is the declared WebAssembly type of an imported or exported
// item. Exactly the field matching Kind is non-nil.
type ExternType struct {
	Func   *FuncType
	Global *GlobalType
	Memory *MemoryType
	Table  *TableType
	Kind   ExternKind
}

func (e ExternType) String() string {
	switch e.Kind {
	case ExternFunc:
		return e.Func.String()
	case ExternGlobal:
		if e.Global.Mutable {
			return "global(mut " + e.Global.Content.String() + ")"
		}
		return "global(" + e.Global.Content.String() + ")"
	case ExternMemory:
		if e.Memory.Max != nil {
			return fmt.Sprintf("memory(%d..%d)", e.Memory.Min, *e.Memory.Max)
		}
		return fmt.Sprintf("memory(%d..)", e.Memory.Min)
	case ExternTable:
		if e.Table.Max != nil {
			return fmt.Sprintf("table(%s, %d..%d)", e.Table.Element, e.Table.Min, *e.Table.Max)
		}
		return fmt.Sprintf("table(%s, %d..)", e.Table.Element, e.Table.Min)
	default:
		return "extern(?)"
	}
}

// ImportKey identifies an import by its two-level name.
type ImportKey struct {
	Module string
	Name   string
}

func (k ImportKey) String() string {
	return k.Module + "." + k.Name
}

// ParsedModule carries the import and export signature tables of a module.
// It is the contract the runtime layer consumes; no bytecode is retained
// and no validation beyond structural decoding is performed.
type ParsedModule struct {
	Imports map[ImportKey]ExternType
	Exports map[string]ExternType
}
