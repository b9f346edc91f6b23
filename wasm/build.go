package wasm

import "bytes"

// ModuleBuilder assembles small WebAssembly binaries. It covers just the
// constructs needed to synthesize provider and shim modules: imports,
// functions with raw bodies, tables, memories, globals, exports, and active
// element segments.
//
// Imported items precede module-local ones in each index space.
type ModuleBuilder struct {
	types       []FuncType
	imports     []builderImport
	funcs       []uint32 // type index per local function
	bodies      [][]byte // raw instructions, without the end opcode
	tables      []TableType
	memories    []MemoryType
	globals     []builderGlobal
	exports     []builderExport
	elems       []builderElem
	importFuncs uint32
	importTabs  uint32
	importMems  uint32
	importGlobs uint32
}

type builderImport struct {
	table   *TableType
	memory  *MemoryType
	global  *GlobalType
	module  string
	name    string
	typeIdx uint32
	kind    byte
}

type builderGlobal struct {
	init []byte // constant expression, without the end opcode
	typ  GlobalType
}

type builderExport struct {
	name string
	kind byte
	idx  uint32
}

type builderElem struct {
	funcIdxs []uint32
	tableIdx uint32
	offset   uint32
}

// NewModuleBuilder returns an empty builder.
func NewModuleBuilder() *ModuleBuilder {
	return &ModuleBuilder{}
}

// AddType registers a function type, reusing an existing equal entry.
func (b *ModuleBuilder) AddType(ft FuncType) uint32 {
	for i, t := range b.types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	b.types = append(b.types, ft)
	return uint32(len(b.types) - 1)
}

// ImportFunc declares a function import and returns its function index.
// All imports must be declared before local definitions are added.
func (b *ModuleBuilder) ImportFunc(module, name string, ft FuncType) uint32 {
	b.imports = append(b.imports, builderImport{
		module: module, name: name, kind: kindFunc, typeIdx: b.AddType(ft),
	})
	idx := b.importFuncs
	b.importFuncs++
	return idx
}

// ImportTable declares a table import and returns its table index.
func (b *ModuleBuilder) ImportTable(module, name string, tt TableType) uint32 {
	t := tt
	b.imports = append(b.imports, builderImport{module: module, name: name, kind: kindTable, table: &t})
	idx := b.importTabs
	b.importTabs++
	return idx
}

// ImportMemory declares a memory import and returns its memory index.
func (b *ModuleBuilder) ImportMemory(module, name string, mt MemoryType) uint32 {
	m := mt
	b.imports = append(b.imports, builderImport{module: module, name: name, kind: kindMemory, memory: &m})
	idx := b.importMems
	b.importMems++
	return idx
}

// ImportGlobal declares a global import and returns its global index.
func (b *ModuleBuilder) ImportGlobal(module, name string, gt GlobalType) uint32 {
	g := gt
	b.imports = append(b.imports, builderImport{module: module, name: name, kind: kindGlobal, global: &g})
	idx := b.importGlobs
	b.importGlobs++
	return idx
}

// AddFunc defines a local function with the given raw body (instructions
// without the trailing end opcode) and returns its function index.
func (b *ModuleBuilder) AddFunc(ft FuncType, body []byte) uint32 {
	b.funcs = append(b.funcs, b.AddType(ft))
	b.bodies = append(b.bodies, body)
	return b.importFuncs + uint32(len(b.funcs)-1)
}

// AddTable defines a local table and returns its table index.
func (b *ModuleBuilder) AddTable(tt TableType) uint32 {
	b.tables = append(b.tables, tt)
	return b.importTabs + uint32(len(b.tables)-1)
}

// AddMemory defines a local memory and returns its memory index.
func (b *ModuleBuilder) AddMemory(mt MemoryType) uint32 {
	b.memories = append(b.memories, mt)
	return b.importMems + uint32(len(b.memories)-1)
}

// AddGlobal defines a local global with a constant init expression
// (without the end opcode) and returns its global index.
func (b *ModuleBuilder) AddGlobal(gt GlobalType, init []byte) uint32 {
	b.globals = append(b.globals, builderGlobal{typ: gt, init: init})
	return b.importGlobs + uint32(len(b.globals)-1)
}

// AddElem adds an active element segment placing funcIdxs at offset in the
// given table.
func (b *ModuleBuilder) AddElem(tableIdx, offset uint32, funcIdxs []uint32) {
	b.elems = append(b.elems, builderElem{tableIdx: tableIdx, offset: offset, funcIdxs: funcIdxs})
}

// ExportFunc exports the function at idx under name.
func (b *ModuleBuilder) ExportFunc(name string, idx uint32) {
	b.exports = append(b.exports, builderExport{name: name, kind: kindFunc, idx: idx})
}

// ExportTable exports the table at idx under name.
func (b *ModuleBuilder) ExportTable(name string, idx uint32) {
	b.exports = append(b.exports, builderExport{name: name, kind: kindTable, idx: idx})
}

// ExportMemory exports the memory at idx under name.
func (b *ModuleBuilder) ExportMemory(name string, idx uint32) {
	b.exports = append(b.exports, builderExport{name: name, kind: kindMemory, idx: idx})
}

// ExportGlobal exports the global at idx under name.
func (b *ModuleBuilder) ExportGlobal(name string, idx uint32) {
	b.exports = append(b.exports, builderExport{name: name, kind: kindGlobal, idx: idx})
}

// Build encodes the module to the binary format.
func (b *ModuleBuilder) Build() []byte {
	var w bytes.Buffer
	writeU32LE(&w, Magic)
	writeU32LE(&w, Version)

	if len(b.types) > 0 {
		var sec bytes.Buffer
		writeLEB128u(&sec, uint32(len(b.types)))
		for _, ft := range b.types {
			sec.WriteByte(0x60)
			writeValueTypes(&sec, ft.Params)
			writeValueTypes(&sec, ft.Results)
		}
		writeSection(&w, sectionType, sec.Bytes())
	}

	if len(b.imports) > 0 {
		var sec bytes.Buffer
		writeLEB128u(&sec, uint32(len(b.imports)))
		for _, imp := range b.imports {
			writeNameStr(&sec, imp.module)
			writeNameStr(&sec, imp.name)
			sec.WriteByte(imp.kind)
			switch imp.kind {
			case kindFunc:
				writeLEB128u(&sec, imp.typeIdx)
			case kindTable:
				writeTableType(&sec, *imp.table)
			case kindMemory:
				writeLimits(&sec, imp.memory.Min, imp.memory.Max)
			case kindGlobal:
				writeGlobalType(&sec, *imp.global)
			}
		}
		writeSection(&w, sectionImport, sec.Bytes())
	}

	if len(b.funcs) > 0 {
		var sec bytes.Buffer
		writeLEB128u(&sec, uint32(len(b.funcs)))
		for _, typeIdx := range b.funcs {
			writeLEB128u(&sec, typeIdx)
		}
		writeSection(&w, sectionFunction, sec.Bytes())
	}

	if len(b.tables) > 0 {
		var sec bytes.Buffer
		writeLEB128u(&sec, uint32(len(b.tables)))
		for _, tt := range b.tables {
			writeTableType(&sec, tt)
		}
		writeSection(&w, sectionTable, sec.Bytes())
	}

	if len(b.memories) > 0 {
		var sec bytes.Buffer
		writeLEB128u(&sec, uint32(len(b.memories)))
		for _, mt := range b.memories {
			writeLimits(&sec, mt.Min, mt.Max)
		}
		writeSection(&w, sectionMemory, sec.Bytes())
	}

	if len(b.globals) > 0 {
		var sec bytes.Buffer
		writeLEB128u(&sec, uint32(len(b.globals)))
		for _, g := range b.globals {
			writeGlobalType(&sec, g.typ)
			sec.Write(g.init)
			sec.WriteByte(0x0B)
		}
		writeSection(&w, sectionGlobal, sec.Bytes())
	}

	if len(b.exports) > 0 {
		var sec bytes.Buffer
		writeLEB128u(&sec, uint32(len(b.exports)))
		for _, e := range b.exports {
			writeNameStr(&sec, e.name)
			sec.WriteByte(e.kind)
			writeLEB128u(&sec, e.idx)
		}
		writeSection(&w, sectionExport, sec.Bytes())
	}

	if len(b.elems) > 0 {
		var sec bytes.Buffer
		writeLEB128u(&sec, uint32(len(b.elems)))
		for _, e := range b.elems {
			if e.tableIdx == 0 {
				sec.WriteByte(0x00) // active, table 0, vec(funcidx)
			} else {
				sec.WriteByte(0x02) // active, explicit table, elemkind 0
				writeLEB128u(&sec, e.tableIdx)
			}
			sec.WriteByte(0x41) // i32.const offset
			writeLEB128s(&sec, int32(e.offset))
			sec.WriteByte(0x0B)
			if e.tableIdx != 0 {
				sec.WriteByte(0x00) // elemkind: funcref
			}
			writeLEB128u(&sec, uint32(len(e.funcIdxs)))
			for _, fi := range e.funcIdxs {
				writeLEB128u(&sec, fi)
			}
		}
		writeSection(&w, 9, sec.Bytes()) // element section
	}

	if len(b.bodies) > 0 {
		var sec bytes.Buffer
		writeLEB128u(&sec, uint32(len(b.bodies)))
		for _, body := range b.bodies {
			var fn bytes.Buffer
			writeLEB128u(&fn, 0) // no locals
			fn.Write(body)
			fn.WriteByte(0x0B)
			writeLEB128u(&sec, uint32(fn.Len()))
			sec.Write(fn.Bytes())
		}
		writeSection(&w, 10, sec.Bytes()) // code section
	}

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, body []byte) {
	w.WriteByte(id)
	writeLEB128u(w, uint32(len(body)))
	w.Write(body)
}

func writeU32LE(w *bytes.Buffer, v uint32) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v >> 16))
	w.WriteByte(byte(v >> 24))
}

func writeNameStr(w *bytes.Buffer, s string) {
	writeLEB128u(w, uint32(len(s)))
	w.WriteString(s)
}

func writeValueTypes(w *bytes.Buffer, types []ValueType) {
	writeLEB128u(w, uint32(len(types)))
	for _, t := range types {
		w.WriteByte(byte(t))
	}
}

func writeTableType(w *bytes.Buffer, tt TableType) {
	w.WriteByte(byte(tt.Element))
	writeLimits(w, tt.Min, tt.Max)
}

func writeGlobalType(w *bytes.Buffer, gt GlobalType) {
	w.WriteByte(byte(gt.Content))
	if gt.Mutable {
		w.WriteByte(0x01)
	} else {
		w.WriteByte(0x00)
	}
}

func writeLimits(w *bytes.Buffer, min uint32, max *uint32) {
	if max != nil {
		w.WriteByte(0x01)
		writeLEB128u(w, min)
		writeLEB128u(w, *max)
	} else {
		w.WriteByte(0x00)
		writeLEB128u(w, min)
	}
}

// ConstInit encodes a constant initializer expression for a global of type
// t, without the end opcode. bits carries the raw value: the integer itself
// for i32/i64, the IEEE bit pattern for f32/f64. Reference types initialize
// to null.
func ConstInit(t ValueType, bits uint64) []byte {
	var w bytes.Buffer
	switch t {
	case ValueI32:
		w.WriteByte(0x41)
		writeLEB128s64(&w, int64(int32(uint32(bits))))
	case ValueI64:
		w.WriteByte(0x42)
		writeLEB128s64(&w, int64(bits))
	case ValueF32:
		w.WriteByte(0x43)
		writeU32LE(&w, uint32(bits))
	case ValueF64:
		w.WriteByte(0x44)
		writeU32LE(&w, uint32(bits))
		writeU32LE(&w, uint32(bits>>32))
	case ValueFuncRef, ValueExternRef:
		w.WriteByte(0xD0)
		w.WriteByte(byte(t))
	}
	return w.Bytes()
}

// writeLEB128u writes an unsigned LEB128 value
func writeLEB128u(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// writeLEB128s writes a signed LEB128 value
func writeLEB128s(w *bytes.Buffer, v int32) {
	writeLEB128s64(w, int64(v))
}

func writeLEB128s64(w *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.WriteByte(b)
			return
		}
		w.WriteByte(b | 0x80)
	}
}
