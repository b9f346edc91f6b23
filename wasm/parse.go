package wasm

import (
	"bytes"
	"fmt"
	"io"

	"github.com/wippyai/wasm-web-runtime/errors"
)

// Binary format framing constants.
const (
	Magic   uint32 = 0x6D736100 // "\0asm"
	Version uint32 = 0x1
)

// Section IDs used by the signature parser. Sections the parser does not
// need (code, data, element, ...) are skipped wholesale.
const (
	sectionCustom   byte = 0
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionTable    byte = 4
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
)

// Import/export description kinds.
const (
	kindFunc   byte = 0
	kindTable  byte = 1
	kindMemory byte = 2
	kindGlobal byte = 3
)

// Parse decodes the import and export signature tables of a WebAssembly
// binary. Only the sections contributing to item signatures are decoded;
// function bodies are never inspected and no validation is performed.
func Parse(data []byte) (*ParsedModule, error) {
	r := bytes.NewReader(data)

	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.InvalidData(errors.PhaseParse, "module header", err)
	}
	if magic := leU32(header[0:4]); magic != Magic {
		return nil, errors.InvalidData(errors.PhaseParse, fmt.Sprintf("invalid magic number 0x%08x", magic), nil)
	}
	if version := leU32(header[4:8]); version != Version {
		return nil, errors.InvalidData(errors.PhaseParse, fmt.Sprintf("unsupported version %d", version), nil)
	}

	p := &parser{
		parsed: &ParsedModule{
			Imports: make(map[ImportKey]ExternType),
			Exports: make(map[string]ExternType),
		},
	}

	for {
		id, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.InvalidData(errors.PhaseParse, "section id", err)
		}
		size, err := readLEB128u(r)
		if err != nil {
			return nil, errors.InvalidData(errors.PhaseParse, "section size", err)
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, errors.InvalidData(errors.PhaseParse, "section body", err)
		}

		sr := bytes.NewReader(body)
		switch id {
		case sectionType:
			err = p.typeSection(sr)
		case sectionImport:
			err = p.importSection(sr)
		case sectionFunction:
			err = p.functionSection(sr)
		case sectionTable:
			err = p.tableSection(sr)
		case sectionMemory:
			err = p.memorySection(sr)
		case sectionGlobal:
			err = p.globalSection(sr)
		case sectionExport:
			err = p.exportSection(sr)
		default:
			// custom, start, element, code, data, ... carry no signatures
		}
		if err != nil {
			return nil, errors.InvalidData(errors.PhaseParse, fmt.Sprintf("section %d", id), err)
		}
	}

	return p.parsed, nil
}

// parser accumulates the joint import+local index spaces so export indices
// can be resolved to declared types.
type parser struct {
	parsed   *ParsedModule
	types    []FuncType
	funcs    []FuncType
	tables   []TableType
	memories []MemoryType
	globals  []GlobalType
}

func (p *parser) typeSection(r *bytes.Reader) error {
	count, err := readLEB128u(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("type %d: unsupported form 0x%02x", i, form)
		}
		ft := FuncType{}
		if ft.Params, err = readValueTypes(r); err != nil {
			return err
		}
		if ft.Results, err = readValueTypes(r); err != nil {
			return err
		}
		p.types = append(p.types, ft)
	}
	return nil
}

func (p *parser) importSection(r *bytes.Reader) error {
	count, err := readLEB128u(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		module, err := readName(r)
		if err != nil {
			return err
		}
		name, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}

		var ext ExternType
		switch kind {
		case kindFunc:
			idx, err := readLEB128u(r)
			if err != nil {
				return err
			}
			if int(idx) >= len(p.types) {
				return fmt.Errorf("import %s.%s: type index %d out of range", module, name, idx)
			}
			ft := p.types[idx]
			p.funcs = append(p.funcs, ft)
			ext = ExternType{Kind: ExternFunc, Func: &ft}
		case kindTable:
			tt, err := readTableType(r)
			if err != nil {
				return err
			}
			p.tables = append(p.tables, tt)
			ext = ExternType{Kind: ExternTable, Table: &tt}
		case kindMemory:
			mt, err := readMemoryType(r)
			if err != nil {
				return err
			}
			p.memories = append(p.memories, mt)
			ext = ExternType{Kind: ExternMemory, Memory: &mt}
		case kindGlobal:
			gt, err := readGlobalType(r)
			if err != nil {
				return err
			}
			p.globals = append(p.globals, gt)
			ext = ExternType{Kind: ExternGlobal, Global: &gt}
		default:
			return fmt.Errorf("import %s.%s: unknown kind 0x%02x", module, name, kind)
		}

		p.parsed.Imports[ImportKey{Module: module, Name: name}] = ext
	}
	return nil
}

func (p *parser) functionSection(r *bytes.Reader) error {
	count, err := readLEB128u(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		idx, err := readLEB128u(r)
		if err != nil {
			return err
		}
		if int(idx) >= len(p.types) {
			return fmt.Errorf("function %d: type index %d out of range", i, idx)
		}
		p.funcs = append(p.funcs, p.types[idx])
	}
	return nil
}

func (p *parser) tableSection(r *bytes.Reader) error {
	count, err := readLEB128u(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		tt, err := readTableType(r)
		if err != nil {
			return err
		}
		p.tables = append(p.tables, tt)
	}
	return nil
}

func (p *parser) memorySection(r *bytes.Reader) error {
	count, err := readLEB128u(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		mt, err := readMemoryType(r)
		if err != nil {
			return err
		}
		p.memories = append(p.memories, mt)
	}
	return nil
}

func (p *parser) globalSection(r *bytes.Reader) error {
	count, err := readLEB128u(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		gt, err := readGlobalType(r)
		if err != nil {
			return err
		}
		if err := skipConstExpr(r); err != nil {
			return fmt.Errorf("global %d: %w", i, err)
		}
		p.globals = append(p.globals, gt)
	}
	return nil
}

func (p *parser) exportSection(r *bytes.Reader) error {
	count, err := readLEB128u(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, err := readLEB128u(r)
		if err != nil {
			return err
		}

		var ext ExternType
		switch kind {
		case kindFunc:
			if int(idx) >= len(p.funcs) {
				return fmt.Errorf("export %q: function index %d out of range", name, idx)
			}
			ft := p.funcs[idx]
			ext = ExternType{Kind: ExternFunc, Func: &ft}
		case kindTable:
			if int(idx) >= len(p.tables) {
				return fmt.Errorf("export %q: table index %d out of range", name, idx)
			}
			tt := p.tables[idx]
			ext = ExternType{Kind: ExternTable, Table: &tt}
		case kindMemory:
			if int(idx) >= len(p.memories) {
				return fmt.Errorf("export %q: memory index %d out of range", name, idx)
			}
			mt := p.memories[idx]
			ext = ExternType{Kind: ExternMemory, Memory: &mt}
		case kindGlobal:
			if int(idx) >= len(p.globals) {
				return fmt.Errorf("export %q: global index %d out of range", name, idx)
			}
			gt := p.globals[idx]
			ext = ExternType{Kind: ExternGlobal, Global: &gt}
		default:
			return fmt.Errorf("export %q: unknown kind 0x%02x", name, kind)
		}

		p.parsed.Exports[name] = ext
	}
	return nil
}

func readValueType(r *bytes.Reader) (ValueType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	vt := ValueType(b)
	switch vt {
	case ValueI32, ValueI64, ValueF32, ValueF64, ValueFuncRef, ValueExternRef:
		return vt, nil
	}
	return 0, fmt.Errorf("unsupported value type 0x%02x", b)
}

func readValueTypes(r *bytes.Reader) ([]ValueType, error) {
	count, err := readLEB128u(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	out := make([]ValueType, count)
	for i := range out {
		if out[i], err = readValueType(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readName(r *bytes.Reader) (string, error) {
	length, err := readLEB128u(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readLimits(r *bytes.Reader) (min uint32, max *uint32, err error) {
	flag, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	switch flag {
	case 0x00:
		min, err = readLEB128u(r)
		return min, nil, err
	case 0x01:
		if min, err = readLEB128u(r); err != nil {
			return 0, nil, err
		}
		m, err := readLEB128u(r)
		if err != nil {
			return 0, nil, err
		}
		return min, &m, nil
	default:
		// shared and 64-bit limits are out of scope for the JS API surface
		return 0, nil, fmt.Errorf("unsupported limits flag 0x%02x", flag)
	}
}

func readTableType(r *bytes.Reader) (TableType, error) {
	elem, err := readValueType(r)
	if err != nil {
		return TableType{}, err
	}
	if !elem.IsRef() {
		return TableType{}, fmt.Errorf("table element type %s is not a reference type", elem)
	}
	min, max, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{Element: elem, Min: min, Max: max}, nil
}

func readMemoryType(r *bytes.Reader) (MemoryType, error) {
	min, max, err := readLimits(r)
	if err != nil {
		return MemoryType{}, err
	}
	return MemoryType{Min: min, Max: max}, nil
}

func readGlobalType(r *bytes.Reader) (GlobalType, error) {
	content, err := readValueType(r)
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, fmt.Errorf("invalid mutability flag 0x%02x", mut)
	}
	return GlobalType{Content: content, Mutable: mut == 1}, nil
}

// skipConstExpr advances past a constant initializer expression. Only the
// expression forms valid in global initializers are recognized.
func skipConstExpr(r *bytes.Reader) error {
	for {
		op, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch op {
		case 0x0B: // end
			return nil
		case 0x41: // i32.const
			if _, err := readLEB128u(r); err != nil {
				return err
			}
		case 0x42: // i64.const
			if _, err := readLEB128u64(r); err != nil {
				return err
			}
		case 0x43: // f32.const
			if _, err := r.Seek(4, io.SeekCurrent); err != nil {
				return err
			}
		case 0x44: // f64.const
			if _, err := r.Seek(8, io.SeekCurrent); err != nil {
				return err
			}
		case 0x23, 0xD2: // global.get, ref.func
			if _, err := readLEB128u(r); err != nil {
				return err
			}
		case 0xD0: // ref.null
			if _, err := r.ReadByte(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported opcode 0x%02x in constant expression", op)
		}
	}
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
