package wasm

import (
	"errors"
	"io"
)

// LEB128 decoding utilities for the WebAssembly binary format

// ErrOverflow is returned when a LEB128 value exceeds the maximum bit width.
var ErrOverflow = errors.New("leb128: overflow")

// readLEB128u reads an unsigned 32-bit LEB128 value
func readLEB128u(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, ErrOverflow
		}
	}
}

// readLEB128u64 reads an unsigned 64-bit LEB128 value
func readLEB128u64(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, ErrOverflow
		}
	}
}
