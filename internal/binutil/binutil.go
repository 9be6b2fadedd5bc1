// Package binutil provides the boundary-checked little-endian readers
// shared by the binary-format packages key, erf and mdl (ncs uses
// encoding/binary directly). The accessors operate on any []byte, so key, erf, and
// mdl can each mmap their own file and share the same reader logic
// instead of re-deriving it.
package binutil

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrOutsideBoundary is returned when a read would cross the end of
// the buffer.
var ErrOutsideBoundary = errors.New("binutil: read outside buffer boundary")

// Uint32 reads a little-endian uint32 at offset.
func Uint32(data []byte, offset uint32) (uint32, error) {
	if uint64(offset)+4 > uint64(len(data)) {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint32(data[offset:]), nil
}

// Uint16 reads a little-endian uint16 at offset.
func Uint16(data []byte, offset uint32) (uint16, error) {
	if uint64(offset)+2 > uint64(len(data)) {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint16(data[offset:]), nil
}

// Uint8 reads a byte at offset.
func Uint8(data []byte, offset uint32) (uint8, error) {
	if uint64(offset)+1 > uint64(len(data)) {
		return 0, ErrOutsideBoundary
	}
	return data[offset], nil
}

// BytesAt returns a size-byte slice starting at offset; the bounds
// check is done in uint64 so offset+size cannot wrap.
func BytesAt(data []byte, offset, size uint32) ([]byte, error) {
	total := uint64(offset) + uint64(size)
	if total > uint64(len(data)) {
		return nil, ErrOutsideBoundary
	}
	return data[offset : offset+size], nil
}

// StructUnpack decodes a fixed-size little-endian struct at offset.
func StructUnpack(data []byte, offset, size uint32, v interface{}) error {
	buf, err := BytesAt(data, offset, size)
	if err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, v)
}

// FixedASCII reads a NUL-padded (or space-padded) fixed-width ASCII
// field at offset and trims the padding.
func FixedASCII(data []byte, offset, width uint32) (string, error) {
	buf, err := BytesAt(data, offset, width)
	if err != nil {
		return "", err
	}
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(bytes.TrimRight(buf[:n], " ")), nil
}

// PutFixedASCII writes s into a width-byte field, NUL-padded; an s
// longer than width is truncated to width bytes.
func PutFixedASCII(s string, width int) []byte {
	buf := make([]byte, width)
	n := copy(buf, s)
	_ = n
	return buf
}
