// stand for bytes helper
package bx

import (
	"encoding/binary"
	"errors"
)

var (
	LE = binary.LittleEndian
	BE = binary.BigEndian

	ErrOutOfRange = errors.New("bx: access out of range")
)

// --- LE: read ---
func U16(b []byte) uint16 { return LE.Uint16(b) }
func U32(b []byte) uint32 { return LE.Uint32(b) }
func I32(b []byte) int32  { return int32(U32(b)) }

// --- LE: write ---
func PutU16(b []byte, v uint16) { LE.PutUint16(b, v) }
func PutU32(b []byte, v uint32) { LE.PutUint32(b, v) }
func PutI32(b []byte, v int32)  { PutU32(b, uint32(v)) }

// --- LE: At (offset), bounds-checked ---
func U16At(b []byte, off int) (uint16, error) {
	if !Fits(b, off, 2) {
		return 0, ErrOutOfRange
	}
	return U16(b[off:]), nil
}

func PutU16At(b []byte, off int, v uint16) error {
	if !Fits(b, off, 2) {
		return ErrOutOfRange
	}
	PutU16(b[off:], v)
	return nil
}

// Fits reports whether [off, off+n) lies inside b.
func Fits(b []byte, off, n int) bool {
	return off >= 0 && n >= 0 && off+n <= len(b)
}

// --- BE (used for sortable keys) ---
func U32BE(b []byte) uint32       { return BE.Uint32(b) }
func PutU32BE(b []byte, v uint32) { BE.PutUint32(b, v) }
