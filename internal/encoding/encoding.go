// Package encoding implements the little-endian byte codec shared by the
// page and document formats: 32- and 64-bit unsigned integers and
// 1-byte-length-prefixed UTF-8 strings at explicit buffer offsets.
package encoding

import (
	"encoding/binary"

	"github.com/dshills/FolioDB/internal/errors"
)

// MaxStringLength is the longest string a 1-byte length prefix can carry.
const MaxStringLength = 255

// Uint32 decodes a little-endian uint32 at offset.
func Uint32(buf []byte, offset int) (uint32, error) {
	if offset < 0 || offset+4 > len(buf) {
		return 0, errors.InvalidFileStructuref("cannot read uint32 at offset %d: buffer is %d bytes", offset, len(buf))
	}
	return binary.LittleEndian.Uint32(buf[offset:]), nil
}

// PutUint32 encodes a little-endian uint32 at offset.
func PutUint32(buf []byte, offset int, v uint32) error {
	if offset < 0 || offset+4 > len(buf) {
		return errors.InvalidFileStructuref("cannot write uint32 at offset %d: buffer is %d bytes", offset, len(buf))
	}
	binary.LittleEndian.PutUint32(buf[offset:], v)
	return nil
}

// Uint64 decodes a little-endian uint64 at offset.
func Uint64(buf []byte, offset int) (uint64, error) {
	if offset < 0 || offset+8 > len(buf) {
		return 0, errors.InvalidFileStructuref("cannot read uint64 at offset %d: buffer is %d bytes", offset, len(buf))
	}
	return binary.LittleEndian.Uint64(buf[offset:]), nil
}

// PutUint64 encodes a little-endian uint64 at offset.
func PutUint64(buf []byte, offset int, v uint64) error {
	if offset < 0 || offset+8 > len(buf) {
		return errors.InvalidFileStructuref("cannot write uint64 at offset %d: buffer is %d bytes", offset, len(buf))
	}
	binary.LittleEndian.PutUint64(buf[offset:], v)
	return nil
}

// String decodes a length-prefixed UTF-8 string at offset. It returns the
// string and the total number of bytes consumed including the prefix.
func String(buf []byte, offset int) (string, int, error) {
	if offset < 0 || offset+1 > len(buf) {
		return "", 0, errors.InvalidFileStructuref("cannot read string length at offset %d: buffer is %d bytes", offset, len(buf))
	}
	n := int(buf[offset])
	if offset+1+n > len(buf) {
		return "", 0, errors.InvalidFileStructuref("cannot read %d-byte string at offset %d: buffer is %d bytes", n, offset, len(buf))
	}
	return string(buf[offset+1 : offset+1+n]), 1 + n, nil
}

// PutString encodes a length-prefixed UTF-8 string at offset. It returns
// the total number of bytes written including the prefix.
func PutString(buf []byte, offset int, s string) (int, error) {
	if len(s) > MaxStringLength {
		return 0, errors.InvalidFileStructuref("string of %d bytes exceeds the %d-byte length prefix", len(s), MaxStringLength)
	}
	if offset < 0 || offset+1+len(s) > len(buf) {
		return 0, errors.InvalidFileStructuref("cannot write %d-byte string at offset %d: buffer is %d bytes", len(s), offset, len(buf))
	}
	buf[offset] = byte(len(s))
	copy(buf[offset+1:], s)
	return 1 + len(s), nil
}
