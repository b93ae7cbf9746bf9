// Package document implements the self-describing binary document codec.
// A document is a flat set of named, typed fields serialized as a
// length-prefixed byte string: a 4-byte little-endian total length
// (including itself) followed by the fields in insertion order.
package document

import (
	"bytes"
	"math"
	"unicode/utf8"

	"github.com/dshills/FolioDB/internal/encoding"
	"github.com/dshills/FolioDB/internal/errors"
)

// Kind discriminates the value types a field can hold.
type Kind uint8

const (
	KindBool    Kind = 1
	KindInt64   Kind = 2
	KindFloat64 Kind = 3
	KindString  Kind = 4
	KindBytes   Kind = 5
)

// Valid reports whether the kind is a known discriminant.
func (k Kind) Valid() bool {
	return k >= KindBool && k <= KindBytes
}

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// Value is one field value: a kind plus its encoded payload. Equality is
// binary equality of kind and payload.
type Value struct {
	kind Kind
	data []byte
}

// Kind returns the value's type discriminant.
func (v Value) Kind() Kind {
	return v.kind
}

// Equal reports binary equality with another value.
func (v Value) Equal(other Value) bool {
	return v.kind == other.kind && bytes.Equal(v.data, other.data)
}

// Bool returns the value as a bool; ok is false for other kinds.
func (v Value) Bool() (value, ok bool) {
	if v.kind != KindBool || len(v.data) != 1 {
		return false, false
	}
	return v.data[0] != 0, true
}

// Int64 returns the value as an int64; ok is false for other kinds.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindInt64 || len(v.data) != 8 {
		return 0, false
	}
	u, _ := encoding.Uint64(v.data, 0)
	return int64(u), true
}

// Float64 returns the value as a float64; ok is false for other kinds.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindFloat64 || len(v.data) != 8 {
		return 0, false
	}
	u, _ := encoding.Uint64(v.data, 0)
	return math.Float64frombits(u), true
}

// String returns the value as a string; ok is false for other kinds.
func (v Value) String() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return string(v.data), true
}

// Bytes returns the value's raw payload; ok is false unless it is a bytes
// field.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.data, true
}

// Field is one named value of a document.
type Field struct {
	Name  string
	Value Value
}

// Document is an ordered set of uniquely named fields.
type Document struct {
	fields []Field
	index  map[string]int
}

// New creates an empty document.
func New() *Document {
	return &Document{index: make(map[string]int)}
}

func (d *Document) set(name string, v Value) *Document {
	if i, ok := d.index[name]; ok {
		d.fields[i].Value = v
		return d
	}
	d.index[name] = len(d.fields)
	d.fields = append(d.fields, Field{Name: name, Value: v})
	return d
}

// SetBool sets a bool field, replacing any field of the same name.
func (d *Document) SetBool(name string, value bool) *Document {
	data := []byte{0}
	if value {
		data[0] = 1
	}
	return d.set(name, Value{kind: KindBool, data: data})
}

// SetInt64 sets an int64 field.
func (d *Document) SetInt64(name string, value int64) *Document {
	data := make([]byte, 8)
	_ = encoding.PutUint64(data, 0, uint64(value))
	return d.set(name, Value{kind: KindInt64, data: data})
}

// SetFloat64 sets a float64 field.
func (d *Document) SetFloat64(name string, value float64) *Document {
	data := make([]byte, 8)
	_ = encoding.PutUint64(data, 0, math.Float64bits(value))
	return d.set(name, Value{kind: KindFloat64, data: data})
}

// SetString sets a string field.
func (d *Document) SetString(name string, value string) *Document {
	return d.set(name, Value{kind: KindString, data: []byte(value)})
}

// SetBytes sets a bytes field.
func (d *Document) SetBytes(name string, value []byte) *Document {
	data := make([]byte, len(value))
	copy(data, value)
	return d.set(name, Value{kind: KindBytes, data: data})
}

// Get returns the named field's value.
func (d *Document) Get(name string) (Value, bool) {
	i, ok := d.index[name]
	if !ok {
		return Value{}, false
	}
	return d.fields[i].Value, true
}

// Fields returns the fields in insertion order.
func (d *Document) Fields() []Field {
	return d.fields
}

// Len returns the number of fields.
func (d *Document) Len() int {
	return len(d.fields)
}

// ByteLength returns the encoded size including the 4-byte length prefix.
func (d *Document) ByteLength() int {
	n := 4
	for _, f := range d.fields {
		n += 1 + len(f.Name) + 1 // name prefix, name, kind
		switch f.Value.kind {
		case KindString, KindBytes:
			n += 4 + len(f.Value.data)
		default:
			n += len(f.Value.data)
		}
	}
	return n
}

// Bytes serializes the document. The first 4 bytes are the little-endian
// total length, including themselves.
func (d *Document) Bytes() ([]byte, error) {
	total := d.ByteLength()
	if int64(total) > math.MaxUint32 {
		return nil, errors.InvalidDocumentf("document of %d bytes exceeds the 32-bit length prefix", total)
	}
	buf := make([]byte, total)
	_ = encoding.PutUint32(buf, 0, uint32(total))
	off := 4
	for _, f := range d.fields {
		n, err := encoding.PutString(buf, off, f.Name)
		if err != nil {
			return nil, errors.InvalidDocumentf("field name %q does not encode", f.Name).WithDetailf("%v", err)
		}
		off += n
		buf[off] = byte(f.Value.kind)
		off++
		switch f.Value.kind {
		case KindString, KindBytes:
			_ = encoding.PutUint32(buf, off, uint32(len(f.Value.data)))
			off += 4
		}
		copy(buf[off:], f.Value.data)
		off += len(f.Value.data)
	}
	return buf, nil
}

// Decode parses and validates an encoded document. The declared length
// must match the buffer exactly and every field must be well formed.
func Decode(buf []byte) (*Document, error) {
	if len(buf) < 4 {
		return nil, errors.InvalidDocumentf("document of %d bytes is shorter than its length prefix", len(buf))
	}
	total, _ := encoding.Uint32(buf, 0)
	if int(total) != len(buf) {
		return nil, errors.InvalidDocumentf("document declares %d bytes, buffer has %d", total, len(buf))
	}

	doc := New()
	off := 4
	for off < len(buf) {
		name, n, err := encoding.String(buf, off)
		if err != nil {
			return nil, errors.InvalidDocumentf("field name at offset %d is truncated", off)
		}
		if len(name) == 0 {
			return nil, errors.InvalidDocumentf("field at offset %d has an empty name", off)
		}
		if !utf8.ValidString(name) {
			return nil, errors.InvalidDocumentf("field name at offset %d is not valid UTF-8", off)
		}
		if _, dup := doc.index[name]; dup {
			return nil, errors.InvalidDocumentf("duplicate field %q", name)
		}
		off += n

		if off >= len(buf) {
			return nil, errors.InvalidDocumentf("field %q is missing its kind byte", name)
		}
		kind := Kind(buf[off])
		off++

		var data []byte
		switch kind {
		case KindBool:
			if off+1 > len(buf) {
				return nil, errors.InvalidDocumentf("field %q is truncated", name)
			}
			if buf[off] > 1 {
				return nil, errors.InvalidDocumentf("field %q holds bool byte %d", name, buf[off])
			}
			data = buf[off : off+1]
			off++
		case KindInt64, KindFloat64:
			if off+8 > len(buf) {
				return nil, errors.InvalidDocumentf("field %q is truncated", name)
			}
			data = buf[off : off+8]
			off += 8
		case KindString, KindBytes:
			length, err := encoding.Uint32(buf, off)
			if err != nil {
				return nil, errors.InvalidDocumentf("field %q is missing its value length", name)
			}
			off += 4
			if off+int(length) > len(buf) {
				return nil, errors.InvalidDocumentf("field %q declares %d value bytes past the end", name, length)
			}
			data = buf[off : off+int(length)]
			if kind == KindString && !utf8.Valid(data) {
				return nil, errors.InvalidDocumentf("field %q holds invalid UTF-8", name)
			}
			off += int(length)
		default:
			return nil, errors.InvalidDocumentf("field %q has unknown kind %d", name, kind)
		}

		owned := make([]byte, len(data))
		copy(owned, data)
		doc.set(name, Value{kind: kind, data: owned})
	}
	return doc, nil
}

// Matches implements equality-on-fields: the document matches the filter
// iff every filter field exists here with a binary-equal value. Missing
// keys never match.
func (d *Document) Matches(filter *Document) bool {
	for _, f := range filter.fields {
		v, ok := d.Get(f.Name)
		if !ok || !v.Equal(f.Value) {
			return false
		}
	}
	return true
}
