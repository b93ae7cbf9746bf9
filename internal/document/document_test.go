package document

import (
	"bytes"
	"testing"

	"github.com/dshills/FolioDB/internal/encoding"
	"github.com/dshills/FolioDB/internal/errors"
)

func TestRoundTrip(t *testing.T) {
	doc := New().
		SetBool("awesome", true).
		SetInt64("count", -42).
		SetFloat64("ratio", 2.5).
		SetString("name", "kaas").
		SetBytes("raw", []byte{0, 1, 2})

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(data) != doc.ByteLength() {
		t.Errorf("encoded %d bytes, ByteLength says %d", len(data), doc.ByteLength())
	}
	length, err := encoding.Uint32(data, 0)
	if err != nil || int(length) != len(data) {
		t.Errorf("length prefix %d, buffer %d", length, len(data))
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Len() != 5 {
		t.Fatalf("decoded %d fields, want 5", got.Len())
	}

	if v, _ := got.Get("awesome"); !mustBool(t, v) {
		t.Error("awesome should be true")
	}
	if v, _ := got.Get("count"); mustInt64(t, v) != -42 {
		t.Error("count mismatch")
	}
	if v, _ := got.Get("ratio"); mustFloat64(t, v) != 2.5 {
		t.Error("ratio mismatch")
	}
	if v, _ := got.Get("name"); mustString(t, v) != "kaas" {
		t.Error("name mismatch")
	}
	v, ok := got.Get("raw")
	if !ok {
		t.Fatal("raw missing")
	}
	raw, _ := v.Bytes()
	if !bytes.Equal(raw, []byte{0, 1, 2}) {
		t.Error("raw mismatch")
	}

	// Field order survives the round trip.
	names := []string{"awesome", "count", "ratio", "name", "raw"}
	for i, f := range got.Fields() {
		if f.Name != names[i] {
			t.Errorf("field %d is %q, want %q", i, f.Name, names[i])
		}
	}
}

func mustBool(t *testing.T, v Value) bool {
	t.Helper()
	b, ok := v.Bool()
	if !ok {
		t.Fatal("not a bool")
	}
	return b
}

func mustInt64(t *testing.T, v Value) int64 {
	t.Helper()
	n, ok := v.Int64()
	if !ok {
		t.Fatal("not an int64")
	}
	return n
}

func mustFloat64(t *testing.T, v Value) float64 {
	t.Helper()
	f, ok := v.Float64()
	if !ok {
		t.Fatal("not a float64")
	}
	return f
}

func mustString(t *testing.T, v Value) string {
	t.Helper()
	s, ok := v.String()
	if !ok {
		t.Fatal("not a string")
	}
	return s
}

func TestEmptyDocument(t *testing.T) {
	data, err := New().Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(data) != 4 {
		t.Errorf("empty document encodes to %d bytes, want 4", len(data))
	}
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Len() != 0 {
		t.Errorf("empty document decoded with %d fields", doc.Len())
	}
}

func TestSetReplacesByName(t *testing.T) {
	doc := New().SetBool("awesome", true).SetBool("awesome", false)
	if doc.Len() != 1 {
		t.Fatalf("replacing set produced %d fields", doc.Len())
	}
	v, _ := doc.Get("awesome")
	if mustBool(t, v) {
		t.Error("value should have been replaced with false")
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid, err := New().SetBool("awesome", true).Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	cases := map[string][]byte{
		"too short for prefix":  {1, 0},
		"declared length long":  append([]byte{byte(len(valid) + 5), 0, 0, 0}, valid[4:]...),
		"declared length short": append([]byte{4, 0, 0, 0}, valid[4:]...),
		"truncated field":       valid[:len(valid)-1],
	}
	for name, buf := range cases {
		if _, err := Decode(buf); !errors.IsError(err, errors.InvalidDocument) {
			t.Errorf("%s: want InvalidDocument, got %v", name, err)
		}
	}

	// Unknown kind byte.
	bad := make([]byte, len(valid))
	copy(bad, valid)
	bad[4+1+len("awesome")] = 99
	if _, err := Decode(bad); !errors.IsError(err, errors.InvalidDocument) {
		t.Errorf("unknown kind: want InvalidDocument, got %v", err)
	}

	// Bool payload outside {0,1}.
	copy(bad, valid)
	bad[len(bad)-1] = 2
	if _, err := Decode(bad); !errors.IsError(err, errors.InvalidDocument) {
		t.Errorf("bad bool byte: want InvalidDocument, got %v", err)
	}
}

func TestDecodeRejectsDuplicateFields(t *testing.T) {
	one, err := New().SetBool("a", true).Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	field := one[4:]
	dup := make([]byte, 4, 4+2*len(field))
	dup = append(dup, field...)
	dup = append(dup, field...)
	if err := encoding.PutUint32(dup, 0, uint32(len(dup))); err != nil {
		t.Fatalf("PutUint32: %v", err)
	}
	if _, err := Decode(dup); !errors.IsError(err, errors.InvalidDocument) {
		t.Errorf("duplicate field: want InvalidDocument, got %v", err)
	}
}

func TestMatches(t *testing.T) {
	candidate := New().
		SetBool("awesome", true).
		SetInt64("count", 7).
		SetString("name", "kaas")

	tests := []struct {
		name   string
		filter *Document
		want   bool
	}{
		{"empty filter matches everything", New(), true},
		{"single equal field", New().SetBool("awesome", true), true},
		{"all fields equal", New().SetBool("awesome", true).SetInt64("count", 7), true},
		{"value differs", New().SetBool("awesome", false), false},
		{"kind differs", New().SetInt64("awesome", 1), false},
		{"missing key never matches", New().SetBool("missing", true), false},
	}
	for _, tt := range tests {
		if got := candidate.Matches(tt.filter); got != tt.want {
			t.Errorf("%s: Matches = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValueEquality(t *testing.T) {
	a := New().SetInt64("x", 5)
	b := New().SetInt64("x", 5)
	c := New().SetFloat64("x", 5)

	va, _ := a.Get("x")
	vb, _ := b.Get("x")
	vc, _ := c.Get("x")
	if !va.Equal(vb) {
		t.Error("identical int64 values should be equal")
	}
	if va.Equal(vc) {
		t.Error("int64 5 and float64 5 must not be equal")
	}
}
