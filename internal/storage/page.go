// Package storage implements the on-disk page format: fixed-size pages
// with a 10-byte header, linked into a master directory chain and
// per-collection chains, plus the file backend they are persisted through.
// Document payloads live outside of pages; pages reference them by file
// offset.
package storage

import (
	"github.com/dshills/FolioDB/internal/encoding"
	"github.com/dshills/FolioDB/internal/errors"
)

const (
	// PageHeaderSize is the size of the common page header: size byte,
	// type byte, and the 8-byte next-page offset.
	PageHeaderSize = 10

	// SmallPageLength is the byte length of a Small page.
	SmallPageLength = 1000

	// MediumPageLength is the byte length of a Medium page. The value is
	// wired into the format but no allocation path selects it yet.
	MediumPageLength = 1_000_000
)

// PageSize is the size class of a page, stored as byte 0 of every page.
type PageSize uint8

const (
	// PageSizeNone is a decode-failure sentinel and is never written.
	PageSizeNone   PageSize = 0
	PageSizeSmall  PageSize = 1
	PageSizeMedium PageSize = 2
)

// ByteLength returns the on-disk length of a page of this size class.
func (s PageSize) ByteLength() int {
	switch s {
	case PageSizeSmall:
		return SmallPageLength
	case PageSizeMedium:
		return MediumPageLength
	default:
		return 0
	}
}

// Valid reports whether the size class may appear on disk.
func (s PageSize) Valid() bool {
	return s == PageSizeSmall || s == PageSizeMedium
}

// PageType is the type discriminant of a page, stored as byte 1.
type PageType uint8

const (
	PageTypeUnknown          PageType = 0
	PageTypeMaster           PageType = 1
	PageTypeCollectionHeader PageType = 2
	PageTypeCollectionBody   PageType = 3
	// PageTypeIndex is reserved; readers reject it.
	PageTypeIndex PageType = 4
)

// Storable reports whether pages of this type may be written or resolved.
func (t PageType) Storable() bool {
	switch t {
	case PageTypeMaster, PageTypeCollectionHeader, PageTypeCollectionBody:
		return true
	default:
		return false
	}
}

func (t PageType) String() string {
	switch t {
	case PageTypeMaster:
		return "master"
	case PageTypeCollectionHeader:
		return "collection-header"
	case PageTypeCollectionBody:
		return "collection-body"
	case PageTypeIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Page is the contract shared by all page variants.
type Page interface {
	Size() PageSize
	Type() PageType
	FilePosition() int64
	NextOffset() int64
	SetNextOffset(offset int64)
	NextReference() (PageReference, bool)
	Validate() error
	Bytes() []byte
	Flush() error
}

// PageReference is a value pointing at a persisted page. The referenced
// bytes live in the file; resolving reads and validates them.
type PageReference struct {
	Size   PageSize
	Type   PageType
	Offset int64
	fm     *FileManager
}

// NewPageReference builds a reference bound to a file manager.
func NewPageReference(fm *FileManager, size PageSize, typ PageType, offset int64) PageReference {
	return PageReference{Size: size, Type: typ, Offset: offset, fm: fm}
}

// Resolve reads the referenced page, picks the concrete variant from its
// type byte, and validates it.
func (r PageReference) Resolve() (Page, error) {
	if r.fm == nil {
		return nil, errors.InvalidPagef("page reference at offset %d is not bound to a file", r.Offset)
	}
	if !r.Size.Valid() {
		return nil, errors.InvalidPagef("page reference at offset %d has size class %d", r.Offset, r.Size)
	}
	buf, err := r.fm.ReadAt(r.Offset, r.Size.ByteLength())
	if err != nil {
		if errors.IsError(err, errors.InvalidFileStructure) {
			return nil, errors.InvalidPagef("page at offset %d is truncated", r.Offset).
				WithDetailf("%v", err)
		}
		return nil, err
	}

	if PageSize(buf[0]) != r.Size {
		return nil, errors.InvalidPagef("page at offset %d declares size class %d, reference says %d", r.Offset, buf[0], r.Size)
	}
	typ := PageType(buf[1])
	if r.Type != PageTypeUnknown && typ != r.Type {
		return nil, errors.InvalidPagef("page at offset %d is a %s page, reference says %s", r.Offset, typ, r.Type)
	}

	hdr := pageHeader{buf: buf, filePos: r.Offset, fm: r.fm}
	var page Page
	switch typ {
	case PageTypeMaster:
		page = &MasterPage{pageHeader: hdr}
	case PageTypeCollectionHeader:
		page = &CollectionHeaderPage{pageHeader: hdr}
	case PageTypeCollectionBody:
		page = &CollectionBodyPage{pageHeader: hdr}
	default:
		return nil, errors.InvalidPagef("page at offset %d has unsupported type %s", r.Offset, typ)
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return page, nil
}

// pageHeader carries the state shared by every page variant: the page
// bytes, the file position they were read from or appended to (zero while
// unallocated), and a non-owning handle to the file backend.
type pageHeader struct {
	buf     []byte
	filePos int64
	fm      *FileManager
}

func newPageHeader(fm *FileManager, size PageSize, typ PageType) pageHeader {
	buf := make([]byte, size.ByteLength())
	buf[0] = byte(size)
	buf[1] = byte(typ)
	return pageHeader{buf: buf, fm: fm}
}

// Size returns the size class from byte 0.
func (p *pageHeader) Size() PageSize {
	return PageSize(p.buf[0])
}

// Type returns the type discriminant from byte 1.
func (p *pageHeader) Type() PageType {
	return PageType(p.buf[1])
}

// FilePosition returns the page's offset in the file, or zero while the
// page has not been allocated yet.
func (p *pageHeader) FilePosition() int64 {
	return p.filePos
}

// Bytes returns the raw page buffer.
func (p *pageHeader) Bytes() []byte {
	return p.buf
}

// NextOffset returns the chain pointer, or zero if the page is the tail.
func (p *pageHeader) NextOffset() int64 {
	v, _ := encoding.Uint64(p.buf, 2)
	return int64(v)
}

// SetNextOffset writes the chain pointer. The page must still be flushed.
func (p *pageHeader) SetNextOffset(offset int64) {
	_ = encoding.PutUint64(p.buf, 2, uint64(offset))
}

func (p *pageHeader) nextReference(nextType PageType) (PageReference, bool) {
	offset := p.NextOffset()
	if offset == 0 {
		return PageReference{}, false
	}
	return PageReference{Size: p.Size(), Type: nextType, Offset: offset, fm: p.fm}, true
}

// allocate appends the page at end-of-file if it has no position yet.
func (p *pageHeader) allocate() error {
	if p.filePos != 0 {
		return nil
	}
	pos, err := p.fm.Append(p.buf)
	if err != nil {
		return err
	}
	p.filePos = pos
	return nil
}

// Flush rewrites the page at its file position.
func (p *pageHeader) Flush() error {
	if p.filePos == 0 {
		return errors.InvalidPagef("cannot flush a page that has not been allocated")
	}
	return p.fm.WriteAt(p.filePos, p.buf)
}

// validate checks the structural invariants every page shares.
func (p *pageHeader) validate(expected PageType) error {
	if len(p.buf) < PageHeaderSize {
		return errors.InvalidPagef("page buffer of %d bytes is shorter than the %d-byte header", len(p.buf), PageHeaderSize)
	}
	size := PageSize(p.buf[0])
	if !size.Valid() {
		return errors.InvalidPagef("byte 0 holds invalid size class %d", p.buf[0])
	}
	if size.ByteLength() != len(p.buf) {
		return errors.InvalidPagef("size class %d implies %d bytes, buffer has %d", size, size.ByteLength(), len(p.buf))
	}
	if PageType(p.buf[1]) != expected {
		return errors.InvalidPagef("byte 1 holds type %s, expected %s", PageType(p.buf[1]), expected)
	}
	return nil
}
