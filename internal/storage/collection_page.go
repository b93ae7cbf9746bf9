package storage

import (
	"unicode/utf8"

	"github.com/dshills/FolioDB/internal/encoding"
	"github.com/dshills/FolioDB/internal/errors"
)

const (
	// slotSize is the size of one document slot: an 8-byte file offset.
	slotSize = 8

	// docLengthPrefixSize is the length prefix every document carries.
	docLengthPrefixSize = 4
)

// SlotPage is the slot-array protocol shared by collection header and body
// pages: an array of 8-byte document offsets where zero means empty and
// terminates iteration.
type SlotPage interface {
	Page

	// FirstEntryOffset is the byte index of the first slot in the page.
	FirstEntryOffset() int

	// Documents iterates the page's non-zero slots in order. Iteration
	// stops at the first zero slot, not at the end of the array; the
	// format cannot tell "never used" from "removed".
	Documents() *DocumentIterator

	// AppendDocument appends a document payload at end-of-file and
	// records its offset in the tail page of this page's chain, spilling
	// into a new body page when the slot array is full.
	AppendDocument(doc []byte) error

	slotBase() *pageHeader
}

// CollectionHeaderPage is the root page of a collection. It carries the
// collection name followed by the first stretch of the document slot
// array.
type CollectionHeaderPage struct {
	pageHeader
}

// NewCollectionHeaderPage creates an unallocated header page for the named
// collection.
func NewCollectionHeaderPage(fm *FileManager, name string) (*CollectionHeaderPage, error) {
	if !utf8.ValidString(name) {
		return nil, errors.InvalidPagef("collection name is not valid UTF-8")
	}
	hdr := newPageHeader(fm, PageSizeSmall, PageTypeCollectionHeader)
	n, err := encoding.PutString(hdr.buf, PageHeaderSize, name)
	if err != nil {
		return nil, errors.InvalidPagef("collection name of %d bytes does not fit a header page", len(name))
	}
	if PageHeaderSize+n+slotSize > len(hdr.buf) {
		return nil, errors.InvalidPagef("collection name of %d bytes leaves no room for document slots", len(name))
	}
	return &CollectionHeaderPage{pageHeader: hdr}, nil
}

// Name returns the collection name stored at the head of the body.
func (p *CollectionHeaderPage) Name() (string, error) {
	name, _, err := encoding.String(p.buf, PageHeaderSize)
	if err != nil {
		return "", errors.InvalidPagef("collection header at offset %d has a truncated name", p.filePos)
	}
	return name, nil
}

// FirstEntryOffset returns the byte index of the first slot, just past the
// length-prefixed name.
func (p *CollectionHeaderPage) FirstEntryOffset() int {
	return PageHeaderSize + 1 + int(p.buf[PageHeaderSize])
}

// Validate checks the page's structural invariants, including that the
// declared name fits the page.
func (p *CollectionHeaderPage) Validate() error {
	if err := p.validate(PageTypeCollectionHeader); err != nil {
		return err
	}
	if p.FirstEntryOffset() > len(p.buf) {
		return errors.InvalidPagef("collection header declares a %d-byte name that overruns the page", p.buf[PageHeaderSize])
	}
	return nil
}

// NextReference returns a reference to the first body page of the chain.
func (p *CollectionHeaderPage) NextReference() (PageReference, bool) {
	return p.nextReference(PageTypeCollectionBody)
}

// Documents iterates the page's slots.
func (p *CollectionHeaderPage) Documents() *DocumentIterator {
	return &DocumentIterator{page: p, offset: p.FirstEntryOffset()}
}

// AppendDocument appends doc and records its slot in this chain.
func (p *CollectionHeaderPage) AppendDocument(doc []byte) error {
	return appendDocument(p, doc)
}

func (p *CollectionHeaderPage) slotBase() *pageHeader {
	return &p.pageHeader
}

// CollectionBodyPage is a continuation node of a collection's chain; its
// slot array starts right after the page header.
type CollectionBodyPage struct {
	pageHeader
}

// NewCollectionBodyPage creates an empty, unallocated body page.
func NewCollectionBodyPage(fm *FileManager) *CollectionBodyPage {
	return &CollectionBodyPage{pageHeader: newPageHeader(fm, PageSizeSmall, PageTypeCollectionBody)}
}

// FirstEntryOffset returns the byte index of the first slot.
func (p *CollectionBodyPage) FirstEntryOffset() int {
	return PageHeaderSize
}

// Validate checks the page's structural invariants.
func (p *CollectionBodyPage) Validate() error {
	return p.validate(PageTypeCollectionBody)
}

// NextReference returns a reference to the next body page in the chain.
func (p *CollectionBodyPage) NextReference() (PageReference, bool) {
	return p.nextReference(PageTypeCollectionBody)
}

// Documents iterates the page's slots.
func (p *CollectionBodyPage) Documents() *DocumentIterator {
	return &DocumentIterator{page: p, offset: p.FirstEntryOffset()}
}

// AppendDocument appends doc and records its slot in this chain.
func (p *CollectionBodyPage) AppendDocument(doc []byte) error {
	return appendDocument(p, doc)
}

func (p *CollectionBodyPage) slotBase() *pageHeader {
	return &p.pageHeader
}

// DocumentReference points at one stored document: the payload's file
// offset plus the slot inside the containing page that holds it, so the
// slot can be rewritten on update or zeroed on remove.
type DocumentReference struct {
	DocumentOffset int64
	SlotOffset     int
	page           SlotPage
}

// DocumentIterator lazily yields DocumentReferences for a page's slots.
type DocumentIterator struct {
	page   SlotPage
	offset int
}

// Next returns the next live slot, or false at the first zero slot or the
// end of the array.
func (it *DocumentIterator) Next() (DocumentReference, bool) {
	base := it.page.slotBase()
	if it.offset+slotSize > len(base.buf) {
		return DocumentReference{}, false
	}
	v, _ := encoding.Uint64(base.buf, it.offset)
	if v == 0 {
		return DocumentReference{}, false
	}
	ref := DocumentReference{DocumentOffset: int64(v), SlotOffset: it.offset, page: it.page}
	it.offset += slotSize
	return ref, true
}

// Document reads the referenced payload: the 4-byte length prefix followed
// by the remaining body bytes.
func (r DocumentReference) Document() ([]byte, error) {
	if r.page == nil {
		return nil, errors.InvalidDocumentReferencef("document reference is not bound to a page")
	}
	fm := r.page.slotBase().fm
	prefix, err := fm.ReadAt(r.DocumentOffset, docLengthPrefixSize)
	if err != nil {
		return nil, errors.InvalidDocumentf("document at offset %d is truncated", r.DocumentOffset).
			WithDetailf("%v", err)
	}
	length, _ := encoding.Uint32(prefix, 0)
	if length < docLengthPrefixSize {
		return nil, errors.InvalidDocumentf("document at offset %d declares impossible length %d", r.DocumentOffset, length)
	}
	doc, err := fm.ReadAt(r.DocumentOffset, int(length))
	if err != nil {
		return nil, errors.InvalidDocumentf("document at offset %d declares %d bytes past end of file", r.DocumentOffset, length).
			WithDetailf("%v", err)
	}
	return doc, nil
}

// Remove zeroes the slot and rewrites the page. The payload bytes remain
// in the file as dead space.
func (r DocumentReference) Remove() error {
	if err := r.checkSlot(); err != nil {
		return err
	}
	base := r.page.slotBase()
	if err := encoding.PutUint64(base.buf, r.SlotOffset, 0); err != nil {
		return errors.InvalidDocumentReferencef("slot offset %d overruns the page", r.SlotOffset)
	}
	return r.page.Flush()
}

// Update overwrites the document in place when the new payload fits in the
// old one's length; otherwise it appends the new payload at end-of-file
// and rewrites the slot to point at it.
func (r DocumentReference) Update(doc []byte) error {
	if err := r.checkSlot(); err != nil {
		return err
	}
	existing, err := r.Document()
	if err != nil {
		return errors.InvalidDocumentReferencef("slot at offset %d does not resolve to a document", r.SlotOffset).
			WithDetailf("%v", err)
	}
	base := r.page.slotBase()
	if len(existing) >= len(doc) {
		return base.fm.WriteAt(r.DocumentOffset, doc)
	}
	newOffset, err := base.fm.Append(doc)
	if err != nil {
		return err
	}
	if err := encoding.PutUint64(base.buf, r.SlotOffset, uint64(newOffset)); err != nil {
		return errors.InvalidDocumentReferencef("slot offset %d overruns the page", r.SlotOffset)
	}
	return r.page.Flush()
}

func (r DocumentReference) checkSlot() error {
	if r.page == nil {
		return errors.InvalidDocumentReferencef("document reference is not bound to a page")
	}
	if r.SlotOffset <= 0 || r.SlotOffset+slotSize > len(r.page.slotBase().buf) {
		return errors.InvalidDocumentReferencef("slot offset %d lies outside the page", r.SlotOffset)
	}
	return nil
}

// slotCount walks the slot array up to the first zero slot. Removed slots
// before the tail hide later entries; append positioning deliberately uses
// this live count to match the directory protocol.
func slotCount(p SlotPage) int {
	count := 0
	it := p.Documents()
	for {
		if _, ok := it.Next(); !ok {
			return count
		}
		count++
	}
}

func appendDocument(p SlotPage, doc []byte) error {
	// Appends always land in the tail page of the chain.
	if ref, ok := p.NextReference(); ok {
		next, err := ref.Resolve()
		if err != nil {
			return err
		}
		return next.(*CollectionBodyPage).AppendDocument(doc)
	}

	offset, err := p.slotBase().fm.Append(doc)
	if err != nil {
		return err
	}
	return placeSlot(p, offset)
}

// placeSlot records an already-written document offset in p, spilling into
// a new linked body page when the slot array is exhausted.
func placeSlot(p SlotPage, docOffset int64) error {
	base := p.slotBase()
	offset := p.FirstEntryOffset() + slotCount(p)*slotSize
	if offset+slotSize > len(base.buf) {
		spill := NewCollectionBodyPage(base.fm)
		if err := spill.allocate(); err != nil {
			return err
		}
		p.SetNextOffset(spill.FilePosition())
		if err := p.Flush(); err != nil {
			return err
		}
		return placeSlot(spill, docOffset)
	}
	if err := encoding.PutUint64(base.buf, offset, uint64(docOffset)); err != nil {
		return err
	}
	return p.Flush()
}
