package storage

import (
	"github.com/dshills/FolioDB/internal/encoding"
	"github.com/dshills/FolioDB/internal/errors"
)

// masterEntrySize is the size of one directory entry: size byte, type
// byte, and the 8-byte file offset of a collection header page.
const masterEntrySize = 10

// MasterPage is a directory of collection-header page references. Master
// pages form a linked chain; a Small page holds 99 entries.
type MasterPage struct {
	pageHeader
}

// NewMasterPage creates an empty, unallocated master page.
func NewMasterPage(fm *FileManager) *MasterPage {
	return &MasterPage{pageHeader: newPageHeader(fm, PageSizeSmall, PageTypeMaster)}
}

// Allocate appends the page at end-of-file if it has no position yet.
func (m *MasterPage) Allocate() error {
	return m.allocate()
}

// Validate checks the page's structural invariants.
func (m *MasterPage) Validate() error {
	return m.validate(PageTypeMaster)
}

// NextReference returns a reference to the next master page in the chain.
func (m *MasterPage) NextReference() (PageReference, bool) {
	return m.nextReference(PageTypeMaster)
}

// entryCount walks the directory up to the first zero offset. Entries are
// never removed once set, so this is the number of live entries.
func (m *MasterPage) entryCount() int {
	count := 0
	it := m.Entries()
	for {
		if _, ok := it.Next(); !ok {
			return count
		}
		count++
	}
}

// Entries returns an iterator over the directory. Enumeration stops at the
// first entry whose file offset is zero; recreate the iterator to restart.
func (m *MasterPage) Entries() *MasterIterator {
	return &MasterIterator{page: m, offset: PageHeaderSize}
}

// MasterIterator lazily yields the directory entries of one master page.
type MasterIterator struct {
	page   *MasterPage
	offset int
}

// Next returns the next directory entry, or false when the iterator hits
// the first unused slot or the end of the page.
func (it *MasterIterator) Next() (PageReference, bool) {
	if it.offset+masterEntrySize > len(it.page.buf) {
		return PageReference{}, false
	}
	size := PageSize(it.page.buf[it.offset])
	typ := PageType(it.page.buf[it.offset+1])
	pos, _ := encoding.Uint64(it.page.buf, it.offset+2)
	if pos == 0 {
		return PageReference{}, false
	}
	it.offset += masterEntrySize
	return PageReference{Size: size, Type: typ, Offset: int64(pos), fm: it.page.fm}, true
}

// Append registers a collection header page in the directory, allocating
// the header at end-of-file if needed. When this page's directory is full
// the request spills into a freshly linked master page. Only header pages
// may be registered.
func (m *MasterPage) Append(page Page) error {
	header, ok := page.(*CollectionHeaderPage)
	if !ok || page.Type() != PageTypeCollectionHeader {
		return errors.InvalidPagef("master directory accepts %s pages only, got %s", PageTypeCollectionHeader, page.Type())
	}

	// Appends always target the tail of the master chain.
	if ref, ok := m.NextReference(); ok {
		next, err := ref.Resolve()
		if err != nil {
			return err
		}
		return next.(*MasterPage).Append(page)
	}

	if err := header.allocate(); err != nil {
		return err
	}

	offset := PageHeaderSize + m.entryCount()*masterEntrySize
	if offset+masterEntrySize > len(m.buf) {
		spill := NewMasterPage(m.fm)
		if err := spill.Allocate(); err != nil {
			return err
		}
		m.SetNextOffset(spill.FilePosition())
		if err := m.Flush(); err != nil {
			return err
		}
		return spill.Append(page)
	}

	m.buf[offset] = byte(page.Size())
	m.buf[offset+1] = byte(page.Type())
	if err := encoding.PutUint64(m.buf, offset+2, uint64(page.FilePosition())); err != nil {
		return err
	}
	return m.Flush()
}
