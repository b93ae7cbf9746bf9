package engine

import (
	"github.com/dshills/FolioDB/internal/document"
	"github.com/dshills/FolioDB/internal/storage"
)

// Collection is a handle to one named document chain: the header page plus
// any linked body pages. Body pages are resolved on demand and never
// cached.
type Collection struct {
	db     *Database
	header *storage.CollectionHeaderPage
	name   string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// walkPages visits the header page and every linked body page in order.
func (c *Collection) walkPages(fn func(p storage.SlotPage) error) error {
	var p storage.SlotPage = c.header
	for {
		if err := fn(p); err != nil {
			return err
		}
		ref, ok := p.NextReference()
		if !ok {
			return nil
		}
		page, err := ref.Resolve()
		if err != nil {
			return err
		}
		p = page.(*storage.CollectionBodyPage)
	}
}

// Append serializes doc and appends it to the collection.
func (c *Collection) Append(doc *document.Document) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkOpen(); err != nil {
		return err
	}

	data, err := doc.Bytes()
	if err != nil {
		return err
	}
	if err := c.header.AppendDocument(data); err != nil {
		return err
	}
	if err := c.db.maybeSync(); err != nil {
		return err
	}
	c.db.logger.Debug("appended document", "collection", c.name, "bytes", len(data))
	return nil
}

// Count returns the number of live document slots across the chain.
func (c *Collection) Count() (int, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	err := c.walkPages(func(p storage.SlotPage) error {
		it := p.Documents()
		for {
			if _, ok := it.Next(); !ok {
				return nil
			}
			count++
		}
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Update rewrites every document matching the filter with the replacement
// and returns how many it touched. Documents that shrink or keep their
// size are rewritten in place; growing documents are appended at
// end-of-file and their slot repointed.
func (c *Collection) Update(filter, replacement *document.Document) (int, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkOpen(); err != nil {
		return 0, err
	}

	data, err := replacement.Bytes()
	if err != nil {
		return 0, err
	}

	count := 0
	err = c.walkPages(func(p storage.SlotPage) error {
		it := p.Documents()
		for {
			ref, ok := it.Next()
			if !ok {
				return nil
			}
			matched, err := c.matches(ref, filter)
			if err != nil {
				return err
			}
			if !matched {
				continue
			}
			if err := ref.Update(data); err != nil {
				return err
			}
			count++
		}
	})
	if err != nil {
		return count, err
	}
	if err := c.db.maybeSync(); err != nil {
		return count, err
	}
	c.db.logger.Debug("updated documents", "collection", c.name, "count", count)
	return count, nil
}

// Remove zeroes the slot of every document matching the filter and returns
// how many it removed. Payload bytes stay behind as dead space.
func (c *Collection) Remove(filter *document.Document) (int, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	err := c.walkPages(func(p storage.SlotPage) error {
		it := p.Documents()
		for {
			ref, ok := it.Next()
			if !ok {
				return nil
			}
			matched, err := c.matches(ref, filter)
			if err != nil {
				return err
			}
			if !matched {
				continue
			}
			if err := ref.Remove(); err != nil {
				return err
			}
			count++
		}
	})
	if err != nil {
		return count, err
	}
	if err := c.db.maybeSync(); err != nil {
		return count, err
	}
	c.db.logger.Debug("removed documents", "collection", c.name, "count", count)
	return count, nil
}

func (c *Collection) matches(ref storage.DocumentReference, filter *document.Document) (bool, error) {
	data, err := ref.Document()
	if err != nil {
		return false, err
	}
	doc, err := document.Decode(data)
	if err != nil {
		return false, err
	}
	return doc.Matches(filter), nil
}

// Iterate returns a lazy, finite, non-restartable sequence over the
// collection's documents. Each call starts a fresh sequence. An error
// while resolving a document ends the sequence early; check Err after
// Next returns false.
func (c *Collection) Iterate() *Iterator {
	return &Iterator{
		page:  c.header,
		inner: c.header.Documents(),
	}
}

// Iterator walks a collection chain yielding decoded documents.
type Iterator struct {
	page  storage.SlotPage
	inner *storage.DocumentIterator
	err   error
	done  bool
}

// Next returns the next document, or false when the sequence is exhausted
// or an error stopped it.
func (it *Iterator) Next() (*document.Document, bool) {
	for {
		if it.done {
			return nil, false
		}
		ref, ok := it.inner.Next()
		if !ok {
			nextRef, ok := it.page.NextReference()
			if !ok {
				it.done = true
				return nil, false
			}
			page, err := nextRef.Resolve()
			if err != nil {
				it.err = err
				it.done = true
				return nil, false
			}
			body := page.(*storage.CollectionBodyPage)
			it.page = body
			it.inner = body.Documents()
			continue
		}

		data, err := ref.Document()
		if err != nil {
			it.err = err
			it.done = true
			return nil, false
		}
		doc, err := document.Decode(data)
		if err != nil {
			it.err = err
			it.done = true
			return nil, false
		}
		return doc, true
	}
}

// Err reports the error that ended the sequence early, if any.
func (it *Iterator) Err() error {
	return it.err
}
