// Package engine implements the database and collection facades on top of
// the page store: file open/create with version handshake, master page
// bootstrap, collection creation and lookup, and the document-level
// operations layered over collection chains.
package engine

import (
	"sync"

	"github.com/dshills/FolioDB/internal/config"
	"github.com/dshills/FolioDB/internal/encoding"
	"github.com/dshills/FolioDB/internal/errors"
	"github.com/dshills/FolioDB/internal/log"
	"github.com/dshills/FolioDB/internal/storage"
)

const (
	// FormatVersion is the only file format version written or accepted.
	FormatVersion = 1

	// versionPrefixSize is the 32-bit version prefix at offset zero.
	versionPrefixSize = 4

	// masterPageOffset is where the first master page lives, right after
	// the version prefix.
	masterPageOffset = 4
)

// Database is a single-file document store. One writer and one reader
// identity on the same goroutine; multi-goroutine callers must serialize
// access externally.
type Database struct {
	fm     *storage.FileManager
	master *storage.MasterPage
	lock   *fileLock
	cfg    config.Config
	logger log.Logger
	mu     sync.Mutex
	closed bool
}

// Open opens or creates the database at path with the default
// configuration.
func Open(path string) (*Database, error) {
	return OpenWithConfig(path, config.Default())
}

// OpenWithConfig opens or creates the database at path. A missing file is
// created and bootstrapped with the version prefix and an empty master
// page; an existing file has its version verified and its first master
// page validated.
func OpenWithConfig(path string, cfg config.Config) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.NewTextLogger(level).With("db", path)

	var lock *fileLock
	if !cfg.NoLock {
		l, err := acquireLock(path)
		if err != nil {
			return nil, err
		}
		lock = l
	}

	fm, err := storage.OpenFile(path)
	if err != nil {
		lock.release()
		return nil, err
	}

	db := &Database{fm: fm, lock: lock, cfg: cfg, logger: logger}
	size, err := fm.Size()
	if err != nil {
		db.discard()
		return nil, err
	}
	if size == 0 {
		if err := db.bootstrap(); err != nil {
			db.discard()
			return nil, err
		}
		logger.Info("created database")
	} else {
		if err := db.load(); err != nil {
			db.discard()
			return nil, err
		}
		logger.Debug("opened database", "bytes", size)
	}
	return db, nil
}

// discard tears down a half-opened database without surfacing errors.
func (db *Database) discard() {
	_ = db.fm.Close()
	db.lock.release()
}

// bootstrap writes the version prefix and the initial empty master page
// into a fresh file.
func (db *Database) bootstrap() error {
	version := make([]byte, versionPrefixSize)
	if err := encoding.PutUint32(version, 0, FormatVersion); err != nil {
		return err
	}
	if _, err := db.fm.Append(version); err != nil {
		return err
	}
	master := storage.NewMasterPage(db.fm)
	if err := master.Allocate(); err != nil {
		return err
	}
	db.master = master
	return db.maybeSync()
}

// load verifies the version prefix and reads the first master page.
func (db *Database) load() error {
	buf, err := db.fm.ReadAt(0, versionPrefixSize)
	if err != nil {
		return err
	}
	version, err := encoding.Uint32(buf, 0)
	if err != nil {
		return err
	}
	if version != FormatVersion {
		return errors.InvalidFileStructuref("unknown format version %d, expected %d", version, FormatVersion)
	}
	ref := storage.NewPageReference(db.fm, storage.PageSizeSmall, storage.PageTypeMaster, masterPageOffset)
	page, err := ref.Resolve()
	if err != nil {
		return err
	}
	db.master = page.(*storage.MasterPage)
	return nil
}

// maybeSync flushes the file when the configuration asks for synchronous
// writes.
func (db *Database) maybeSync() error {
	if !db.cfg.SyncWrites {
		return nil
	}
	return db.fm.Sync()
}

func (db *Database) checkOpen() error {
	if db.closed {
		return errors.DatabaseClosedError()
	}
	return nil
}

// MakeCollection registers a new collection and returns a handle to it.
// If the name already exists the existing collection is returned.
func (db *Database) MakeCollection(name string) (*Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	col, err := db.lookup(name)
	if err == nil {
		return col, nil
	}
	if !errors.IsError(err, errors.CollectionNotFound) {
		return nil, err
	}

	header, err := storage.NewCollectionHeaderPage(db.fm, name)
	if err != nil {
		return nil, err
	}
	if err := db.master.Append(header); err != nil {
		return nil, err
	}
	if err := db.maybeSync(); err != nil {
		return nil, err
	}
	db.logger.Info("created collection", "name", name)
	return &Collection{db: db, header: header, name: name}, nil
}

// Collection returns a handle to an existing collection.
func (db *Database) Collection(name string) (*Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return db.lookup(name)
}

// Collections lists the names of all registered collections in
// registration order.
func (db *Database) Collections() ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	var names []string
	err := db.walkHeaders(func(header *storage.CollectionHeaderPage) (bool, error) {
		name, err := header.Name()
		if err != nil {
			return false, err
		}
		names = append(names, name)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// lookup walks the master chain for a header page with the given name.
func (db *Database) lookup(name string) (*Collection, error) {
	var found *Collection
	err := db.walkHeaders(func(header *storage.CollectionHeaderPage) (bool, error) {
		n, err := header.Name()
		if err != nil {
			return false, err
		}
		if n == name {
			found = &Collection{db: db, header: header, name: name}
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errors.CollectionNotFoundError(name)
	}
	return found, nil
}

// walkHeaders resolves every directory entry across the master chain. The
// callback returns true to stop early.
func (db *Database) walkHeaders(fn func(*storage.CollectionHeaderPage) (bool, error)) error {
	master := db.master
	for {
		it := master.Entries()
		for {
			ref, ok := it.Next()
			if !ok {
				break
			}
			page, err := ref.Resolve()
			if err != nil {
				return err
			}
			header, ok := page.(*storage.CollectionHeaderPage)
			if !ok {
				return errors.InvalidPagef("master directory entry at offset %d references a %s page", ref.Offset, page.Type())
			}
			stop, err := fn(header)
			if err != nil || stop {
				return err
			}
		}
		ref, ok := master.NextReference()
		if !ok {
			return nil
		}
		page, err := ref.Resolve()
		if err != nil {
			return err
		}
		master = page.(*storage.MasterPage)
	}
}

// ReadPage returns the master page for number zero. Other numbers return
// nothing; a page index is a future concern.
func (db *Database) ReadPage(number int) (storage.Page, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	if number == 0 {
		return db.master, nil
	}
	return nil, nil
}

// Stats describes a database file.
type Stats struct {
	Path        string
	FileSize    int64
	Collections int
}

// Stats returns current file and directory statistics.
func (db *Database) Stats() (Stats, error) {
	names, err := db.Collections()
	if err != nil {
		return Stats{}, err
	}
	size, err := db.fm.Size()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Path: db.fm.Path(), FileSize: size, Collections: len(names)}, nil
}

// Close flushes and closes the file and releases the lock. The handle is
// unusable afterwards.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true

	syncErr := db.fm.Sync()
	closeErr := db.fm.Close()
	db.lock.release()
	db.logger.Debug("closed database")
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
