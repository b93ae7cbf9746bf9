package storage

import (
	"io"
	"os"
	"sync"

	"github.com/dshills/FolioDB/internal/errors"
)

// FileManager handles disk I/O for pages and document payloads. It wraps a
// single OS file handle and offers exact-length reads, in-place writes, and
// end-of-file appends. A short read is always an error: the caller asked
// for bytes the format says must exist.
type FileManager struct {
	file *os.File
	path string
	mu   sync.RWMutex
}

// OpenFile opens or creates the database file at path.
func OpenFile(path string) (*FileManager, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.NotAccessibleError(path, err)
	}
	return &FileManager{file: file, path: path}, nil
}

// Path returns the path the file was opened with.
func (fm *FileManager) Path() string {
	return fm.path
}

// ReadAt reads exactly length bytes at offset.
func (fm *FileManager) ReadAt(offset int64, length int) ([]byte, error) {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	buf := make([]byte, length)
	n, err := fm.file.ReadAt(buf, offset)
	if err == io.EOF || err == io.ErrUnexpectedEOF || (err == nil && n != length) {
		return nil, errors.InvalidFileStructuref("short read at offset %d: wanted %d bytes, got %d", offset, length, n)
	}
	if err != nil {
		return nil, errors.NotAccessibleError(fm.path, err)
	}
	return buf, nil
}

// WriteAt writes data in place at offset.
func (fm *FileManager) WriteAt(offset int64, data []byte) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if _, err := fm.file.WriteAt(data, offset); err != nil {
		return errors.NotAccessibleError(fm.path, err)
	}
	return nil
}

// Append writes data at end-of-file and returns the offset it landed at.
func (fm *FileManager) Append(data []byte) (int64, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	offset, err := fm.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.NotAccessibleError(fm.path, err)
	}
	if _, err := fm.file.Write(data); err != nil {
		return 0, errors.NotAccessibleError(fm.path, err)
	}
	return offset, nil
}

// Size returns the current file length.
func (fm *FileManager) Size() (int64, error) {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	info, err := fm.file.Stat()
	if err != nil {
		return 0, errors.NotAccessibleError(fm.path, err)
	}
	return info.Size(), nil
}

// Sync flushes file contents to stable storage.
func (fm *FileManager) Sync() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if err := fm.file.Sync(); err != nil {
		return errors.NotAccessibleError(fm.path, err)
	}
	return nil
}

// Close closes the underlying file.
func (fm *FileManager) Close() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if err := fm.file.Close(); err != nil {
		return errors.NotAccessibleError(fm.path, err)
	}
	return nil
}
