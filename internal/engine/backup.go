package engine

import (
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/dshills/FolioDB/internal/errors"
)

// backupChunkSize is how much of the file a backup reads per step.
const backupChunkSize = 64 * 1024

// Backup streams an LZ4-compressed snapshot of the database file to w.
// Under the single-writer model no mutation can interleave, so the
// snapshot is consistent.
func (db *Database) Backup(w io.Writer) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}

	size, err := db.fm.Size()
	if err != nil {
		return err
	}

	zw := lz4.NewWriter(w)
	for offset := int64(0); offset < size; {
		chunk := int64(backupChunkSize)
		if size-offset < chunk {
			chunk = size - offset
		}
		buf, err := db.fm.ReadAt(offset, int(chunk))
		if err != nil {
			_ = zw.Close()
			return err
		}
		if _, err := zw.Write(buf); err != nil {
			_ = zw.Close()
			return errors.Newf(errors.NotAccessible, "cannot write backup stream: %v", err)
		}
		offset += chunk
	}
	if err := zw.Close(); err != nil {
		return errors.Newf(errors.NotAccessible, "cannot finish backup stream: %v", err)
	}
	db.logger.Info("backup written", "bytes", size)
	return nil
}

// Restore decompresses a backup stream into a fresh database file at path
// and validates its version prefix and first master page. The target file
// must not exist.
func Restore(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NotAccessibleError(path, err)
	}

	zr := lz4.NewReader(r)
	_, cpErr := io.Copy(f, zr)
	closeErr := f.Close()
	if cpErr != nil {
		_ = os.Remove(path)
		return errors.InvalidFileStructuref("cannot decompress backup stream into %q", path).
			WithDetailf("%v", cpErr)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return errors.NotAccessibleError(path, closeErr)
	}

	db, err := Open(path)
	if err != nil {
		return err
	}
	return db.Close()
}
