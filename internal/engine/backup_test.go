package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/FolioDB/internal/errors"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.db")

	db, err := Open(srcPath)
	require.NoError(t, err)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, col.Append(newDoc().SetBool("awesome", true).SetInt64("seq", int64(i))))
	}

	var backup bytes.Buffer
	require.NoError(t, db.Backup(&backup))
	assert.NotZero(t, backup.Len())
	require.NoError(t, db.Close())

	// Restore into a fresh file and compare the raw bytes.
	dstPath := filepath.Join(dir, "restored.db")
	require.NoError(t, Restore(dstPath, &backup))

	src, err := os.ReadFile(srcPath)
	require.NoError(t, err)
	dst, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(src, dst), "restored file differs from the original")

	// The restored database is fully usable.
	restored, err := Open(dstPath)
	require.NoError(t, err)
	defer restored.Close()
	col, err = restored.Collection("kaas")
	require.NoError(t, err)
	n, err := col.Count()
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestRestoreRejectsExistingTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exists.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	err := Restore(path, bytes.NewReader(nil))
	assert.True(t, errors.IsError(err, errors.NotAccessible), "got %v", err)
}

func TestRestoreRejectsGarbageStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.db")

	err := Restore(path, bytes.NewReader([]byte("this is not an lz4 stream")))
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed restore must not leave a partial file")
}

func TestBackupOnClosedDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var buf bytes.Buffer
	err = db.Backup(&buf)
	assert.True(t, errors.IsError(err, errors.DatabaseClosed), "got %v", err)
}
