// Package foliodb is an embedded, single-file document store. All durable
// state lives in one file as a chain of fixed-size pages: a master
// directory of collections, and per-collection chains of document slots
// pointing at length-prefixed payloads appended to the file tail.
//
//	db, err := foliodb.Open("/tmp/db1")
//	if err != nil { ... }
//	defer db.Close()
//
//	col, err := db.MakeCollection("kaas")
//	if err != nil { ... }
//	err = col.Append(foliodb.NewDocument().SetBool("awesome", true))
//
// The store assumes a single writer; a lock file enforces this across
// processes unless disabled in the configuration.
package foliodb

import (
	"io"

	"github.com/dshills/FolioDB/internal/config"
	"github.com/dshills/FolioDB/internal/document"
	"github.com/dshills/FolioDB/internal/engine"
)

// Re-exported core types. The internal packages carry the implementation;
// this package is the embeddable surface.
type (
	Database   = engine.Database
	Collection = engine.Collection
	Iterator   = engine.Iterator
	Stats      = engine.Stats
	Document   = document.Document
	Value      = document.Value
	Config     = config.Config
)

// Open opens or creates the database at path with default configuration.
func Open(path string) (*Database, error) {
	return engine.Open(path)
}

// OpenWithConfig opens or creates the database at path.
func OpenWithConfig(path string, cfg Config) (*Database, error) {
	return engine.OpenWithConfig(path, cfg)
}

// Restore decompresses a backup stream produced by Database.Backup into a
// fresh database file at path.
func Restore(path string, r io.Reader) error {
	return engine.Restore(path, r)
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return document.New()
}

// DecodeDocument parses and validates an encoded document.
func DecodeDocument(buf []byte) (*Document, error) {
	return document.Decode(buf)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a JSON configuration file with environment overrides.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// ConfigFromEnv returns the default configuration with environment
// overrides applied.
func ConfigFromEnv() (Config, error) {
	return config.FromEnv()
}
