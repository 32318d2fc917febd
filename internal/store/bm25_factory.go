package store

import (
	"fmt"
)

// BM25 backend identifiers.
const (
	BM25BackendSQLite = "sqlite"
	BM25BackendBleve  = "bleve"
)

// NewBM25Index creates a BM25 index for the given backend.
// SQLite FTS5 is the default; Bleve is the alternate full-text engine.
// The caller derives path from the project partition (corpus_<project>).
func NewBM25Index(backend, path string) (BM25Index, error) {
	switch backend {
	case "", BM25BackendSQLite:
		return NewSQLiteBM25Index(path)
	case BM25BackendBleve:
		return NewBleveBM25Index(blevePath(path))
	default:
		return nil, fmt.Errorf("unknown BM25 backend %q (expected %q or %q)",
			backend, BM25BackendSQLite, BM25BackendBleve)
	}
}

// blevePath maps the sqlite-style file path to a bleve directory path so the
// two backends never collide on disk.
func blevePath(path string) string {
	if path == "" {
		return ""
	}
	return path + ".bleve"
}
