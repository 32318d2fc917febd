// Package index maintains per-project indices: change detection, chunk-list
// rewrites, and BM25/vector rebuilds.
package index

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/project"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// Stores hands out per-project store handles, opened on first use and cached.
// A cold BM25-only search never pays vector or embedding startup.
type Stores struct {
	cfg   *config.Config
	paths *project.Paths

	mu     sync.Mutex
	bm25   map[string]store.BM25Index
	vector map[string]*store.HNSWStore
	chunks map[string]*chunkCache
}

// chunkCache holds a loaded chunk list keyed by the file's mtime so searches
// after an index rewrite observe the new corpus.
type chunkCache struct {
	mtime  time.Time
	chunks []*store.Chunk
}

// NewStores creates the store cache.
func NewStores(cfg *config.Config, paths *project.Paths) *Stores {
	return &Stores{
		cfg:    cfg,
		paths:  paths,
		bm25:   make(map[string]store.BM25Index),
		vector: make(map[string]*store.HNSWStore),
		chunks: make(map[string]*chunkCache),
	}
}

// Chunks returns the project's chunk list, reloading when the backing file
// changed.
func (s *Stores) Chunks(name string) ([]*store.Chunk, error) {
	path := s.paths.Chunks(name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.chunks[name]; ok && cached.mtime.Equal(info.ModTime()) {
		return cached.chunks, nil
	}

	chunks, err := store.NewChunkList(path).Load()
	if err != nil {
		return nil, err
	}
	s.chunks[name] = &chunkCache{mtime: info.ModTime(), chunks: chunks}
	return chunks, nil
}

// BM25 returns the BM25 index for a project, opening it if needed.
func (s *Stores) BM25(name string) (store.BM25Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.bm25[name]; ok {
		return idx, nil
	}
	idx, err := store.NewBM25Index(s.cfg.Search.BM25Backend, s.paths.Corpus(name))
	if err != nil {
		return nil, fmt.Errorf("open BM25 index for %s: %w", name, err)
	}
	s.bm25[name] = idx
	return idx, nil
}

// Vector returns the vector store for a project, loading the persisted index
// on first use. Returns (nil, nil) when no vector index exists on disk.
func (s *Stores) Vector(name string) (*store.HNSWStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vs, ok := s.vector[name]; ok {
		return vs, nil
	}

	indexPath := s.paths.VectorIndex(name)
	chunksPath := s.paths.VectorChunks(name)
	if _, err := os.Stat(indexPath); err != nil {
		return nil, nil
	}

	vs, err := store.NewHNSWStore(s.cfg.Embeddings.Dimensions)
	if err != nil {
		return nil, err
	}
	if err := vs.Load(indexPath, chunksPath); err != nil {
		// A mis-sized or corrupt vector index degrades search to BM25-only
		// rather than failing the query.
		slog.Warn("vector_index_load_failed",
			slog.String("project", name),
			slog.String("error", err.Error()))
		return nil, nil
	}
	s.vector[name] = vs
	return vs, nil
}

// ReplaceVector installs a freshly built vector store for a project.
func (s *Stores) ReplaceVector(name string, vs *store.HNSWStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.vector[name]; ok && old != vs {
		_ = old.Close()
	}
	if vs == nil {
		delete(s.vector, name)
		return
	}
	s.vector[name] = vs
}

// DropVector closes and forgets a project's in-memory vector store.
func (s *Stores) DropVector(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.vector[name]; ok {
		_ = old.Close()
		delete(s.vector, name)
	}
}

// Close releases every open store.
func (s *Stores) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, idx := range s.bm25 {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.bm25, name)
	}
	for name, vs := range s.vector {
		if err := vs.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.vector, name)
	}
	return firstErr
}
