package project

import (
	"fmt"
	"path/filepath"
)

// Paths centralizes per-project partition naming so file-name suffixes never
// leak into tool code.
type Paths struct {
	dataDir string
}

// NewPaths creates a Paths rooted at the data directory.
func NewPaths(dataDir string) *Paths {
	return &Paths{dataDir: dataDir}
}

// DataDir returns the data directory.
func (p *Paths) DataDir() string {
	return p.dataDir
}

// Corpus is the BM25 store for a project.
func (p *Paths) Corpus(name string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("corpus_%s.sqlite", name))
}

// Chunks is the JSONL chunk list for a project.
func (p *Paths) Chunks(name string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("chunks_%s.jsonl", name))
}

// IndexState is the change-detection state for a project.
func (p *Paths) IndexState(name string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("index_state_%s.json", name))
}

// VectorIndex is the serialized HNSW graph for a project.
func (p *Paths) VectorIndex(name string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("vector_index_%s.hnsw", name))
}

// VectorChunks is the chunk sidecar for the vector index.
func (p *Paths) VectorChunks(name string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("vector_chunks_%s.gob", name))
}

// SemanticCacheIndex is the query-embedding index of the semantic cache.
func (p *Paths) SemanticCacheIndex(name string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("semantic_cache_%s.hnsw", name))
}

// SemanticCacheEntries is the entry list of the semantic cache.
func (p *Paths) SemanticCacheEntries(name string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("semantic_cache_entries_%s.gob", name))
}

// ResponseCache is the shared exact-cache database (partitioned by column).
func (p *Paths) ResponseCache() string {
	return filepath.Join(p.dataDir, "response_cache.sqlite")
}

// Longterm is the shared memory database (partitioned by column).
func (p *Paths) Longterm() string {
	return filepath.Join(p.dataDir, "longterm.sqlite")
}

// Tasks is the shared task database (partitioned by column).
func (p *Paths) Tasks() string {
	return filepath.Join(p.dataDir, "memory.sqlite")
}

// IndexLock is the cross-process lock guarding index updates for a project.
func (p *Paths) IndexLock(name string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("index_%s.lock", name))
}

// Partitions lists every per-project file, used when deleting a project.
func (p *Paths) Partitions(name string) []string {
	return []string{
		p.Corpus(name),
		p.Corpus(name) + "-wal",
		p.Corpus(name) + "-shm",
		p.Chunks(name),
		p.IndexState(name),
		p.VectorIndex(name),
		p.VectorChunks(name),
		p.SemanticCacheIndex(name),
		p.SemanticCacheEntries(name),
		p.IndexLock(name),
	}
}
