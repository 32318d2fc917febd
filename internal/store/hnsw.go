package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWStore provides semantic search over pre-normalized embeddings using the
// pure Go coder/hnsw graph. Cosine similarity on normalized vectors equals
// inner product, so vectors are normalized once on insert and queries once
// per search.
//
// The chunk list rides alongside the graph: key i maps to chunks[i]. The
// whole store is replaced on rebuild, so lazy-deletion bookkeeping from
// incremental designs is unnecessary.
type HNSWStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	dims   int
	chunks []*Chunk
	closed bool
}

// hnswSidecar is the gob-encoded metadata persisted next to the graph.
type hnswSidecar struct {
	Dims   int
	Chunks []*Chunk
}

// NewHNSWStore creates an empty vector store with a fixed dimension.
// The dimension is cross-checked against every build and query.
func NewHNSWStore(dims int) (*HNSWStore, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dims)
	}
	return &HNSWStore{
		graph: newGraph(),
		dims:  dims,
	}, nil
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 64
	g.Ml = 0.25
	return g
}

// Dimensions returns the fixed vector dimension.
func (s *HNSWStore) Dimensions() int {
	return s.dims
}

// Build replaces the store contents with the given vectors and chunks.
// A width mismatch on any vector is fatal so a mis-sized index is never
// written to disk.
func (s *HNSWStore) Build(ctx context.Context, vectors [][]float32, chunks []*Chunk) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("vectors and chunks length mismatch: %d vs %d", len(vectors), len(chunks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, v := range vectors {
		if len(v) != s.dims {
			return ErrDimensionMismatch{Expected: s.dims, Got: len(v)}
		}
	}

	// Build into a fresh graph; the swap below is the only exclusive step.
	graph := newGraph()
	for i, v := range vectors {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		vec := make([]float32, len(v))
		copy(vec, v)
		normalizeVectorInPlace(vec)
		graph.Add(hnsw.MakeNode(uint64(i), vec))
	}

	s.graph = graph
	s.chunks = chunks
	return nil
}

// Add appends vectors with their chunks.
func (s *HNSWStore) Add(ctx context.Context, vectors [][]float32, chunks []*Chunk) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("vectors and chunks length mismatch: %d vs %d", len(vectors), len(chunks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for i, v := range vectors {
		if len(v) != s.dims {
			return ErrDimensionMismatch{Expected: s.dims, Got: len(v)}
		}
		vec := make([]float32, len(v))
		copy(vec, v)
		normalizeVectorInPlace(vec)
		s.graph.Add(hnsw.MakeNode(uint64(len(s.chunks)), vec))
		s.chunks = append(s.chunks, chunks[i])
	}
	return nil
}

// Search finds the k nearest chunks to the query vector.
func (s *HNSWStore) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if len(query) != s.dims {
		return nil, ErrDimensionMismatch{Expected: s.dims, Got: len(query)}
	}
	if k <= 0 || s.graph.Len() == 0 {
		return []*VectorResult{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	nodes := s.graph.Search(normalized, k)

	results := make([]*VectorResult, 0, len(nodes))
	for _, node := range nodes {
		if node.Key >= uint64(len(s.chunks)) {
			continue
		}
		distance := s.graph.Distance(normalized, node.Value)
		results = append(results, &VectorResult{
			Chunk: s.chunks[node.Key],
			Score: distanceToScore(distance),
		})
	}
	return results, nil
}

// Count returns the number of stored vectors.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Save persists the graph and the chunk sidecar atomically
// (temp file + rename for both).
func (s *HNSWStore) Save(indexPath, chunksPath string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if err := writeAtomic(indexPath, func(f *os.File) error {
		w := bufio.NewWriter(f)
		if err := s.graph.Export(w); err != nil {
			return err
		}
		return w.Flush()
	}); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	if err := writeAtomic(chunksPath, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(hnswSidecar{Dims: s.dims, Chunks: s.chunks})
	}); err != nil {
		return fmt.Errorf("write chunk sidecar: %w", err)
	}
	return nil
}

// Load reads a previously saved store. The persisted dimension must match the
// configured one.
func (s *HNSWStore) Load(indexPath, chunksPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	cf, err := os.Open(chunksPath)
	if err != nil {
		return fmt.Errorf("open chunk sidecar: %w", err)
	}
	defer cf.Close()

	var sidecar hnswSidecar
	if err := gob.NewDecoder(cf).Decode(&sidecar); err != nil {
		return fmt.Errorf("decode chunk sidecar: %w", err)
	}
	if sidecar.Dims != s.dims {
		return ErrDimensionMismatch{Expected: s.dims, Got: sidecar.Dims}
	}

	gf, err := os.Open(indexPath)
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer gf.Close()

	graph := newGraph()
	if err := graph.Import(bufio.NewReader(gf)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	s.graph = graph
	s.chunks = sidecar.Chunks
	return nil
}

// Close releases the store. Idempotent.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.chunks = nil
	return nil
}

// writeAtomic writes via a temp file then renames over the target.
func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// normalizeVectorInPlace scales v to unit length. Zero vectors are left as-is.
func normalizeVectorInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// distanceToScore converts cosine distance (0..2) into similarity clamped to
// [0,1].
func distanceToScore(distance float32) float64 {
	score := 1.0 - float64(distance)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
