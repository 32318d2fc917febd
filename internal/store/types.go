// Package store provides the persistence layer for indexed data: the chunk
// list (JSONL), BM25 full-text indices (SQLite FTS5 or Bleve), the HNSW
// vector store, and the per-project index state.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ChunkingMethod identifies how a chunk was produced.
type ChunkingMethod string

const (
	// ChunkingLines is line-window chunking used for code files.
	ChunkingLines ChunkingMethod = "lines"
	// ChunkingTokens is token-window chunking used for documentation.
	ChunkingTokens ChunkingMethod = "tokens"
)

// Chunk is the unit of retrieval: a contiguous slice of one file.
// Chunks are immutable; a file change deletes all chunks with that source
// prefix and inserts new ones.
type Chunk struct {
	// Text is the chunk content (UTF-8).
	Text string `json:"text"`

	// Source is the stable identifier: "<relpath>:<line>" for code or
	// "<relpath>:chunk<N>" for prose.
	Source string `json:"source"`

	// Method records the chunking policy that produced this chunk.
	Method ChunkingMethod `json:"chunking_method,omitempty"`

	// Filetype is the file extension without the leading dot.
	Filetype string `json:"filetype,omitempty"`
}

// sourceSuffix strips a trailing ":<digits>" or ":chunk<digits>".
var sourceSuffix = regexp.MustCompile(`:(?:chunk)?\d+$`)

// FileKey returns the file part of a chunk source. Sources without a position
// suffix are returned unchanged, which keeps Windows drive letters and
// repo:branch identifiers intact.
func FileKey(source string) string {
	if sourceSuffix.MatchString(source) {
		idx := strings.LastIndex(source, ":")
		return source[:idx]
	}
	return source
}

// Hit is a single retrieval result. Score semantics depend on origin: raw
// BM25, cosine similarity, or fused 0..1.
type Hit struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`

	// SubQuery and Round tag accumulated-search provenance.
	SubQuery string `json:"sub_query,omitempty"`
	Round    int    `json:"search_round,omitempty"`
}

// BM25Result is a single BM25 search result referencing a chunk by row id.
type BM25Result struct {
	ID    int
	Score float64
}

// BM25Index provides lexical scoring over the chunk corpus.
// The corpus is rebuilt wholesale on every incremental update.
type BM25Index interface {
	// Rebuild replaces the whole corpus. Row ids are chunk list positions.
	Rebuild(ctx context.Context, chunks []*Chunk) error

	// Search returns up to limit results scored by BM25, best first.
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)

	// Count returns the number of indexed chunks.
	Count() (int, error)

	// Close releases the index.
	Close() error
}

// VectorResult is a single vector search result.
type VectorResult struct {
	Chunk *Chunk
	Score float64 // cosine similarity in [0,1] for normalized vectors
}

// ErrDimensionMismatch indicates embedding width does not match the index.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf(
		"embedding dimension mismatch: index expects %d, provider returned %d "+
			"(update embeddings.dimensions or rebuild with 'augment-lite index --force')",
		e.Expected, e.Got)
}

// queryToken matches the shared query/document tokenization for the degraded
// BM25 path: word characters plus #, @, /, ., -.
var queryToken = regexp.MustCompile(`[\w#@/\.\-]+`)

// Tokenize lowercases and splits text for lexical matching.
func Tokenize(s string) []string {
	return queryToken.FindAllString(strings.ToLower(s), -1)
}
