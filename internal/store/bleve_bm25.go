package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// BleveBM25Index implements BM25Index on a Bleve full-text index.
// Alternate backend to SQLiteBM25Index, selected via search.bm25_backend.
type BleveBM25Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ BM25Index = (*BleveBM25Index)(nil)

// NewBleveBM25Index opens (or creates) a Bleve index at path.
// An empty path creates an in-memory index for testing.
func NewBleveBM25Index(path string) (*BleveBM25Index, error) {
	indexMapping, err := createCorpusMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create directory for %s: %w", path, mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}

	return &BleveBM25Index{index: idx, path: path}, nil
}

// createCorpusMapping uses the stock English analyzer: lowercase, English
// stopwords, stemming.
func createCorpusMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName
	return indexMapping, nil
}

type bleveDoc struct {
	Content string `json:"content"`
}

// Rebuild replaces the whole corpus. Document ids are decimal chunk positions.
func (b *BleveBM25Index) Rebuild(ctx context.Context, chunks []*Chunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	// Drop every existing document first; Bleve has no truncate.
	all := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequest(all)
	req.Size = 100000
	req.Fields = []string{}
	existing, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("enumerate existing documents: %w", err)
	}

	batch := b.index.NewBatch()
	for _, hit := range existing.Hits {
		batch.Delete(hit.ID)
	}
	for i, chunk := range chunks {
		if err := batch.Index(strconv.Itoa(i), bleveDoc{Content: chunk.Text}); err != nil {
			return fmt.Errorf("index chunk %d: %w", i, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

// Search returns up to limit results scored by Bleve's BM25 similarity.
func (b *BleveBM25Index) Search(ctx context.Context, queryStr string, limit int) ([]*BM25Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if limit <= 0 || strings.TrimSpace(queryStr) == "" {
		return []*BM25Result{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]*BM25Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		results = append(results, &BM25Result{ID: id, Score: hit.Score})
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (b *BleveBM25Index) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	n, err := b.index.DocCount()
	return int(n), err
}

// Close closes the index. Idempotent.
func (b *BleveBM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
