// Package search implements the retrieval pipeline: hybrid BM25+vector
// fusion, LLM re-ranking, iterative query expansion, and multi-aspect
// evidence accumulation.
package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/embed"
	"github.com/zoonderkins/augment-lite/internal/errors"
	"github.com/zoonderkins/augment-lite/internal/index"
	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// candidateMultiplier is how many times k candidates each source contributes
// before fusion and re-ranking.
const candidateMultiplier = 3

// Engine runs hybrid retrieval over a project's stores.
type Engine struct {
	cfg      *config.Config
	stores   *index.Stores
	embedder embed.Embedder
	llm      llm.Client
}

// NewEngine creates a search engine. embedder may be nil (BM25-only) and llm
// may be nil (no re-ranking or expansion).
func NewEngine(cfg *config.Config, stores *index.Stores, embedder embed.Embedder, client llm.Client) *Engine {
	return &Engine{
		cfg:      cfg,
		stores:   stores,
		embedder: embedder,
		llm:      client,
	}
}

// Options tune a single hybrid search.
type Options struct {
	K            int
	BM25Weight   float64
	VectorWeight float64
}

func (e *Engine) defaults(opts Options) Options {
	if opts.K < 0 {
		opts.K = 0
	}
	if opts.BM25Weight == 0 && opts.VectorWeight == 0 {
		opts.BM25Weight = e.cfg.Search.BM25Weight
		opts.VectorWeight = e.cfg.Search.VectorWeight
	}
	return opts
}

// HybridSearch fuses BM25 and vector results with weighting, per-source max
// normalization, and same-file deduplication. Deterministic for identical
// indices and query; no LLM calls.
func (e *Engine) HybridSearch(ctx context.Context, projectName, query string, opts Options) ([]*store.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.CodeInvalidInput, "query must not be empty")
	}
	opts = e.defaults(opts)
	if opts.K == 0 {
		return []*store.Hit{}, nil
	}

	bm25Hits, vecHits, err := e.parallelSearch(ctx, projectName, query, opts.K*candidateMultiplier)
	if err != nil {
		return nil, err
	}

	// Without vector results the BM25 ranking stands on its own.
	if len(vecHits) == 0 {
		if len(bm25Hits) > opts.K {
			bm25Hits = bm25Hits[:opts.K]
		}
		return bm25Hits, nil
	}

	normalizeScores(bm25Hits)
	normalizeScores(vecHits)

	type fused struct {
		hit       *store.Hit
		bm25Score float64
		vecScore  float64
	}
	combined := make(map[string]*fused, len(bm25Hits)+len(vecHits))
	order := make([]string, 0, len(bm25Hits)+len(vecHits))

	for _, h := range bm25Hits {
		combined[h.Source] = &fused{hit: h, bm25Score: h.Score * opts.BM25Weight}
		order = append(order, h.Source)
	}
	for _, h := range vecHits {
		if f, ok := combined[h.Source]; ok {
			f.vecScore = h.Score * opts.VectorWeight
			continue
		}
		combined[h.Source] = &fused{hit: h, vecScore: h.Score * opts.VectorWeight}
		order = append(order, h.Source)
	}

	results := make([]*store.Hit, 0, len(combined))
	for _, source := range order {
		f := combined[source]
		results = append(results, &store.Hit{
			Text:   f.hit.Text,
			Source: source,
			Score:  f.bm25Score + f.vecScore,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	results = dedupeByFile(results, e.cfg.Search.PerFileLimit)
	if len(results) > opts.K {
		results = results[:opts.K]
	}
	return results, nil
}

// parallelSearch runs BM25 and vector retrieval concurrently. Vector failures
// degrade to BM25-only; a BM25 failure with working vector results does the
// reverse.
func (e *Engine) parallelSearch(ctx context.Context, projectName, query string, limit int) (bm25Hits, vecHits []*store.Hit, err error) {
	g, gctx := errgroup.WithContext(ctx)

	var bm25Err, vecErr error

	g.Go(func() error {
		bm25Hits, bm25Err = e.bm25Search(gctx, projectName, query, limit)
		return nil
	})
	g.Go(func() error {
		vecHits, vecErr = e.vectorSearch(gctx, projectName, query, limit)
		return nil
	})
	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}

	if bm25Err != nil && vecErr != nil {
		return nil, nil, fmt.Errorf("both retrieval sources failed: %w", bm25Err)
	}
	if bm25Err != nil {
		slog.Warn("bm25_search_failed", slog.String("error", bm25Err.Error()))
	}
	if vecErr != nil {
		slog.Warn("vector_search_failed", slog.String("error", vecErr.Error()))
	}
	return bm25Hits, vecHits, nil
}

// bm25Search maps BM25 row ids back to chunks.
func (e *Engine) bm25Search(ctx context.Context, projectName, query string, limit int) ([]*store.Hit, error) {
	bm25, err := e.stores.BM25(projectName)
	if err != nil {
		return nil, err
	}
	results, err := bm25.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	chunks, err := e.stores.Chunks(projectName)
	if err != nil {
		return nil, err
	}

	hits := make([]*store.Hit, 0, len(results))
	for _, r := range results {
		if r.ID < 0 || r.ID >= len(chunks) {
			continue
		}
		c := chunks[r.ID]
		hits = append(hits, &store.Hit{Text: c.Text, Source: c.Source, Score: r.Score})
	}
	return hits, nil
}

// vectorSearch embeds the query and searches the project's vector store.
// Missing vector index or missing embedder yields no hits, not an error;
// dimension mismatches at runtime degrade the same way with a warning.
func (e *Engine) vectorSearch(ctx context.Context, projectName, query string, limit int) ([]*store.Hit, error) {
	if e.embedder == nil {
		return nil, nil
	}
	vs, err := e.stores.Vector(projectName)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		return nil, nil
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := vs.Search(ctx, vec, limit)
	if err != nil {
		var dim store.ErrDimensionMismatch
		if stderrors.As(err, &dim) {
			slog.Warn("vector_dimension_mismatch_bm25_only", slog.String("error", dim.Error()))
			return nil, nil
		}
		return nil, err
	}

	hits := make([]*store.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, &store.Hit{Text: r.Chunk.Text, Source: r.Chunk.Source, Score: r.Score})
	}
	return hits, nil
}

// normalizeScores divides by the source's max score, guarding max=0.
func normalizeScores(hits []*store.Hit) {
	maxScore := 0.0
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	if maxScore == 0 {
		return
	}
	for _, h := range hits {
		h.Score /= maxScore
	}
}

// dedupeByFile keeps at most limit chunks per file key, preserving score
// order.
func dedupeByFile(hits []*store.Hit, limit int) []*store.Hit {
	if limit <= 0 {
		limit = 2
	}
	counts := make(map[string]int, len(hits))
	out := make([]*store.Hit, 0, len(hits))
	for _, h := range hits {
		key := store.FileKey(h.Source)
		counts[key]++
		if counts[key] <= limit {
			out = append(out, h)
		}
	}
	return out
}
