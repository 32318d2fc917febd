package cache

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/zoonderkins/augment-lite/internal/embed"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// SemanticEntry is one cached (query, value) pair.
type SemanticEntry struct {
	Query    string
	Value    string // JSON-encoded payload
	ExpireAt int64
}

// SemanticCache caches values by query meaning: lookup embeds the query and
// returns the most similar prior entry above the similarity threshold.
// Entries live in a gob file with a parallel vector index over their query
// embeddings.
type SemanticCache struct {
	indexPath   string
	entriesPath string
	threshold   float64
	embedder    embed.Embedder

	mu      sync.Mutex
	loaded  bool
	entries []SemanticEntry
	vectors *store.HNSWStore
}

// NewSemanticCache creates a semantic cache for one project partition.
// Nothing is read from disk until first use.
func NewSemanticCache(indexPath, entriesPath string, threshold float64, embedder embed.Embedder) *SemanticCache {
	if threshold <= 0 {
		threshold = 0.95
	}
	return &SemanticCache{
		indexPath:   indexPath,
		entriesPath: entriesPath,
		threshold:   threshold,
		embedder:    embedder,
	}
}

// load reads both files, purging expired entries. Corrupt files reset the
// cache to empty. Caller holds c.mu.
func (c *SemanticCache) load() error {
	if c.loaded {
		return nil
	}
	c.loaded = true
	c.entries = nil
	c.vectors = nil

	f, err := os.Open(c.entriesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var entries []SemanticEntry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		slog.Warn("semantic_cache_corrupt_resetting", slog.String("error", err.Error()))
		return nil
	}

	vs, err := store.NewHNSWStore(c.embedder.Dimensions())
	if err != nil {
		return err
	}
	if err := vs.Load(c.indexPath, c.indexPath+".chunks"); err != nil {
		slog.Warn("semantic_cache_index_missing_resetting", slog.String("error", err.Error()))
		return nil
	}

	// Expired entries are purged on load. The vector index keys are entry
	// positions, so a purge re-embeds the kept queries and rebuilds both sides.
	now := time.Now().Unix()
	expired := false
	for _, e := range entries {
		if e.ExpireAt < now {
			expired = true
			break
		}
	}
	if !expired {
		c.entries = entries
		c.vectors = vs
		return nil
	}

	slog.Debug("semantic_cache_purging_expired")
	kept := make([]SemanticEntry, 0, len(entries))
	for _, e := range entries {
		if e.ExpireAt >= now {
			kept = append(kept, e)
		}
	}
	c.entries = kept
	return c.rebuildVectors(context.Background())
}

// rebuildVectors re-embeds every kept query. Caller holds c.mu.
func (c *SemanticCache) rebuildVectors(ctx context.Context) error {
	vs, err := store.NewHNSWStore(c.embedder.Dimensions())
	if err != nil {
		return err
	}
	if len(c.entries) > 0 {
		queries := make([]string, len(c.entries))
		chunks := make([]*store.Chunk, len(c.entries))
		for i, e := range c.entries {
			queries[i] = e.Query
			chunks[i] = &store.Chunk{Source: fmt.Sprintf("entry:%d", i)}
		}
		vectors, err := c.embedder.EmbedBatch(ctx, queries)
		if err != nil {
			return err
		}
		if err := vs.Build(ctx, vectors, chunks); err != nil {
			return err
		}
	}
	c.vectors = vs
	return c.persist()
}

// persist writes both files. Caller holds c.mu.
func (c *SemanticCache) persist() error {
	if err := writeGob(c.entriesPath, c.entries); err != nil {
		return err
	}
	if c.vectors != nil {
		return c.vectors.Save(c.indexPath, c.indexPath+".chunks")
	}
	return nil
}

// Get returns the cached value for the most similar prior query, or false
// when nothing clears the similarity threshold.
func (c *SemanticCache) Get(ctx context.Context, query string, out any) (bool, error) {
	if c.embedder == nil {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		slog.Warn("semantic_cache_load_failed", slog.String("error", err.Error()))
		return false, nil
	}
	if c.vectors == nil || len(c.entries) == 0 {
		return false, nil
	}

	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return false, nil
	}
	results, err := c.vectors.Search(ctx, vec, 1)
	if err != nil || len(results) == 0 {
		return false, nil
	}
	if results[0].Score < c.threshold {
		return false, nil
	}

	var idx int
	if _, err := fmt.Sscanf(results[0].Chunk.Source, "entry:%d", &idx); err != nil || idx < 0 || idx >= len(c.entries) {
		return false, nil
	}
	entry := c.entries[idx]
	if entry.ExpireAt < time.Now().Unix() {
		return false, nil
	}
	if err := json.Unmarshal([]byte(entry.Value), out); err != nil {
		return false, nil
	}
	return true, nil
}

// Set appends a (query, value) pair with the given TTL.
func (c *SemanticCache) Set(ctx context.Context, query string, value any, ttl time.Duration) error {
	if c.embedder == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return err
	}

	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return err
	}
	if c.vectors == nil {
		vs, err := store.NewHNSWStore(c.embedder.Dimensions())
		if err != nil {
			return err
		}
		c.vectors = vs
	}

	idx := len(c.entries)
	c.entries = append(c.entries, SemanticEntry{
		Query:    query,
		Value:    string(data),
		ExpireAt: time.Now().Add(ttl).Unix(),
	})
	if err := c.vectors.Add(ctx, [][]float32{vec},
		[]*store.Chunk{{Source: fmt.Sprintf("entry:%d", idx)}}); err != nil {
		return err
	}
	return c.persist()
}

// Clear drops both files and the in-memory state.
func (c *SemanticCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	c.vectors = nil
	c.loaded = false

	for _, p := range []string{c.entriesPath, c.indexPath, c.indexPath + ".chunks"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func writeGob(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
