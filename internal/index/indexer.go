package index

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/zoonderkins/augment-lite/internal/chunk"
	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/embed"
	"github.com/zoonderkins/augment-lite/internal/project"
	"github.com/zoonderkins/augment-lite/internal/scanner"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// hashSizeLimit caps content hashing; change detection for files at or above
// this size falls back to (mtime, size).
const hashSizeLimit = 1 << 20

// Stats summarizes one incremental update.
type Stats struct {
	ChunksAdded   int `json:"chunks_added"`
	ChunksRemoved int `json:"chunks_removed"`
	ChunksTotal   int `json:"chunks_total"`
}

// changes partitions the file set by what happened since the last index.
type changes struct {
	added    []string
	modified []string
	deleted  []string
	current  store.IndexState
}

func (c *changes) total() int {
	return len(c.added) + len(c.modified) + len(c.deleted)
}

// Indexer detects file changes and refreshes the per-project stores.
type Indexer struct {
	cfg      *config.Config
	paths    *project.Paths
	stores   *Stores
	scanner  *scanner.Scanner
	chunker  *chunk.Chunker
	embedder embed.Embedder // nil disables vector indexing
}

// NewIndexer creates an incremental indexer.
func NewIndexer(cfg *config.Config, paths *project.Paths, stores *Stores, sc *scanner.Scanner, embedder embed.Embedder) *Indexer {
	return &Indexer{
		cfg:      cfg,
		paths:    paths,
		stores:   stores,
		scanner:  sc,
		chunker:  chunk.New(cfg.Chunking),
		embedder: embedder,
	}
}

// AutoIndexIfNeeded refreshes the project's indices if any file changed.
// Returns nil stats when the index is already current; no on-disk artifact is
// touched in that case.
func (ix *Indexer) AutoIndexIfNeeded(ctx context.Context, proj *project.Project) (*Stats, error) {
	ch, err := ix.detectChanges(ctx, proj)
	if err != nil {
		return nil, err
	}
	if ch.total() == 0 {
		return nil, nil
	}

	slog.Info("incremental_update",
		slog.String("project", proj.Name),
		slog.Int("added", len(ch.added)),
		slog.Int("modified", len(ch.modified)),
		slog.Int("deleted", len(ch.deleted)))

	return ix.applyUpdate(ctx, proj, ch, false)
}

// Rebuild discards change-detection state and rebuilds everything.
// vectorOnly refreshes just the vector store from the current chunk list.
func (ix *Indexer) Rebuild(ctx context.Context, proj *project.Project, vectorOnly bool) (*Stats, error) {
	if vectorOnly {
		chunks, err := store.NewChunkList(ix.paths.Chunks(proj.Name)).Load()
		if err != nil {
			return nil, fmt.Errorf("load chunk list: %w", err)
		}
		if err := ix.rebuildVector(ctx, proj.Name, chunks, true); err != nil {
			return nil, err
		}
		return &Stats{ChunksTotal: len(chunks)}, nil
	}

	if err := store.NewStateFile(ix.paths.IndexState(proj.Name)).Delete(); err != nil {
		return nil, err
	}
	ch, err := ix.detectChanges(ctx, proj)
	if err != nil {
		return nil, err
	}
	return ix.applyUpdate(ctx, proj, ch, true)
}

// RebuildBM25Only rebuilds the chunk list and BM25 index without touching
// embeddings. Any existing vector store is removed so it cannot go stale.
func (ix *Indexer) RebuildBM25Only(ctx context.Context, proj *project.Project) (*Stats, error) {
	if err := store.NewStateFile(ix.paths.IndexState(proj.Name)).Delete(); err != nil {
		return nil, err
	}
	ch, err := ix.detectChanges(ctx, proj)
	if err != nil {
		return nil, err
	}

	stats, err := ix.applyUpdateSkippingVector(ctx, proj, ch)
	if err != nil {
		return nil, err
	}
	ix.dropVectorFiles(proj.Name)
	return stats, nil
}

// detectChanges scans the project root and compares against persisted state.
func (ix *Indexer) detectChanges(ctx context.Context, proj *project.Project) (*changes, error) {
	prev := store.NewStateFile(ix.paths.IndexState(proj.Name)).Load()

	files, err := ix.scanner.Scan(ctx, proj.Root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", proj.Root, err)
	}

	ch := &changes{current: make(store.IndexState, len(files))}

	for _, f := range files {
		meta := store.FileMeta{Mtime: f.Mtime, Size: f.Size}
		if f.Size < hashSizeLimit {
			if h, err := hashFile(proj.Root, f.RelPath); err == nil {
				meta.Hash = h
			}
		}
		ch.current[f.RelPath] = meta

		prevMeta, known := prev[f.RelPath]
		if !known {
			ch.added = append(ch.added, f.RelPath)
			continue
		}
		if prevMeta.Mtime != meta.Mtime || prevMeta.Size != meta.Size {
			// Equal content hashes override a touched mtime.
			if meta.Hash != "" && prevMeta.Hash != "" && meta.Hash == prevMeta.Hash {
				continue
			}
			ch.modified = append(ch.modified, f.RelPath)
		}
	}

	for relPath := range prev {
		if _, ok := ch.current[relPath]; !ok {
			ch.deleted = append(ch.deleted, relPath)
		}
	}

	return ch, nil
}

// applyUpdate rewrites the chunk list and rebuilds both indices.
// The chunk list, index state, and vector files are written atomically; the
// persisted state is only updated after the stores committed.
func (ix *Indexer) applyUpdate(ctx context.Context, proj *project.Project, ch *changes, fatalVector bool) (*Stats, error) {
	return ix.applyUpdateInner(ctx, proj, ch, fatalVector, false)
}

// applyUpdateSkippingVector is applyUpdate without the embedding pass.
func (ix *Indexer) applyUpdateSkippingVector(ctx context.Context, proj *project.Project, ch *changes) (*Stats, error) {
	return ix.applyUpdateInner(ctx, proj, ch, false, true)
}

func (ix *Indexer) applyUpdateInner(ctx context.Context, proj *project.Project, ch *changes, fatalVector, skipVector bool) (*Stats, error) {
	// Cross-process lock: one writer per project index.
	lock := flock.New(ix.paths.IndexLock(proj.Name))
	locked, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("index lock for %s held by another process", proj.Name)
	}
	defer func() { _ = lock.Unlock() }()

	chunkList := store.NewChunkList(ix.paths.Chunks(proj.Name))
	existing, err := chunkList.Load()
	if err != nil {
		return nil, fmt.Errorf("load chunk list: %w", err)
	}

	stats := &Stats{}

	// Drop every chunk whose source file changed or disappeared.
	stale := make(map[string]struct{}, len(ch.added)+len(ch.modified)+len(ch.deleted))
	for _, rel := range ch.added {
		stale[rel] = struct{}{}
	}
	for _, rel := range ch.modified {
		stale[rel] = struct{}{}
	}
	for _, rel := range ch.deleted {
		stale[rel] = struct{}{}
	}

	kept := make([]*store.Chunk, 0, len(existing))
	for _, c := range existing {
		if _, gone := stale[store.FileKey(c.Source)]; gone {
			stats.ChunksRemoved++
			continue
		}
		kept = append(kept, c)
	}

	// Re-chunk added and modified files. A single bad file is logged and
	// skipped; the update proceeds for the rest.
	for _, rel := range append(append([]string{}, ch.added...), ch.modified...) {
		chunks, err := ix.chunker.ChunkFile(proj.Root, rel)
		if err != nil {
			slog.Warn("chunking_failed_skipping_file",
				slog.String("project", proj.Name),
				slog.String("file", rel),
				slog.String("error", err.Error()))
			delete(ch.current, rel)
			continue
		}
		kept = append(kept, chunks...)
		stats.ChunksAdded += len(chunks)
	}
	stats.ChunksTotal = len(kept)

	if err := chunkList.Save(kept); err != nil {
		return nil, fmt.Errorf("write chunk list: %w", err)
	}

	bm25, err := ix.stores.BM25(proj.Name)
	if err != nil {
		return nil, err
	}
	if err := bm25.Rebuild(ctx, kept); err != nil {
		return nil, fmt.Errorf("rebuild BM25 index: %w", err)
	}

	if !skipVector {
		if err := ix.rebuildVector(ctx, proj.Name, kept, fatalVector); err != nil {
			return nil, err
		}
	}

	if err := store.NewStateFile(ix.paths.IndexState(proj.Name)).Save(ch.current); err != nil {
		return nil, fmt.Errorf("persist index state: %w", err)
	}

	return stats, nil
}

// rebuildVector re-embeds the whole chunk list and swaps the vector store.
// One full rebuild per incremental update trades throughput for correctness,
// which is acceptable at the target corpus sizes.
//
// When fatal is false (the auto-index path before a search), embedding-service
// outages degrade to BM25-only: the stale vector index is removed so deleted
// files can never resurface through it. Dimension mismatches are always fatal.
func (ix *Indexer) rebuildVector(ctx context.Context, name string, chunks []*store.Chunk, fatal bool) error {
	if ix.embedder == nil {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		var dim store.ErrDimensionMismatch
		if errors.As(err, &dim) {
			return fmt.Errorf("vector index build aborted: %w", dim)
		}
		if fatal {
			return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
		}
		slog.Warn("vector_rebuild_skipped",
			slog.String("project", name),
			slog.String("error", err.Error()))
		ix.dropVectorFiles(name)
		return nil
	}

	vs, err := store.NewHNSWStore(ix.embedder.Dimensions())
	if err != nil {
		return err
	}
	if err := vs.Build(ctx, vectors, chunks); err != nil {
		return fmt.Errorf("build vector index: %w", err)
	}
	if err := vs.Save(ix.paths.VectorIndex(name), ix.paths.VectorChunks(name)); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}

	ix.stores.ReplaceVector(name, vs)
	return nil
}

// dropVectorFiles removes a project's persisted vector store.
func (ix *Indexer) dropVectorFiles(name string) {
	ix.stores.DropVector(name)
	_ = os.Remove(ix.paths.VectorIndex(name))
	_ = os.Remove(ix.paths.VectorChunks(name))
}

func hashFile(root, relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
