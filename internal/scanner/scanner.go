// Package scanner discovers indexable files in a project directory.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zoonderkins/augment-lite/internal/chunk"
	"github.com/zoonderkins/augment-lite/internal/gitignore"
)

// DefaultMaxFileSize is the per-file size cap; files strictly larger are
// skipped, files exactly at the limit are indexed.
const DefaultMaxFileSize = 1 << 20

// gitignoreCacheSize bounds the number of cached matchers so long-running
// servers watching many projects do not grow without limit.
const gitignoreCacheSize = 64

// FileInfo describes a discovered candidate file.
type FileInfo struct {
	// RelPath is the slash-separated path relative to the scan root.
	RelPath string
	Size    int64
	// Mtime is the modification time as Unix seconds with fractional part.
	Mtime float64
}

// Scanner walks project roots and applies the skip rules.
type Scanner struct {
	maxFileSize    int64
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
}

// New creates a Scanner. maxFileSize <= 0 selects the 1 MiB default.
func New(maxFileSize int64) (*Scanner, error) {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create gitignore cache: %w", err)
	}
	return &Scanner{
		maxFileSize:    maxFileSize,
		gitignoreCache: cache,
	}, nil
}

// matcherFor returns the cached gitignore matcher for a project root.
func (s *Scanner) matcherFor(root string) *gitignore.Matcher {
	if m, ok := s.gitignoreCache.Get(root); ok {
		return m
	}
	m, err := gitignore.Load(root)
	if err != nil {
		slog.Warn("gitignore_load_failed",
			slog.String("root", root),
			slog.String("error", err.Error()))
		m = gitignore.New()
	}
	s.gitignoreCache.Add(root, m)
	return m
}

// InvalidateGitignore drops the cached matcher for a root, forcing a reload
// on the next scan. Called when a watcher observes .gitignore changes.
func (s *Scanner) InvalidateGitignore(root string) {
	s.gitignoreCache.Remove(root)
}

// Scan walks root and returns all files that pass the skip rules, sorted by
// relative path for deterministic downstream processing.
func (s *Scanner) Scan(ctx context.Context, root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	matcher := s.matcherFor(absRoot)

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable entries are skipped, not fatal.
			slog.Debug("scan_entry_error",
				slog.String("path", path),
				slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if strings.HasPrefix(name, ".") && rel != "." {
				return filepath.SkipDir
			}
			if chunk.InIgnoredDir(rel) {
				return filepath.SkipDir
			}
			if matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !chunk.IsIndexable(rel) {
			return nil
		}
		if matcher.Match(rel, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > s.maxFileSize {
			return nil
		}

		files = append(files, FileInfo{
			RelPath: rel,
			Size:    fi.Size(),
			Mtime:   float64(fi.ModTime().UnixNano()) / 1e9,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}
