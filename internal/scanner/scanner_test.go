package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestScan_BasicDiscovery(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "docs/guide.md", "# Guide")
	writeFile(t, root, "image.png", "not indexable")

	s, err := New(0)
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/guide.md", "main.go"}, relPaths(files))
}

func TestScan_SkipRules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.py", "x = 1")
	writeFile(t, root, ".hidden.py", "skipped")
	writeFile(t, root, ".config/settings.py", "skipped")
	writeFile(t, root, "node_modules/lib/index.js", "skipped")
	writeFile(t, root, "__pycache__/mod.py", "skipped")

	s, err := New(0)
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.py"}, relPaths(files))
}

func TestScan_SizeBoundary(t *testing.T) {
	root := t.TempDir()
	// Exactly at the limit is indexed; one byte over is skipped.
	const limit = 256
	writeFile(t, root, "at.py", strings.Repeat("a", limit))
	writeFile(t, root, "over.py", strings.Repeat("a", limit+1))

	s, err := New(limit)
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"at.py"}, relPaths(files))
}

func TestScan_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated.go\nout/\n")
	writeFile(t, root, "kept.go", "package kept")
	writeFile(t, root, "generated.go", "package gen")
	writeFile(t, root, "out/result.go", "package out")

	s, err := New(0)
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.go"}, relPaths(files))
}

func TestScan_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.go", "package b")
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "c/d.go", "package d")

	s, err := New(0)
	require.NoError(t, err)

	first, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, relPaths(first), relPaths(second))
	assert.Equal(t, []string{"a.go", "b.go", "c/d.go"}, relPaths(first))
}

func TestScan_MissingRoot(t *testing.T) {
	s, err := New(0)
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
