package fileops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go":        "package main\n\nfunc main() {\n\trun()\n}\n",
		"lib/run.go":     "package lib\n\nfunc run() error {\n\treturn nil\n}\n\ntype Runner struct{}\n",
		"lib/util.py":    "def helper():\n    return 1\n\nclass Widget:\n    pass\n",
		"docs/guide.md":  "# Guide\n\nUse run() to start.\n",
		"node_modules/x": "skip me",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestResolvePath_RejectsEscape(t *testing.T) {
	root := setupRoot(t)

	_, err := ResolvePath(root, "../outside.txt")
	assert.Error(t, err)

	_, err = ResolvePath(root, "a/../../outside.txt")
	assert.Error(t, err)

	_, err = ResolvePath(root, "ok; rm -rf /")
	assert.Error(t, err)

	abs, err := ResolvePath(root, "lib/run.go")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "lib", "run.go"), abs)
}

func TestReadFile_LineRange(t *testing.T) {
	root := setupRoot(t)

	full, err := ReadFile(root, "main.go", 0, 0)
	require.NoError(t, err)
	assert.Contains(t, full, "package main")

	ranged, err := ReadFile(root, "main.go", 3, 4)
	require.NoError(t, err)
	assert.Equal(t, "func main() {\n\trun()", ranged)

	_, err = ReadFile(root, "main.go", 100, 200)
	assert.Error(t, err)
}

func TestListDir(t *testing.T) {
	root := setupRoot(t)

	entries, err := ListDir(root, "lib")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "run.go", entries[0].Name)
	assert.Equal(t, "util.py", entries[1].Name)
}

func TestFindFiles_Glob(t *testing.T) {
	root := setupRoot(t)

	files, err := FindFiles(root, "**/*.go", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "lib/run.go"}, files)

	// Ignored directories never surface.
	all, err := FindFiles(root, "**/*", 0)
	require.NoError(t, err)
	assert.NotContains(t, all, "node_modules/x")
}

func TestSearchPattern(t *testing.T) {
	root := setupRoot(t)

	matches, err := SearchPattern(root, `func run`, "", 1, 0, true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "lib/run.go", matches[0].File)
	assert.Equal(t, 3, matches[0].Line)
	assert.Contains(t, matches[0].Context, "package lib")

	// Case-insensitive flag.
	matches, err = SearchPattern(root, `FUNC RUN`, "", 0, 0, false)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = SearchPattern(root, `([unclosed`, "", 0, 0, true)
	assert.Error(t, err)
}

func TestExtractSymbols(t *testing.T) {
	root := setupRoot(t)

	symbols, err := ExtractSymbols(root, "lib/run.go")
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "run", symbols[0].Name)
	assert.Equal(t, "function", symbols[0].Kind)
	assert.Equal(t, "Runner", symbols[1].Name)
	assert.Equal(t, "type", symbols[1].Kind)

	pySymbols, err := ExtractSymbols(root, "lib/util.py")
	require.NoError(t, err)
	require.Len(t, pySymbols, 2)
	assert.Equal(t, "helper", pySymbols[0].Name)
	assert.Equal(t, "Widget", pySymbols[1].Name)
	assert.Equal(t, "class", pySymbols[1].Kind)
}

func TestFindSymbol(t *testing.T) {
	root := setupRoot(t)

	symbols, err := FindSymbol(root, "run", 0)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "lib/run.go", symbols[0].File)
}

func TestFindReferences(t *testing.T) {
	root := setupRoot(t)

	matches, err := FindReferences(root, "run", "**/*.go", 0)
	require.NoError(t, err)

	files := make(map[string]bool)
	for _, m := range matches {
		files[m.File] = true
	}
	assert.True(t, files["main.go"], "caller reference found")
	assert.True(t, files["lib/run.go"], "definition reference found")
}
