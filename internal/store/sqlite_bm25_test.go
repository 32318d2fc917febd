package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks() []*Chunk {
	return []*Chunk{
		{Text: "func ParseConfig(path string) error { return nil }", Source: "config.go:1"},
		{Text: "func StartServer(addr string) error { listen and serve }", Source: "server.go:1"},
		{Text: "hybrid retrieval fuses keyword and vector scores", Source: "docs/design.md:chunk1"},
	}
}

func newTestIndex(t *testing.T) *SQLiteBM25Index {
	t.Helper()
	idx, err := NewSQLiteBM25Index(filepath.Join(t.TempDir(), "corpus.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.Rebuild(context.Background(), testChunks()))
	return idx
}

func TestSQLiteBM25_SearchRanksMatches(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search(context.Background(), "ParseConfig", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 0, results[0].ID)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSQLiteBM25_EmptyQuery(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteBM25_ZeroLimit(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search(context.Background(), "server", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteBM25_RebuildReplacesCorpus(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Rebuild(context.Background(), []*Chunk{
		{Text: "completely different content", Source: "new.go:1"},
	}))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := idx.Search(context.Background(), "ParseConfig", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteBM25_StemmingMatchesInflections(t *testing.T) {
	idx := newTestIndex(t)

	// Porter stems "fuses" and "fusing" to the same root.
	results, err := idx.Search(context.Background(), "fusing", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 2, results[0].ID)
}

func TestSQLiteBM25_CloseIdempotent(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())
}

func TestSQLiteBM25_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.sqlite")

	idx, err := NewSQLiteBM25Index(path)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(context.Background(), testChunks()))
	require.NoError(t, idx.Close())

	reopened, err := NewSQLiteBM25Index(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Hello_World foo.bar #tag @user path/to/file-name")
	assert.Contains(t, tokens, "hello_world")
	assert.Contains(t, tokens, "foo.bar")
	assert.Contains(t, tokens, "#tag")
	assert.Contains(t, tokens, "path/to/file-name")
}

func TestFileKey(t *testing.T) {
	assert.Equal(t, "a.py", FileKey("a.py:120"))
	assert.Equal(t, "docs/x.md", FileKey("docs/x.md:chunk5"))
	assert.Equal(t, "C:\\repo\\a.py", FileKey("C:\\repo\\a.py:3"))
	assert.Equal(t, "repo:branch", FileKey("repo:branch"))
}
