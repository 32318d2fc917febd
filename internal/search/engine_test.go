package search

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/embed"
	"github.com/zoonderkins/augment-lite/internal/errors"
	"github.com/zoonderkins/augment-lite/internal/index"
	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/project"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// scriptedLLM returns canned responses in order and records calls.
type scriptedLLM struct {
	responses []string
	calls     int
	err       error
}

func (s *scriptedLLM) Chat(_ context.Context, _ string, _ []llm.Message, _ llm.ChatOptions) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

// charEmbedder maps text to a deterministic letter-frequency vector so vector
// similarity is reproducible without a model.
type charEmbedder struct{}

func (charEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for _, r := range text {
		vec[int(r)%8]++
	}
	return embed.Normalize(vec), nil
}

func (c charEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (charEmbedder) Dimensions() int { return 8 }

func (charEmbedder) ModelName() string { return "char-test" }

// newTestEngine builds an engine over a real SQLite BM25 corpus, no vectors.
func newTestEngine(t *testing.T, chunks []*store.Chunk, client llm.Client) (*Engine, string) {
	t.Helper()
	e, name, _ := buildEngine(t, chunks, client, false)
	return e, name
}

// newFusedEngine adds an on-disk vector store so searches take the fused path.
func newFusedEngine(t *testing.T, chunks []*store.Chunk, client llm.Client) (*Engine, string) {
	t.Helper()
	e, name, _ := buildEngine(t, chunks, client, true)
	return e, name
}

func buildEngine(t *testing.T, chunks []*store.Chunk, client llm.Client, withVectors bool) (*Engine, string, *index.Stores) {
	t.Helper()

	dataDir := t.TempDir()
	cfg := config.New()
	cfg.DataDir = dataDir
	cfg.Embeddings.Dimensions = 8

	paths := project.NewPaths(dataDir)
	stores := index.NewStores(cfg, paths)
	t.Cleanup(func() { _ = stores.Close() })

	const name = "testproj"
	require.NoError(t, store.NewChunkList(paths.Chunks(name)).Save(chunks))
	bm25, err := stores.BM25(name)
	require.NoError(t, err)
	require.NoError(t, bm25.Rebuild(context.Background(), chunks))

	var embedder embed.Embedder
	if withVectors {
		embedder = charEmbedder{}
		vectors, err := embedder.EmbedBatch(context.Background(), texts(chunks))
		require.NoError(t, err)
		vs, err := store.NewHNSWStore(8)
		require.NoError(t, err)
		require.NoError(t, vs.Build(context.Background(), vectors, chunks))
		require.NoError(t, vs.Save(paths.VectorIndex(name), paths.VectorChunks(name)))
	}

	return NewEngine(cfg, stores, embedder, client), name, stores
}

func texts(chunks []*store.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func corpusChunks() []*store.Chunk {
	chunks := []*store.Chunk{
		{Text: "func HandleLogin(w http.ResponseWriter) { authenticate user }", Source: "auth/login.go:1"},
		{Text: "func HandleLogout(w http.ResponseWriter) { clear session }", Source: "auth/login.go:41"},
		{Text: "func authenticate(token string) bool { verify token }", Source: "auth/login.go:81"},
		{Text: "database connection pooling setup", Source: "db/pool.go:1"},
		{Text: "login page template rendering", Source: "web/views.go:1"},
	}
	return chunks
}

func TestHybridSearch_EmptyQuery(t *testing.T) {
	e, name := newTestEngine(t, corpusChunks(), nil)

	_, err := e.HybridSearch(context.Background(), name, "  ", Options{K: 5})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestHybridSearch_ZeroK(t *testing.T) {
	e, name := newTestEngine(t, corpusChunks(), nil)

	hits, err := e.HybridSearch(context.Background(), name, "login", Options{K: 0})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHybridSearch_BM25Only(t *testing.T) {
	e, name := newTestEngine(t, corpusChunks(), nil)

	hits, err := e.HybridSearch(context.Background(), name, "authenticate", Options{K: 4})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score, "descending score order")
	}
}

func TestHybridSearch_SameFileDedup(t *testing.T) {
	e, name := newFusedEngine(t, corpusChunks(), nil)

	hits, err := e.HybridSearch(context.Background(), name, "HandleLogin HandleLogout authenticate", Options{K: 5})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	perFile := make(map[string]int)
	for _, h := range hits {
		perFile[store.FileKey(h.Source)]++
	}
	for file, count := range perFile {
		assert.LessOrEqual(t, count, 2, "at most 2 chunks per file, got %d for %s", count, file)
	}
}

func TestHybridSearch_FusedScoresNormalized(t *testing.T) {
	e, name := newFusedEngine(t, corpusChunks(), nil)

	hits, err := e.HybridSearch(context.Background(), name, "authenticate", Options{K: 5})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	for i, h := range hits {
		assert.LessOrEqual(t, h.Score, 1.0, "fused score is weighted sum of normalized parts")
		assert.GreaterOrEqual(t, h.Score, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, hits[i-1].Score, h.Score)
		}
	}
}

func TestHybridSearch_Deterministic(t *testing.T) {
	e, name := newTestEngine(t, corpusChunks(), nil)

	first, err := e.HybridSearch(context.Background(), name, "login", Options{K: 5})
	require.NoError(t, err)
	second, err := e.HybridSearch(context.Background(), name, "login", Options{K: 5})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Source, second[i].Source)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestNormalizeScores(t *testing.T) {
	hits := []*store.Hit{{Score: 4}, {Score: 2}, {Score: 1}}
	normalizeScores(hits)
	assert.Equal(t, 1.0, hits[0].Score)
	assert.Equal(t, 0.5, hits[1].Score)
	assert.Equal(t, 0.25, hits[2].Score)

	zero := []*store.Hit{{Score: 0}, {Score: 0}}
	normalizeScores(zero)
	assert.Equal(t, 0.0, zero[0].Score)
}

func TestDedupeByFile(t *testing.T) {
	hits := []*store.Hit{
		{Source: "a.go:1", Score: 0.9},
		{Source: "a.go:41", Score: 0.8},
		{Source: "a.go:81", Score: 0.7},
		{Source: "b.go:1", Score: 0.6},
	}
	out := dedupeByFile(hits, 2)
	require.Len(t, out, 3)
	assert.Equal(t, "a.go:1", out[0].Source)
	assert.Equal(t, "a.go:41", out[1].Source)
	assert.Equal(t, "b.go:1", out[2].Source)
}

func TestSubagentFilter_ParsesSelection(t *testing.T) {
	client := &scriptedLLM{responses: []string{"2, 0"}}
	e, _ := newTestEngine(t, corpusChunks(), client)

	candidates := []*store.Hit{
		{Source: "a.go:1", Score: 0.9},
		{Source: "b.go:1", Score: 0.8},
		{Source: "c.go:1", Score: 0.7},
	}
	out := e.SubagentFilter(context.Background(), "query", candidates, 2, "")
	require.Len(t, out, 2)
	assert.Equal(t, "c.go:1", out[0].Source)
	assert.Equal(t, "a.go:1", out[1].Source)
}

func TestSubagentFilter_FallbackOnError(t *testing.T) {
	client := &scriptedLLM{err: fmt.Errorf("model offline")}
	e, _ := newTestEngine(t, corpusChunks(), client)

	candidates := []*store.Hit{
		{Source: "a.go:1", Score: 0.9},
		{Source: "b.go:1", Score: 0.8},
		{Source: "c.go:1", Score: 0.7},
	}
	out := e.SubagentFilter(context.Background(), "query", candidates, 2, "")
	require.Len(t, out, 2)
	assert.Equal(t, "a.go:1", out[0].Source)
}

func TestSubagentFilter_SmallPoolPassesThrough(t *testing.T) {
	client := &scriptedLLM{}
	e, _ := newTestEngine(t, corpusChunks(), client)

	candidates := []*store.Hit{{Source: "a.go:1", Score: 0.9}}
	out := e.SubagentFilter(context.Background(), "query", candidates, 5, "")
	assert.Len(t, out, 1)
	assert.Zero(t, client.calls, "no LLM call when the pool already fits")
}

func TestParseSelection(t *testing.T) {
	assert.Equal(t, []int{1, 3, 0}, parseSelection("1, 3, 0", 5))
	assert.Equal(t, []int{2}, parseSelection("I'd pick candidate 2 and also 99", 5))
	assert.Empty(t, parseSelection("none of these", 5))
	assert.Equal(t, []int{1}, parseSelection("1, 1, 1", 5))
}

func TestParseSubQueries(t *testing.T) {
	response := "1. authentication flow implementation\n" +
		"2) session token storage\n" +
		"- login error handling paths\n" +
		"short\n" +
		"* password hashing strategy\n"
	out := ParseSubQueries(response)
	require.Len(t, out, 4)
	assert.Equal(t, "authentication flow implementation", out[0])
	assert.Equal(t, "session token storage", out[1])
	assert.Equal(t, "login error handling paths", out[2])
	assert.Equal(t, "password hashing strategy", out[3])
}

func TestShouldUseIterative(t *testing.T) {
	assert.True(t, ShouldUseIterative("short", "refactor"))
	assert.True(t, ShouldUseIterative("short", "implement"))
	assert.False(t, ShouldUseIterative("short", "lookup"))
	assert.True(t, ShouldUseIterative(strings.Repeat("long query ", 6), "lookup"))
	assert.True(t, ShouldUseIterative("login and session and tokens", "lookup"))
	assert.True(t, ShouldUseIterative("登入以及會話以及令牌", "lookup"))
}

func TestIterativeSearch_StopsOnIdenticalExpansion(t *testing.T) {
	client := &scriptedLLM{responses: []string{"HandleLogin"}}
	e, name := newTestEngine(t, corpusChunks(), client)

	hits, err := e.IterativeSearch(context.Background(), name, "HandleLogin", IterativeOptions{
		MaxIterations: 3,
		KPerIteration: 3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestAccumulatedSearch_TagsRounds(t *testing.T) {
	e, name := newTestEngine(t, corpusChunks(), nil)

	result := e.AccumulatedSearch(context.Background(), name, "auth overview",
		[]string{"HandleLogin handler", "database pooling"}, 3, false)

	require.NotEmpty(t, result.Hits)
	assert.Len(t, result.Metadata, 2)
	for _, h := range result.Hits {
		assert.NotZero(t, h.Round)
		assert.NotEmpty(t, h.SubQuery)
	}

	// Deduplicated by source.
	seen := make(map[string]bool)
	for _, h := range result.Hits {
		assert.False(t, seen[h.Source], "duplicate source %s", h.Source)
		seen[h.Source] = true
	}
}
