package mcp

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite/internal/answer"
	"github.com/zoonderkins/augment-lite/internal/cache"
	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/index"
	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/memory"
	"github.com/zoonderkins/augment-lite/internal/project"
	"github.com/zoonderkins/augment-lite/internal/router"
	"github.com/zoonderkins/augment-lite/internal/scanner"
	"github.com/zoonderkins/augment-lite/internal/search"
)

// fixedLLM always answers the same thing.
type fixedLLM struct {
	answer string
}

func (f *fixedLLM) Chat(context.Context, string, []llm.Message, llm.ChatOptions) (string, error) {
	return f.answer, nil
}

// newTestServer wires a full server over temp dirs with a BM25-only stack.
func newTestServer(t *testing.T, projectFiles map[string]string) *Server {
	t.Helper()

	dataDir := t.TempDir()
	root := t.TempDir()
	for rel, content := range projectFiles {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	cfg := config.New()
	cfg.DataDir = dataDir

	registry, err := project.Open(dataDir)
	require.NoError(t, err)
	paths := project.NewPaths(dataDir)
	stores := index.NewStores(cfg, paths)
	t.Cleanup(func() { _ = stores.Close() })

	sc, err := scanner.New(cfg.Chunking.MaxFileSize)
	require.NoError(t, err)
	indexer := index.NewIndexer(cfg, paths, stores, sc, nil)

	client := &fixedLLM{answer: "the answer [source:a.py:1]"}
	engine := search.NewEngine(cfg, stores, nil, client)

	caches, err := cache.NewManager(cfg, paths, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = caches.Close() })

	longterm, err := memory.OpenLongterm(paths.Longterm())
	require.NoError(t, err)
	t.Cleanup(func() { _ = longterm.Close() })
	tasks, err := memory.OpenTasks(paths.Tasks())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tasks.Close() })

	orch := answer.New(cfg, engine, router.New(cfg.Models), caches, client)

	server, err := NewServer(Deps{
		Config:       cfg,
		Registry:     registry,
		Paths:        paths,
		Stores:       stores,
		Indexer:      indexer,
		Engine:       engine,
		Orchestrator: orch,
		Caches:       caches,
		Longterm:     longterm,
		Tasks:        tasks,
		Logger:       slog.Default(),
		Cwd:          root,
	})
	require.NoError(t, err)
	return server
}

func pyLines(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		sb.WriteString("value = ")
		sb.WriteString(strings.Repeat("9", 1+i%5))
		sb.WriteString(" # hello marker\n")
	}
	return sb.String()
}

func TestRagSearch_AutoInitAndFirstSearch(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.py": pyLines(120)})

	_, out, err := s.handleRagSearch(context.Background(), nil, RagSearchInput{Query: "hello", K: 4})
	require.NoError(t, err)
	require.True(t, out.OK, "error: %s", out.Error)

	// Auto-init registered a project named after the working directory.
	active := s.registry.Active()
	require.NotNil(t, active)

	// A 120-line file yields three chunks; response is capped at k with all
	// sources in a.py.
	require.NotEmpty(t, out.Hits)
	assert.LessOrEqual(t, len(out.Hits), 4)
	for _, h := range out.Hits {
		assert.True(t, strings.HasPrefix(h.Source, "a.py:"), "source %s", h.Source)
	}

	chunks, err := s.stores.Chunks(active.Name)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(chunks), 3)
}

func TestRagSearch_EmptyQuery(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.py": pyLines(10)})

	_, out, err := s.handleRagSearch(context.Background(), nil, RagSearchInput{Query: "  "})
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.Contains(t, out.Error, "INVALID_INPUT")
}

func TestAnswerGenerate_AbstainOnEmptyCorpus(t *testing.T) {
	s := newTestServer(t, nil)

	_, out, err := s.handleAnswerGenerate(context.Background(), nil, AnswerGenerateInput{Query: "X"})
	require.NoError(t, err)
	require.True(t, out.OK, "error: %s", out.Error)
	assert.True(t, out.Abstained)
	assert.Equal(t, "Search failed: NO_RESULTS", out.Answer)
	assert.Empty(t, out.Citations)
}

func TestAnswerGenerate_CachedSecondCall(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.py": pyLines(120), "b.py": pyLines(60)})

	_, first, err := s.handleAnswerGenerate(context.Background(), nil,
		AnswerGenerateInput{Query: "hello marker", Route: "small-fast"})
	require.NoError(t, err)
	require.True(t, first.OK, "error: %s", first.Error)
	require.False(t, first.Abstained)
	assert.False(t, first.Cached)

	_, second, err := s.handleAnswerGenerate(context.Background(), nil,
		AnswerGenerateInput{Query: "hello marker", Route: "small-fast"})
	require.NoError(t, err)
	require.True(t, second.OK)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
}

func TestDualSearch_HintWithoutTransport(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.py": pyLines(60)})

	_, out, err := s.handleDualSearch(context.Background(), nil, DualSearchInput{Query: "hello"})
	require.NoError(t, err)
	require.True(t, out.OK, "error: %s", out.Error)

	assert.False(t, out.AuggieAvailable)
	assert.Contains(t, out.AuggieHint, "codebase-retrieval")
	assert.NotEmpty(t, out.Hits)
	assert.NotZero(t, out.Sources["augment_lite"].Count)
}

func TestIncrementalDelete_EndToEnd(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.py": pyLines(60), "b.py": pyLines(60)})

	_, out, err := s.handleRagSearch(context.Background(), nil, RagSearchInput{Query: "hello", K: 8})
	require.NoError(t, err)
	require.True(t, out.OK)

	active := s.registry.Active()
	require.NotNil(t, active)
	require.NoError(t, os.Remove(filepath.Join(active.Root, "b.py")))

	_, out, err = s.handleRagSearch(context.Background(), nil, RagSearchInput{Query: "hello", K: 8})
	require.NoError(t, err)
	require.True(t, out.OK)
	for _, h := range out.Hits {
		assert.False(t, strings.HasPrefix(h.Source, "b.py:"),
			"deleted file must never be returned: %s", h.Source)
	}
}

func TestMemoryTools_RoundTrip(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.py": pyLines(10)})

	_, setOut, err := s.handleMemorySet(context.Background(), nil,
		MemorySetInput{Key: "build.cmd", Value: "make all", Project: ""})
	require.NoError(t, err)
	require.True(t, setOut.OK, "error: %s", setOut.Error)

	_, getOut, err := s.handleMemoryGet(context.Background(), nil,
		MemoryGetInput{Key: "build.cmd", Project: ""})
	require.NoError(t, err)
	require.True(t, getOut.OK)
	assert.True(t, getOut.Found)
	assert.Equal(t, "make all", getOut.Value)

	_, listOut, err := s.handleMemoryList(context.Background(), nil, MemoryListInput{Project: ""})
	require.NoError(t, err)
	require.True(t, listOut.OK)
	assert.Equal(t, 1, listOut.Count)

	_, delOut, err := s.handleMemoryDelete(context.Background(), nil,
		MemoryDeleteInput{Key: "build.cmd", Project: ""})
	require.NoError(t, err)
	require.True(t, delOut.OK)

	_, getOut, err = s.handleMemoryGet(context.Background(), nil,
		MemoryGetInput{Key: "build.cmd", Project: ""})
	require.NoError(t, err)
	assert.False(t, getOut.Found)
}

func TestMemorySet_InvalidKey(t *testing.T) {
	s := newTestServer(t, nil)

	_, out, err := s.handleMemorySet(context.Background(), nil,
		MemorySetInput{Key: "bad key!", Value: "v"})
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.Contains(t, out.Error, "invalid memory key")
}

func TestTaskTools_Lifecycle(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.py": pyLines(10)})

	_, added, err := s.handleTaskAdd(context.Background(), nil,
		TaskAddInput{Title: "ship it", Project: ""})
	require.NoError(t, err)
	require.True(t, added.OK, "error: %s", added.Error)

	status := "in_progress"
	_, updated, err := s.handleTaskUpdate(context.Background(), nil,
		TaskUpdateInput{TaskID: added.TaskID, Status: &status, Project: ""})
	require.NoError(t, err)
	require.True(t, updated.OK)
	assert.Equal(t, "in_progress", updated.Task.Status)

	_, current, err := s.handleTaskCurrent(context.Background(), nil, TaskStatsInput{Project: ""})
	require.NoError(t, err)
	require.True(t, current.OK)
	require.NotNil(t, current.Task)
	assert.Equal(t, added.TaskID, current.Task.ID)

	_, stats, err := s.handleTaskStats(context.Background(), nil, TaskStatsInput{Project: ""})
	require.NoError(t, err)
	require.True(t, stats.OK)
	assert.Equal(t, 1, stats.Stats.InProgress)
}

func TestCacheTools(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.py": pyLines(120)})

	_, gen, err := s.handleAnswerGenerate(context.Background(), nil,
		AnswerGenerateInput{Query: "hello marker"})
	require.NoError(t, err)
	require.True(t, gen.OK)

	_, status, err := s.handleCacheStatus(context.Background(), nil, CacheStatusInput{})
	require.NoError(t, err)
	require.True(t, status.OK)

	_, cleared, err := s.handleCacheClear(context.Background(), nil, CacheClearInput{Project: "all"})
	require.NoError(t, err)
	require.True(t, cleared.OK)

	_, status, err = s.handleCacheStatus(context.Background(), nil, CacheStatusInput{})
	require.NoError(t, err)
	assert.Empty(t, status.Entries)
}

func TestFileTools(t *testing.T) {
	s := newTestServer(t, map[string]string{
		"a.py":          "def main():\n    pass\n",
		"docs/guide.md": "# Guide\n",
	})
	// Establish the active project.
	_, out, err := s.handleRagSearch(context.Background(), nil, RagSearchInput{Query: "main"})
	require.NoError(t, err)
	require.True(t, out.OK)

	_, read, err := s.handleFileRead(context.Background(), nil, FileReadInput{Path: "a.py"})
	require.NoError(t, err)
	require.True(t, read.OK)
	assert.Contains(t, read.Content, "def main")

	_, escape, err := s.handleFileRead(context.Background(), nil, FileReadInput{Path: "../../etc/passwd"})
	require.NoError(t, err)
	assert.False(t, escape.OK)

	_, found, err := s.handleFileFind(context.Background(), nil, FileFindInput{Pattern: "**/*.md"})
	require.NoError(t, err)
	require.True(t, found.OK)
	assert.Equal(t, []string{"docs/guide.md"}, found.Files)

	_, symbols, err := s.handleCodeSymbols(context.Background(), nil, CodeSymbolsInput{Path: "a.py"})
	require.NoError(t, err)
	require.True(t, symbols.OK)
	require.Len(t, symbols.Symbols, 1)
	assert.Equal(t, "main", symbols.Symbols[0].Name)
}

func TestAnswerUnified_PlanOnly(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.py": pyLines(10)})

	_, out, err := s.handleAnswerUnified(context.Background(), nil, AnswerUnifiedInput{
		Query:      "how does indexing work",
		SubQueries: []string{"chunking windows", "state persistence"},
	})
	require.NoError(t, err)
	require.True(t, out.OK)

	assert.Equal(t, "unified_search", out.PlanType)
	assert.Equal(t, len(out.Steps), out.TotalSteps)
	assert.NotEmpty(t, out.ExecutionHint)

	last := out.Steps[len(out.Steps)-1]
	assert.Equal(t, "synthesize", last.Action)
}
