package answer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite/internal/cache"
	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/index"
	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/project"
	"github.com/zoonderkins/augment-lite/internal/router"
	"github.com/zoonderkins/augment-lite/internal/search"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// countingLLM returns a fixed answer and counts invocations.
type countingLLM struct {
	answer string
	calls  int
	fail   bool
}

func (c *countingLLM) Chat(_ context.Context, _ string, _ []llm.Message, _ llm.ChatOptions) (string, error) {
	c.calls++
	if c.fail {
		return "", fmt.Errorf("provider down")
	}
	return c.answer, nil
}

func newOrchestrator(t *testing.T, chunks []*store.Chunk, client llm.Client) (*Orchestrator, string) {
	t.Helper()

	dataDir := t.TempDir()
	cfg := config.New()
	cfg.DataDir = dataDir

	paths := project.NewPaths(dataDir)
	stores := index.NewStores(cfg, paths)
	t.Cleanup(func() { _ = stores.Close() })

	const name = "demo"
	if len(chunks) > 0 {
		require.NoError(t, store.NewChunkList(paths.Chunks(name)).Save(chunks))
		bm25, err := stores.BM25(name)
		require.NoError(t, err)
		require.NoError(t, bm25.Rebuild(context.Background(), chunks))
	}

	engine := search.NewEngine(cfg, stores, nil, client)
	caches, err := cache.NewManager(cfg, paths, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = caches.Close() })

	return New(cfg, engine, router.New(cfg.Models), caches, client), name
}

func answerCorpus() []*store.Chunk {
	return []*store.Chunk{
		{Text: "func HandleLogin(w http.ResponseWriter) { authenticate the user session }", Source: "auth/login.go:1"},
		{Text: "session tokens are stored in the session store keyed by user id", Source: "auth/session.go:1"},
		{Text: "func RenderLoginPage() { show login form with session token }", Source: "web/views.go:1"},
	}
}

func TestGenerate_AbstainsOnEmptyCorpus(t *testing.T) {
	client := &countingLLM{answer: "should never be called"}
	o, name := newOrchestrator(t, nil, client)

	result, err := o.Generate(context.Background(), name, "anything at all", "lookup", "auto", 0.2)
	require.NoError(t, err)

	assert.True(t, result.Abstained)
	assert.Equal(t, "Search failed: NO_RESULTS", result.Answer)
	assert.Empty(t, result.Citations)
	assert.Zero(t, client.calls, "abstain must not invoke the LLM")
}

func TestGenerate_AnswerWithCitations(t *testing.T) {
	client := &countingLLM{answer: "Login goes through HandleLogin [source:auth/login.go:1]"}
	o, name := newOrchestrator(t, answerCorpus(), client)

	result, err := o.Generate(context.Background(), name, "login session", "lookup", "auto", 0.2)
	require.NoError(t, err)

	assert.False(t, result.Abstained)
	assert.False(t, result.Cached)
	assert.Equal(t, client.answer, result.Answer)
	assert.NotEmpty(t, result.Citations)
	assert.LessOrEqual(t, len(result.Citations), 5)
}

func TestGenerate_SecondCallHitsCache(t *testing.T) {
	client := &countingLLM{answer: "cached answer body"}
	o, name := newOrchestrator(t, answerCorpus(), client)

	first, err := o.Generate(context.Background(), name, "login session", "lookup", "auto", 0.2)
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := o.Generate(context.Background(), name, "login session", "lookup", "auto", 0.2)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.Citations, second.Citations)
	assert.Equal(t, 1, client.calls, "cache hit must not invoke the LLM")
}

func TestGenerate_EmptyQueryRejected(t *testing.T) {
	o, name := newOrchestrator(t, answerCorpus(), &countingLLM{})

	_, err := o.Generate(context.Background(), name, "   ", "lookup", "auto", 0.2)
	assert.Error(t, err)
}

func TestGenerate_ProviderFailureSurfaces(t *testing.T) {
	client := &countingLLM{fail: true}
	o, name := newOrchestrator(t, answerCorpus(), client)

	_, err := o.Generate(context.Background(), name, "login session", "lookup", "auto", 0.2)
	assert.Error(t, err)
}

func TestAccumulated_SectionedAnswer(t *testing.T) {
	client := &countingLLM{answer: "## Login\ncovered\n## Sessions\ncovered"}
	o, name := newOrchestrator(t, answerCorpus(), client)

	result, err := o.Accumulated(context.Background(), name, "explain auth",
		[]string{"HandleLogin flow", "session token storage"}, 3, "reason-large", 0.2)
	require.NoError(t, err)

	assert.False(t, result.Abstained)
	assert.Equal(t, client.answer, result.Answer)
	assert.Equal(t, []string{"HandleLogin flow", "session token storage"}, result.SubQueries)
	assert.Len(t, result.Metadata, 2)
	assert.NotZero(t, result.EvidenceCount)
	assert.LessOrEqual(t, result.EvidenceCount, 12)
}

func TestAccumulated_AbstainsOnEmptyCorpus(t *testing.T) {
	client := &countingLLM{}
	o, name := newOrchestrator(t, nil, client)

	result, err := o.Accumulated(context.Background(), name, "explain auth",
		[]string{"aspect one", "aspect two"}, 3, "", 0.2)
	require.NoError(t, err)

	assert.True(t, result.Abstained)
	assert.Contains(t, result.Answer, "Search failed: ")
	assert.Zero(t, client.calls)
}

func TestBuildMessages_EvidenceLayout(t *testing.T) {
	hits := []*store.Hit{
		{Source: "a.go:1", Text: "alpha", Round: 1},
		{Source: "b.go:1", Text: "beta", Round: 2},
	}

	messages := buildMessages(llm.AccumulatedSystemPrompt, "the query", hits, true)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[1].Content, "# Query\nthe query")
	assert.Contains(t, messages[1].Content, "[a.go:1] (round 1)")
	assert.Contains(t, messages[1].Content, "[b.go:1] (round 2)")
}
