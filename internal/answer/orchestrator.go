// Package answer binds retrieval, guardrails, routing, caching, and the LLM
// call into answer generation.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zoonderkins/augment-lite/internal/cache"
	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/errors"
	"github.com/zoonderkins/augment-lite/internal/guardrails"
	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/router"
	"github.com/zoonderkins/augment-lite/internal/search"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// evidence sizes per mode.
const (
	singleShotEvidence  = 5
	accumulatedEvidence = 12
	retrievalPool       = 8
)

// Orchestrator executes answer.generate and answer.accumulated.
type Orchestrator struct {
	cfg    *config.Config
	engine *search.Engine
	router *router.Router
	caches *cache.Manager
	llm    llm.Client
}

// New creates an orchestrator.
func New(cfg *config.Config, engine *search.Engine, rt *router.Router, caches *cache.Manager, client llm.Client) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		engine: engine,
		router: rt,
		caches: caches,
		llm:    client,
	}
}

// Result is the orchestrator's answer payload.
type Result struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
	Cached    bool     `json:"cached"`
	Abstained bool     `json:"abstained,omitempty"`

	// Accumulated-mode extras.
	SubQueries    []string                `json:"sub_queries,omitempty"`
	Metadata      []search.SubQueryResult `json:"search_metadata,omitempty"`
	EvidenceCount int                     `json:"evidence_count,omitempty"`
}

// payload is what lands in the cache: the answer and its citations.
type payload struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// Generate runs the single-query answer pipeline: retrieve (iterative when
// the query warrants it), gate on evidence quality, route, consult the cache,
// call the model, store, return.
func (o *Orchestrator) Generate(ctx context.Context, projectName, query, taskType, route string, temperature float64) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errInvalidQuery()
	}
	if taskType == "" {
		taskType = "lookup"
	}
	if route == "" {
		route = "auto"
	}

	var hits []*store.Hit
	var err error
	if search.ShouldUseIterative(query, taskType) {
		hits, err = o.engine.IterativeSearch(ctx, projectName, query, search.IterativeOptions{
			KPerIteration: retrievalPool,
			UseSubagent:   true,
		})
	} else {
		hits, err = o.engine.HybridSearchWithSubagent(ctx, projectName, query, retrievalPool, true)
	}
	if err != nil {
		return nil, err
	}
	if len(hits) > singleShotEvidence {
		hits = hits[:singleShotEvidence]
	}

	if reason := guardrails.AbstainReason(hits, guardrails.Thresholds{MinDiversity: 2}); reason != "" {
		guardrails.SuggestImprovements(query, hits)
		return &Result{
			Answer:    "Search failed: " + reason,
			Citations: []string{},
			Abstained: true,
		}, nil
	}

	messages := buildMessages(llm.AnswerSystemPrompt, query, hits, false)
	totalTokens := llm.EstimateMessageTokens(messages)
	routeCfg := o.router.GetRouteConfig(taskType, totalTokens, route)

	key := cache.MakeKey(routeCfg.Model, messages, map[string]any{
		"temperature": temperature,
		"task":        taskType,
		"route":       route,
		"token_est":   totalTokens,
	}, cache.EvidenceFingerprints(hits))

	var cached payload
	if ok, _ := o.caches.Exact.Get(projectName, key, &cached); ok {
		return &Result{Answer: cached.Answer, Citations: cached.Citations, Cached: true}, nil
	}

	answer, err := o.llm.Chat(ctx, routeCfg.Model, messages, llm.ChatOptions{
		Temperature:     temperature,
		MaxOutputTokens: routeCfg.MaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}

	p := payload{Answer: answer, Citations: citations(hits)}
	if err := o.caches.Exact.Set(projectName, key, p, o.cfg.Cache.AnswerTTL); err != nil {
		slog.Warn("answer_cache_store_failed", slog.String("error", err.Error()))
	}

	return &Result{Answer: p.Answer, Citations: p.Citations}, nil
}

// Accumulated runs the multi-aspect pipeline: decompose, retrieve per aspect,
// merge evidence, then answer with a sectioned prompt over the top 12 hits.
func (o *Orchestrator) Accumulated(ctx context.Context, projectName, query string, subQueries []string, kPerQuery int, route string, temperature float64) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errInvalidQuery()
	}
	if route == "" {
		route = router.RouteReasonLarge
	}

	acc := o.engine.AccumulatedSearch(ctx, projectName, query, subQueries, kPerQuery, true)

	if reason := guardrails.AbstainReason(acc.Hits, guardrails.Thresholds{MinDiversity: 2}); reason != "" {
		return &Result{
			Answer:    "Search failed: " + reason,
			Citations: []string{},
			Abstained: true,
			Metadata:  acc.Metadata,
		}, nil
	}

	hits := acc.Hits
	if len(hits) > accumulatedEvidence {
		hits = hits[:accumulatedEvidence]
	}

	messages := buildMessages(llm.AccumulatedSystemPrompt, query, hits, true)
	totalTokens := llm.EstimateMessageTokens(messages)
	routeCfg := o.router.GetRouteConfig("reason", totalTokens, route)

	key := cache.MakeKey(routeCfg.Model, messages, map[string]any{
		"temperature": temperature,
		"accumulated": true,
	}, cache.EvidenceFingerprints(hits))

	var cached payload
	if ok, _ := o.caches.Exact.Get(projectName, key, &cached); ok {
		return &Result{
			Answer:     cached.Answer,
			Citations:  cached.Citations,
			Cached:     true,
			SubQueries: acc.SubQueries,
			Metadata:   acc.Metadata,
		}, nil
	}

	answer, err := o.llm.Chat(ctx, routeCfg.Model, messages, llm.ChatOptions{
		Temperature:     temperature,
		MaxOutputTokens: routeCfg.MaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}

	p := payload{Answer: answer, Citations: citations(hits)}
	if err := o.caches.Exact.Set(projectName, key, p, o.cfg.Cache.AnswerTTL); err != nil {
		slog.Warn("answer_cache_store_failed", slog.String("error", err.Error()))
	}

	return &Result{
		Answer:        p.Answer,
		Citations:     p.Citations,
		SubQueries:    acc.SubQueries,
		Metadata:      acc.Metadata,
		EvidenceCount: len(hits),
	}, nil
}

// buildMessages assembles the system prompt plus the query/evidence block.
func buildMessages(systemPrompt, query string, hits []*store.Hit, withRounds bool) []llm.Message {
	var sb strings.Builder
	for i, h := range hits {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if withRounds && h.Round > 0 {
			fmt.Fprintf(&sb, "[%s] (round %d)\n%s", h.Source, h.Round, h.Text)
		} else {
			fmt.Fprintf(&sb, "[%s]\n%s", h.Source, h.Text)
		}
	}

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("# Query\n%s\n\n# Evidence\n%s", query, sb.String())},
	}
}

func errInvalidQuery() error {
	return errors.New(errors.CodeInvalidInput, "query must not be empty")
}

func citations(hits []*store.Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Source)
	}
	return out
}
