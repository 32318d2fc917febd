package search

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// maxExpansionLen rejects runaway expansions; the LLM is asked for a single
// short phrasing.
const maxExpansionLen = 200

// connectives spots multi-concept queries across languages.
var connectives = regexp.MustCompile(`(?i)\b(and|or)\b|以及|和|或`)

// IterativeOptions tune multi-round retrieval.
type IterativeOptions struct {
	MaxIterations   int
	MinQualityScore float64
	MinResults      int
	KPerIteration   int
	UseSubagent     bool
}

func (e *Engine) iterativeDefaults(opts IterativeOptions) IterativeOptions {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = e.cfg.Iterative.MaxIterations
	}
	if opts.MinQualityScore <= 0 {
		opts.MinQualityScore = e.cfg.Iterative.MinQualityScore
	}
	if opts.MinResults <= 0 {
		opts.MinResults = e.cfg.Iterative.MinResults
	}
	if opts.KPerIteration <= 0 {
		opts.KPerIteration = 8
	}
	return opts
}

// IterativeSearch runs up to MaxIterations retrieval rounds, expanding the
// query between rounds with the LLM. Stops early once enough quality hits
// accumulate or expansion produces nothing new. Returns up to 2x the
// per-iteration k, best first.
func (e *Engine) IterativeSearch(ctx context.Context, projectName, query string, opts IterativeOptions) ([]*store.Hit, error) {
	opts = e.iterativeDefaults(opts)

	var all []*store.Hit
	seen := make(map[string]struct{})
	currentQuery := query

	for iteration := 0; iteration < opts.MaxIterations; iteration++ {
		hits, err := e.HybridSearchWithSubagent(ctx, projectName, currentQuery, opts.KPerIteration, opts.UseSubagent)
		if err != nil {
			if iteration == 0 {
				return nil, err
			}
			// Later rounds are best-effort refinement.
			slog.Warn("iterative_round_failed",
				slog.Int("iteration", iteration+1),
				slog.String("error", err.Error()))
			break
		}

		newHits := 0
		for _, h := range hits {
			if _, dup := seen[h.Source]; dup {
				continue
			}
			seen[h.Source] = struct{}{}
			all = append(all, h)
			newHits++
		}

		slog.Debug("iterative_round",
			slog.Int("iteration", iteration+1),
			slog.String("query", currentQuery),
			slog.Int("found", len(hits)),
			slog.Int("new", newHits))

		quality := 0
		for _, h := range all {
			if h.Score >= opts.MinQualityScore {
				quality++
			}
		}
		if quality >= opts.MinResults {
			break
		}
		if iteration == opts.MaxIterations-1 {
			break
		}

		expanded := e.expandQuery(ctx, query, all, iteration+1)
		if expanded == "" || expanded == currentQuery {
			break
		}
		currentQuery = expanded
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	return truncate(all, opts.KPerIteration*2), nil
}

// expandQuery asks the LLM for one alternative phrasing. Empty, oversize, or
// identical expansions end the loop by returning "".
func (e *Engine) expandQuery(ctx context.Context, originalQuery string, hits []*store.Hit, iteration int) string {
	if e.llm == nil {
		return ""
	}

	topSources := make([]string, 0, 5)
	for _, h := range hits {
		topSources = append(topSources, h.Source)
		if len(topSources) == 5 {
			break
		}
	}

	messages := llm.QueryExpansionMessages(originalQuery, topSources, iteration)
	response, err := e.llm.Chat(ctx, e.cfg.Search.SubagentModel, messages, llm.ChatOptions{
		Temperature:     0.3,
		MaxOutputTokens: 100,
	})
	if err != nil {
		slog.Warn("query_expansion_failed", slog.String("error", err.Error()))
		return ""
	}

	expanded := strings.TrimSpace(response)
	if expanded == "" || len(expanded) > maxExpansionLen || expanded == originalQuery {
		return ""
	}

	slog.Debug("query_expanded",
		slog.String("original", originalQuery),
		slog.String("expanded", expanded))
	return expanded
}

// ShouldUseIterative reports whether a query warrants multi-round retrieval:
// heavier task types, long queries, or multiple connective tokens.
func ShouldUseIterative(query, taskType string) bool {
	switch taskType {
	case "refactor", "reason", "implement":
		return true
	}
	if len(query) > 50 {
		return true
	}
	return len(connectives.FindAllString(query, -1)) >= 2
}
