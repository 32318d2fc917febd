package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// maxSubQueries caps LLM query decomposition.
const maxSubQueries = 5

// SubQueryResult records what one aspect search contributed.
type SubQueryResult struct {
	Query string `json:"query"`
	Found int    `json:"found"`
	New   int    `json:"new"`
	Error string `json:"error,omitempty"`
}

// AccumulatedResult is the merged evidence pool from multi-aspect retrieval.
type AccumulatedResult struct {
	Hits        []*store.Hit     `json:"hits"`
	TotalUnique int              `json:"total_unique"`
	SubQueries  []string         `json:"sub_queries"`
	Metadata    []SubQueryResult `json:"search_metadata"`
}

// DecomposeQuery asks the LLM for 3-5 aspect sub-queries, one per line with
// numbering stripped. Falls back to the original query alone.
func (e *Engine) DecomposeQuery(ctx context.Context, query string) []string {
	if e.llm == nil {
		return []string{query}
	}

	response, err := e.llm.Chat(ctx, e.cfg.Search.SubagentModel, llm.DecomposeMessages(query), llm.ChatOptions{
		Temperature:     0.3,
		MaxOutputTokens: 300,
	})
	if err != nil {
		slog.Warn("query_decomposition_failed", slog.String("error", err.Error()))
		return []string{query}
	}

	subQueries := ParseSubQueries(response)
	if len(subQueries) == 0 {
		return []string{query}
	}
	slog.Debug("query_decomposed", slog.Int("sub_queries", len(subQueries)))
	return subQueries
}

// ParseSubQueries splits a decomposition response into sub-queries, stripping
// list numbering and bullets.
func ParseSubQueries(response string) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 5 {
			continue
		}
		cleaned := strings.TrimLeft(line, "0123456789.)-* ")
		if cleaned == "" {
			continue
		}
		out = append(out, cleaned)
		if len(out) == maxSubQueries {
			break
		}
	}
	return out
}

// AccumulatedSearch executes each sub-query through the subagent-filtered
// retriever and merges evidence deduplicated by source, tagging every hit
// with its originating sub-query and round.
func (e *Engine) AccumulatedSearch(ctx context.Context, projectName, query string, subQueries []string, kPerQuery int, useSubagent bool) *AccumulatedResult {
	if len(subQueries) == 0 {
		subQueries = e.DecomposeQuery(ctx, query)
	}
	if kPerQuery <= 0 {
		kPerQuery = 5
	}

	result := &AccumulatedResult{SubQueries: subQueries}
	seen := make(map[string]struct{})

	for i, subQ := range subQueries {
		hits, err := e.HybridSearchWithSubagent(ctx, projectName, subQ, kPerQuery, useSubagent)
		if err != nil {
			slog.Warn("sub_query_search_failed",
				slog.String("sub_query", subQ),
				slog.String("error", err.Error()))
			result.Metadata = append(result.Metadata, SubQueryResult{Query: subQ, Error: err.Error()})
			continue
		}

		newCount := 0
		for _, h := range hits {
			if _, dup := seen[h.Source]; dup {
				continue
			}
			seen[h.Source] = struct{}{}
			h.SubQuery = subQ
			h.Round = i + 1
			result.Hits = append(result.Hits, h)
			newCount++
		}
		result.Metadata = append(result.Metadata, SubQueryResult{
			Query: subQ,
			Found: len(hits),
			New:   newCount,
		})
	}

	sort.SliceStable(result.Hits, func(i, j int) bool {
		return result.Hits[i].Score > result.Hits[j].Score
	})
	result.TotalUnique = len(result.Hits)
	return result
}
