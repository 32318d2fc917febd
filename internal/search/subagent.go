package search

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// digits extracts integers from the model's selection response.
var digits = regexp.MustCompile(`\d+`)

// SubagentFilter re-ranks candidates with a fast LLM. When the pool already
// fits max results, or the model fails or returns nothing parseable, the
// original candidate order stands.
func (e *Engine) SubagentFilter(ctx context.Context, query string, candidates []*store.Hit, maxResults int, model string) []*store.Hit {
	if len(candidates) == 0 {
		return []*store.Hit{}
	}
	if e.llm == nil || len(candidates) <= maxResults {
		return truncate(candidates, maxResults)
	}
	if model == "" {
		model = e.cfg.Search.SubagentModel
	}

	messages := llm.SubagentFilterMessages(query, candidates, maxResults)
	response, err := e.llm.Chat(ctx, model, messages, llm.ChatOptions{
		Temperature:     0.1,
		MaxOutputTokens: 500,
	})
	if err != nil {
		slog.Warn("subagent_filter_failed_using_original_ranking",
			slog.String("error", err.Error()))
		return truncate(candidates, maxResults)
	}

	indices := parseSelection(response, len(candidates))
	if len(indices) == 0 {
		slog.Warn("subagent_filter_empty_selection",
			slog.String("response", truncateString(response, 120)))
		return truncate(candidates, maxResults)
	}

	selected := make([]*store.Hit, 0, maxResults)
	for _, idx := range indices {
		selected = append(selected, candidates[idx])
		if len(selected) == maxResults {
			break
		}
	}
	return selected
}

// HybridSearchWithSubagent retrieves a 3x candidate pool and reduces it with
// the subagent filter.
func (e *Engine) HybridSearchWithSubagent(ctx context.Context, projectName, query string, k int, useSubagent bool) ([]*store.Hit, error) {
	multiplier := 1
	if useSubagent {
		multiplier = candidateMultiplier
	}

	candidates, err := e.HybridSearch(ctx, projectName, query, Options{K: k * multiplier})
	if err != nil {
		return nil, err
	}
	if !useSubagent {
		return truncate(candidates, k), nil
	}
	return e.SubagentFilter(ctx, query, candidates, k, ""), nil
}

// parseSelection pulls integers from the response, clamps to valid range, and
// deduplicates preserving order.
func parseSelection(response string, max int) []int {
	var indices []int
	seen := make(map[int]struct{})
	for _, m := range digits.FindAllString(response, -1) {
		idx, err := strconv.Atoi(m)
		if err != nil || idx < 0 || idx >= max {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	return indices
}

func truncate(hits []*store.Hit, k int) []*store.Hit {
	if k >= 0 && len(hits) > k {
		return hits[:k]
	}
	return hits
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
