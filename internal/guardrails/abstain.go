// Package guardrails gates retrieval quality before LLM generation.
package guardrails

import (
	"log/slog"

	"github.com/zoonderkins/augment-lite/internal/store"
)

// Abstain reason codes. Token-compact: these go back to the LLM verbatim,
// while detailed diagnostics go to the log.
const (
	ReasonNoResults           = "NO_RESULTS"
	ReasonInsufficientResults = "INSUFFICIENT_RESULTS"
	ReasonLowRelevance        = "LOW_RELEVANCE"
	ReasonLowDiversity        = "LOW_DIVERSITY"
	ReasonLowQuality          = "LOW_QUALITY"
	ReasonInsufficientQuality = "INSUFFICIENT_QUALITY"
)

// Thresholds configure the abstain checks. Zero values select the defaults.
type Thresholds struct {
	MinHits      int     // minimum result count (default 1)
	MinScore     float64 // minimum best score (default 0.1)
	MinDiversity int     // minimum distinct hit sources (default 1)
	MinAvgScore  float64 // minimum mean score (default 0.05)
}

func (t Thresholds) withDefaults() Thresholds {
	if t.MinHits <= 0 {
		t.MinHits = 1
	}
	if t.MinScore <= 0 {
		t.MinScore = 0.1
	}
	if t.MinDiversity <= 0 {
		t.MinDiversity = 1
	}
	if t.MinAvgScore <= 0 {
		t.MinAvgScore = 0.05
	}
	return t
}

// ShouldAbstain reports whether the evidence is too weak to invoke the LLM.
func ShouldAbstain(hits []*store.Hit, t Thresholds) bool {
	return AbstainReason(hits, t) != ""
}

// AbstainReason returns the failing check's code, or "" when the evidence
// passes. Checks run in order: count, best score, diversity, mean score.
func AbstainReason(hits []*store.Hit, t Thresholds) string {
	t = t.withDefaults()

	if len(hits) == 0 {
		slog.Info("abstain", slog.String("reason", "no relevant code found"))
		return ReasonNoResults
	}
	if len(hits) < t.MinHits {
		slog.Info("abstain",
			slog.Int("found", len(hits)),
			slog.Int("required", t.MinHits))
		return ReasonInsufficientResults
	}

	maxScore := 0.0
	sum := 0.0
	sources := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
		sum += h.Score
		sources[h.Source] = struct{}{}
	}

	if maxScore < t.MinScore {
		slog.Info("abstain",
			slog.Float64("max_score", maxScore),
			slog.Float64("threshold", t.MinScore))
		return ReasonLowRelevance
	}
	if len(sources) < t.MinDiversity {
		slog.Info("abstain",
			slog.Int("unique_sources", len(sources)),
			slog.Int("required", t.MinDiversity))
		return ReasonLowDiversity
	}
	if avg := sum / float64(len(hits)); avg < t.MinAvgScore {
		slog.Info("abstain",
			slog.Float64("avg_score", avg),
			slog.Float64("threshold", t.MinAvgScore))
		return ReasonLowQuality
	}

	return ""
}

// SuggestImprovements logs query improvement hints. Suggestions never travel
// back to the caller; they would cost tokens without changing behavior.
func SuggestImprovements(query string, hits []*store.Hit) {
	var suggestions []string

	if len(query) < 10 {
		suggestions = append(suggestions, "query too short, provide more context")
	}
	if len(hits) > 2 {
		sources := make(map[string]struct{}, len(hits))
		sum := 0.0
		for _, h := range hits {
			sources[h.Source] = struct{}{}
			sum += h.Score
		}
		if sum/float64(len(hits)) < 0.2 {
			suggestions = append(suggestions, "low keyword match, try synonyms or related terms")
		}
		if len(sources) < 2 {
			suggestions = append(suggestions, "results concentrated in few files, name specific functions or modules")
		}
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, "use actual file, function, or class names from the codebase")
	}

	for _, s := range suggestions {
		slog.Info("query_suggestion", slog.String("suggestion", s))
	}
}
