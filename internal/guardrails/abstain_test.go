package guardrails

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zoonderkins/augment-lite/internal/store"
)

func hits(scores []float64, sources []string) []*store.Hit {
	out := make([]*store.Hit, len(scores))
	for i := range scores {
		out[i] = &store.Hit{Score: scores[i], Source: sources[i], Text: "t"}
	}
	return out
}

func TestAbstainReason_NoResults(t *testing.T) {
	assert.Equal(t, ReasonNoResults, AbstainReason(nil, Thresholds{}))
	assert.Equal(t, ReasonNoResults, AbstainReason([]*store.Hit{}, Thresholds{}))
}

func TestAbstainReason_InsufficientResults(t *testing.T) {
	h := hits([]float64{0.9}, []string{"a.go:1"})
	assert.Equal(t, ReasonInsufficientResults, AbstainReason(h, Thresholds{MinHits: 3}))
}

func TestAbstainReason_LowRelevance(t *testing.T) {
	h := hits([]float64{0.05, 0.02}, []string{"a.go:1", "b.go:1"})
	assert.Equal(t, ReasonLowRelevance, AbstainReason(h, Thresholds{}))
}

func TestAbstainReason_LowDiversity(t *testing.T) {
	h := hits([]float64{0.9, 0.8}, []string{"a.go:1", "a.go:1"})
	assert.Equal(t, ReasonLowDiversity, AbstainReason(h, Thresholds{MinDiversity: 2}))
}

func TestAbstainReason_LowQuality(t *testing.T) {
	// Best score passes, mean does not.
	h := hits(
		[]float64{0.5, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001},
		[]string{"a:1", "b:1", "c:1", "d:1", "e:1", "f:1", "g:1", "h:1", "i:1", "j:1", "k:1", "l:1"})
	assert.Equal(t, ReasonLowQuality, AbstainReason(h, Thresholds{MinAvgScore: 0.05}))
}

func TestAbstainReason_PassingEvidence(t *testing.T) {
	h := hits([]float64{0.9, 0.7, 0.6}, []string{"a.go:1", "b.go:1", "c.go:1"})
	assert.Equal(t, "", AbstainReason(h, Thresholds{MinDiversity: 2}))
	assert.False(t, ShouldAbstain(h, Thresholds{MinDiversity: 2}))
}

func TestAbstainReason_CheckOrder(t *testing.T) {
	// A pool failing several checks reports the first failing one.
	h := hits([]float64{0.01}, []string{"a.go:1"})
	assert.Equal(t, ReasonInsufficientResults,
		AbstainReason(h, Thresholds{MinHits: 2, MinScore: 0.5, MinDiversity: 3}))
}
