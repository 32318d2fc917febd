// Package embed produces L2-normalized embeddings for text, preferring a
// remote OpenAI-style API with a local Ollama fallback per batch.
package embed

import (
	"context"
	"math"
	"time"
)

// DefaultBatchSize is texts per remote embedding request.
const DefaultBatchSize = 10

// DefaultTimeout is the per-request HTTP timeout.
const DefaultTimeout = 90 * time.Second

// Embedder generates embeddings for text.
// All implementations return unit-length vectors so downstream cosine
// similarity reduces to inner product.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier, for diagnostics.
	ModelName() string
}

// Normalize scales v to unit length in place and returns it.
// Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
