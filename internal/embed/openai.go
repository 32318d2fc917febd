package embed

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEmbedder calls an OpenAI-style /embeddings endpoint.
// The endpoint and credentials come from configuration; any server speaking
// the OpenAI embeddings API works.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
	dims   int
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// OpenAIConfig configures the remote embedding backend.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	// Dimensions is the expected embedding width; responses with a different
	// width fail with ErrDimensionMismatch semantics at the store layer.
	Dimensions int
}

// HasCredentials reports whether the configured API key is present in the
// environment, which gates remote-preferred mode.
func (c OpenAIConfig) HasCredentials() bool {
	return c.APIKeyEnv != "" && os.Getenv(c.APIKeyEnv) != ""
}

// NewOpenAIEmbedder creates a remote embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}

	opts := []option.RequestOption{
		option.WithRequestTimeout(DefaultTimeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if key := os.Getenv(cfg.APIKeyEnv); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		dims:   cfg.Dimensions,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds up to one batch of texts in a single request.
// Callers control batching; this method sends everything it is given.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response size mismatch: sent %d, got %d",
			len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, fmt.Errorf("embeddings response index out of range: %d", idx)
		}
		vec := make([]float32, len(item.Embedding))
		for i, x := range item.Embedding {
			vec[i] = float32(x)
		}
		vectors[idx] = Normalize(vec)
	}
	return vectors, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the remote model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
