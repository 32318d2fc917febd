package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// FallbackEmbedder prefers a remote backend and falls back to the local one
// per batch, so a transient API failure degrades a single batch rather than
// the whole build.
type FallbackEmbedder struct {
	remote    Embedder
	local     Embedder
	batchSize int
	dims      int
}

var _ Embedder = (*FallbackEmbedder)(nil)

// NewFromConfig builds the embedder stack described by the configuration:
// remote-with-local-fallback when credentials are present, local-only
// otherwise.
func NewFromConfig(cfg config.EmbeddingsConfig) (Embedder, error) {
	local, err := NewOllamaEmbedder(OllamaConfig{
		Host:       cfg.OllamaHost,
		Model:      cfg.OllamaModel,
		Dimensions: cfg.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("local embedder: %w", err)
	}

	remoteCfg := OpenAIConfig{
		BaseURL:    cfg.BaseURL,
		APIKeyEnv:  cfg.APIKeyEnv,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
	}

	if cfg.Provider == "ollama" || !remoteCfg.HasCredentials() {
		slog.Debug("embedder_local_only",
			slog.String("model", cfg.OllamaModel),
			slog.Int("dimensions", cfg.Dimensions))
		return NewBatched(local, cfg.BatchSize, cfg.Dimensions), nil
	}

	remote, err := NewOpenAIEmbedder(remoteCfg)
	if err != nil {
		return nil, fmt.Errorf("remote embedder: %w", err)
	}

	return &FallbackEmbedder{
		remote:    remote,
		local:     local,
		batchSize: normalizeBatchSize(cfg.BatchSize),
		dims:      cfg.Dimensions,
	}, nil
}

func normalizeBatchSize(n int) int {
	if n <= 0 {
		return DefaultBatchSize
	}
	return n
}

// Embed generates an embedding for a single text.
func (f *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch splits texts into batches, embedding each remotely and falling
// back to the local backend for batches that fail. Every returned vector is
// checked against the configured dimension; a mismatch is reported so index
// builds can abort before writing a mis-sized index.
func (f *FallbackEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += f.batchSize {
		end := start + f.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vecs, err := f.remote.EmbedBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("remote_embedding_failed_using_local",
				slog.Int("batch_start", start),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			vecs, err = f.local.EmbedBatch(ctx, batch)
			if err != nil {
				return nil, fmt.Errorf("embedding batch %d: remote and local failed: %w", start/f.batchSize, err)
			}
		}

		for _, v := range vecs {
			if len(v) != f.dims {
				slog.Warn("embedding_dimension_mismatch",
					slog.Int("expected", f.dims),
					slog.Int("got", len(v)))
				return nil, store.ErrDimensionMismatch{Expected: f.dims, Got: len(v)}
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (f *FallbackEmbedder) Dimensions() int {
	return f.dims
}

// ModelName returns the preferred (remote) model identifier.
func (f *FallbackEmbedder) ModelName() string {
	return f.remote.ModelName()
}

// BatchedEmbedder wraps a backend with batching and a dimension check,
// used when only one backend is configured.
type BatchedEmbedder struct {
	inner     Embedder
	batchSize int
	dims      int
}

var _ Embedder = (*BatchedEmbedder)(nil)

// NewBatched wraps inner with batch splitting and dimension validation.
func NewBatched(inner Embedder, batchSize, dims int) *BatchedEmbedder {
	return &BatchedEmbedder{
		inner:     inner,
		batchSize: normalizeBatchSize(batchSize),
		dims:      dims,
	}
}

func (b *BatchedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := b.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (b *BatchedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := b.inner.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, v := range vecs {
			if len(v) != b.dims {
				return nil, store.ErrDimensionMismatch{Expected: b.dims, Got: len(v)}
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (b *BatchedEmbedder) Dimensions() int {
	return b.dims
}

func (b *BatchedEmbedder) ModelName() string {
	return b.inner.ModelName()
}
