package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite/internal/store"
)

// fakeOpenAIServer serves /embeddings with fixed-width vectors.
// failFirst makes the first request return 500 to exercise fallback.
func fakeOpenAIServer(t *testing.T, dims int, failFirst *atomic.Bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failFirst != nil && failFirst.CompareAndSwap(true, false) {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}

		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type item struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		resp := struct {
			Data []item `json:"data"`
		}{}
		for i := range req.Input {
			vec := make([]float64, dims)
			vec[i%dims] = 2.0 // non-unit on purpose: the client must normalize
			resp.Data = append(resp.Data, item{Index: i, Embedding: vec})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

// fakeOllamaServer serves /api/embed.
func fakeOllamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := ollamaEmbedResponse{}
		for range req.Input {
			vec := make([]float32, dims)
			vec[0] = 1
			resp.Embeddings = append(resp.Embeddings, vec)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func vecNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestOpenAIEmbedder_NormalizedOutput(t *testing.T) {
	srv := fakeOpenAIServer(t, 4, nil)
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "test-key")
	e, err := NewOpenAIEmbedder(OpenAIConfig{
		BaseURL:    srv.URL,
		APIKeyEnv:  "TEST_EMBED_KEY",
		Model:      "test-model",
		Dimensions: 4,
	})
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	for _, v := range vecs {
		assert.InDelta(t, 1.0, vecNorm(v), 1e-5)
	}
}

func TestFallback_RemoteFailureUsesLocalForBatch(t *testing.T) {
	var failFirst atomic.Bool
	failFirst.Store(true)

	remoteSrv := fakeOpenAIServer(t, 4, &failFirst)
	defer remoteSrv.Close()
	localSrv := fakeOllamaServer(t, 4)
	defer localSrv.Close()

	t.Setenv("TEST_EMBED_KEY", "test-key")
	remote, err := NewOpenAIEmbedder(OpenAIConfig{
		BaseURL: remoteSrv.URL, APIKeyEnv: "TEST_EMBED_KEY", Model: "m", Dimensions: 4,
	})
	require.NoError(t, err)
	local, err := NewOllamaEmbedder(OllamaConfig{
		Host: localSrv.URL, Model: "local-m", Dimensions: 4,
	})
	require.NoError(t, err)

	f := &FallbackEmbedder{remote: remote, local: local, batchSize: 2, dims: 4}

	// Three texts and batch size two: the failing first batch falls back to
	// the local server, the second batch goes remote.
	texts := make([]string, 3)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}
	vecs, err := f.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 4)
		assert.InDelta(t, 1.0, vecNorm(v), 1e-5)
	}
}

func TestFallback_DimensionMismatchIsFatal(t *testing.T) {
	remoteSrv := fakeOpenAIServer(t, 8, nil) // wider than configured
	defer remoteSrv.Close()
	localSrv := fakeOllamaServer(t, 8)
	defer localSrv.Close()

	t.Setenv("TEST_EMBED_KEY", "test-key")
	remote, err := NewOpenAIEmbedder(OpenAIConfig{
		BaseURL: remoteSrv.URL, APIKeyEnv: "TEST_EMBED_KEY", Model: "m", Dimensions: 4,
	})
	require.NoError(t, err)
	local, err := NewOllamaEmbedder(OllamaConfig{Host: localSrv.URL, Model: "m", Dimensions: 4})
	require.NoError(t, err)

	f := &FallbackEmbedder{remote: remote, local: local, batchSize: 10, dims: 4}

	_, err = f.EmbedBatch(context.Background(), []string{"x"})
	var dim store.ErrDimensionMismatch
	require.ErrorAs(t, err, &dim)
	assert.Equal(t, 4, dim.Expected)
	assert.Equal(t, 8, dim.Got)
}

func TestBatched_SplitsBatches(t *testing.T) {
	srv := fakeOllamaServer(t, 4)
	defer srv.Close()

	local, err := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "m", Dimensions: 4})
	require.NoError(t, err)

	b := NewBatched(local, 2, 4)
	vecs, err := b.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vecs, 5)
}

func TestEmbedBatch_Empty(t *testing.T) {
	srv := fakeOllamaServer(t, 4)
	defer srv.Close()

	local, err := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "m", Dimensions: 4})
	require.NoError(t, err)

	vecs, err := local.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
