package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 0.5, cfg.Search.BM25Weight)
	assert.Equal(t, 0.5, cfg.Search.VectorWeight)
	assert.Equal(t, "sqlite", cfg.Search.BM25Backend)
	assert.Equal(t, 2, cfg.Search.PerFileLimit)

	assert.Equal(t, 50, cfg.Chunking.CodeWindow)
	assert.Equal(t, 10, cfg.Chunking.CodeOverlap)
	assert.Equal(t, 256, cfg.Chunking.DocWindow)
	assert.Equal(t, 32, cfg.Chunking.DocOverlap)
	assert.Equal(t, int64(1<<20), cfg.Chunking.MaxFileSize)

	assert.Equal(t, 10, cfg.Embeddings.BatchSize)
	assert.Equal(t, 0.95, cfg.Cache.SemanticThreshold)
	assert.Equal(t, float64(7200), cfg.Cache.AnswerTTL.Seconds())

	// Embedded routing table is wired in.
	require.NotEmpty(t, cfg.Models.Routes)
	assert.Contains(t, cfg.Models.Routes, "general")
	assert.Contains(t, cfg.Models.Routes, "ultra-long-context")
	assert.Equal(t, 200_000, cfg.Models.Thresholds.SmallMaxTokens)
	assert.Equal(t, 1_000_000, cfg.Models.Thresholds.LongContextMaxTokens)
	assert.NotEmpty(t, cfg.Models.Floors)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvDebug, "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.True(t, cfg.Debug)
}

func TestLoad_ModelsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvDebug, "")

	override := `
providers:
  custom:
    base_url: http://localhost:9999/v1
    api_key_env: CUSTOM_KEY
    model_id: custom-model
routes:
  general:
    model: custom
    max_output_tokens: 1234
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.yaml"), []byte(override), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Models.Routes["general"].Model)
	assert.Equal(t, 1234, cfg.Models.Routes["general"].MaxOutputTokens)
}

func TestLoad_InvalidModelsOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.yaml"), []byte("{broken yaml"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())

	cfg.Embeddings.Dimensions = 0
	assert.Error(t, cfg.Validate())

	cfg = New()
	delete(cfg.Models.Routes, "general")
	assert.Error(t, cfg.Validate())

	cfg = New()
	cfg.DataDir = ""
	assert.Error(t, cfg.Validate())
}
