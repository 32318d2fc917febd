package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVectors() ([][]float32, []*Chunk) {
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.9, 0.1, 0, 0},
	}
	chunks := []*Chunk{
		{Text: "alpha", Source: "a.go:1"},
		{Text: "beta", Source: "b.go:1"},
		{Text: "near alpha", Source: "c.go:1"},
	}
	return vectors, chunks
}

func TestHNSW_BuildAndSearch(t *testing.T) {
	vs, err := NewHNSWStore(4)
	require.NoError(t, err)

	vectors, chunks := unitVectors()
	require.NoError(t, vs.Build(context.Background(), vectors, chunks))
	assert.Equal(t, 3, vs.Count())

	results, err := vs.Search(context.Background(), []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a.go:1", results[0].Chunk.Source)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.Equal(t, "c.go:1", results[1].Chunk.Source)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestHNSW_DimensionMismatch(t *testing.T) {
	vs, err := NewHNSWStore(4)
	require.NoError(t, err)

	err = vs.Build(context.Background(), [][]float32{{1, 0}}, []*Chunk{{Source: "x:1"}})
	var dim ErrDimensionMismatch
	require.ErrorAs(t, err, &dim)
	assert.Equal(t, 4, dim.Expected)
	assert.Equal(t, 2, dim.Got)

	_, err = vs.Search(context.Background(), []float32{1, 0}, 1)
	require.ErrorAs(t, err, &dim)
}

func TestHNSW_EmptySearch(t *testing.T) {
	vs, err := NewHNSWStore(4)
	require.NoError(t, err)

	results, err := vs.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = vs.Search(context.Background(), []float32{1, 0, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSW_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "vec.hnsw")
	chunksPath := filepath.Join(dir, "vec.gob")

	vs, err := NewHNSWStore(4)
	require.NoError(t, err)
	vectors, chunks := unitVectors()
	require.NoError(t, vs.Build(context.Background(), vectors, chunks))
	require.NoError(t, vs.Save(indexPath, chunksPath))

	loaded, err := NewHNSWStore(4)
	require.NoError(t, err)
	require.NoError(t, loaded.Load(indexPath, chunksPath))
	assert.Equal(t, 3, loaded.Count())

	results, err := loaded.Search(context.Background(), []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.go:1", results[0].Chunk.Source)
}

func TestHNSW_LoadRejectsWrongDimension(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "vec.hnsw")
	chunksPath := filepath.Join(dir, "vec.gob")

	vs, err := NewHNSWStore(4)
	require.NoError(t, err)
	vectors, chunks := unitVectors()
	require.NoError(t, vs.Build(context.Background(), vectors, chunks))
	require.NoError(t, vs.Save(indexPath, chunksPath))

	wrong, err := NewHNSWStore(8)
	require.NoError(t, err)
	err = wrong.Load(indexPath, chunksPath)
	var dim ErrDimensionMismatch
	assert.ErrorAs(t, err, &dim)
}

func TestHNSW_NormalizesOnInsert(t *testing.T) {
	vs, err := NewHNSWStore(2)
	require.NoError(t, err)

	// Same direction, different magnitude: cosine similarity must be 1.
	require.NoError(t, vs.Build(context.Background(),
		[][]float32{{10, 0}}, []*Chunk{{Source: "big:1"}}))

	results, err := vs.Search(context.Background(), []float32{0.5, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}
