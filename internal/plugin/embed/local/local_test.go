package local

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmbedder_ModelNameAndDimension(t *testing.T) {
	e := &LocalEmbedder{}
	assert.Equal(t, "all-minilm-l6-v2", e.ModelName())
	assert.Equal(t, 384, e.Dimension())
}

func TestLocalEmbedder_EmbedTexts_IsDeterministic(t *testing.T) {
	e := &LocalEmbedder{}
	first, err := e.EmbedTexts(context.Background(), []string{"the quick brown fox"})
	require.NoError(t, err)
	second, err := e.EmbedTexts(context.Background(), []string{"the quick brown fox"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLocalEmbedder_EmbedTexts_DifferentTextsDiffer(t *testing.T) {
	e := &LocalEmbedder{}
	vectors, err := e.EmbedTexts(context.Background(), []string{"hello world", "goodbye moon"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestLocalEmbedder_EmbedTexts_VectorsAreUnitNormalized(t *testing.T) {
	e := &LocalEmbedder{}
	vectors, err := e.EmbedTexts(context.Background(), []string{"some normal sentence with several words"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)

	var sumSquares float64
	for _, v := range vectors[0] {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-4)
}

func TestLocalEmbedder_EmbedTexts_EmptyTextReturnsZeroVector(t *testing.T) {
	e := &LocalEmbedder{}
	vectors, err := e.EmbedTexts(context.Background(), []string{""})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Len(t, vectors[0], 384)
	for _, v := range vectors[0] {
		assert.Zero(t, v)
	}
}
