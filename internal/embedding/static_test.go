package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedderIsDeterministic(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "add auth middleware")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "add auth middleware")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestStaticEmbedderProducesUnitNorm(t *testing.T) {
	e := NewStaticEmbedder(32)
	v, err := e.Embed(context.Background(), "fix a bug in the ranker")
	require.NoError(t, err)

	var sumSquares float64
	for _, f := range v {
		sumSquares += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestStaticEmbedderEmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(16)
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, f := range v {
		assert.Equal(t, float32(0), f)
	}
}

func TestStaticEmbedderDistinctTextsDiffer(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()
	v1, _ := e.Embed(ctx, "rename variables")
	v2, _ := e.Embed(ctx, "fix authentication bug")
	assert.NotEqual(t, v1, v2)
}
