package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	inner Embedder
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}
func (c *countingEmbedder) Dimension() int { return c.inner.Dimension() }

func TestCachedEmbedderSkipsInnerCallOnRepeatedText(t *testing.T) {
	counting := &countingEmbedder{inner: NewStaticEmbedder(8)}
	cached := NewCachedEmbedder(counting, 10)

	v1, err := cached.Embed(context.Background(), "func Compute(x int) int")
	require.NoError(t, err)
	v2, err := cached.Embed(context.Background(), "func Compute(x int) int")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, counting.calls, "second Embed call for the same text must hit the cache")
}

func TestCachedEmbedderDistinguishesDifferentText(t *testing.T) {
	counting := &countingEmbedder{inner: NewStaticEmbedder(8)}
	cached := NewCachedEmbedder(counting, 10)

	_, err := cached.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "beta")
	require.NoError(t, err)

	assert.Equal(t, 2, counting.calls)
}
