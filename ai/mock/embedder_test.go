package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIsDeterministicUnit(t *testing.T) {
	a := Vector("influenza", 32)
	b := Vector("influenza", 32)
	c := Vector("flu", 32)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedderWithDimensions(8)

	vectors, err := m.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 8)

	v, err := m.EmbedText(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, vectors[0], v)

	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, 3, m.TextCount())

	boom := errors.New("boom")
	m.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) { return nil, boom }
	_, err = m.EmbedTexts(ctx, []string{"a"})
	assert.ErrorIs(t, err, boom)

	m.Reset()
	assert.Zero(t, m.CallCount())
	_, err = m.EmbedTexts(ctx, []string{"a"})
	assert.NoError(t, err)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	assert.Equal(t, DefaultDimensions, p.Embedder().Dimensions())
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
