package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "казки")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "казки")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimensions)
	assert.Equal(t, a, b)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockEmbedder_EmbedTextsUsesTextFunc(t *testing.T) {
	m := NewMockEmbedder()
	m.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		if text == "bad" {
			return nil, errors.New("boom")
		}
		return []float32{1, 0}, nil
	}

	vectors, err := m.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {1, 0}}, vectors)

	_, err = m.EmbedTexts(context.Background(), []string{"a", "bad"})
	assert.Error(t, err)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestMockProvider_Close(t *testing.T) {
	p := NewMockProvider()
	assert.NotNil(t, p.Embedder())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
