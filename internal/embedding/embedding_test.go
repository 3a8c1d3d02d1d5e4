package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_UnitLength(t *testing.T) {
	v := normalize([]float32{3, 4})
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-6)
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	v := normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestContentHash_StableAndDistinct(t *testing.T) {
	a := contentHash("model-a", "hello")
	b := contentHash("model-a", "hello")
	c := contentHash("model-a", "world")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

// fakeEmbedder is an in-memory Embedder that avoids a live OpenAI
// dependency.
type fakeEmbedder struct {
	dims   int
	vector []float32
	calls  int
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func TestFakeEmbedder_SatisfiesInterface(t *testing.T) {
	var e Embedder = &fakeEmbedder{dims: 3, vector: []float32{1, 2, 3}}
	v, err := e.Embed(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, v)
}
