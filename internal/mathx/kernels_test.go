package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	assert.Equal(t, 0.0, Cosine(nil, []float32{1}))
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1}))
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestAlignDistribution(t *testing.T) {
	out := AlignDistribution([]float64{1, 1, 1}, 0.5, 0.2)
	for _, v := range out {
		assert.Equal(t, 0.5, v)
	}
	out = AlignDistribution([]float64{0, 1, 2}, 1, 2)
	assert.InDelta(t, 1.0, out[1], 1e-9) // mean maps to target mean
}

func TestMinMax(t *testing.T) {
	out := MinMax([]float64{1, 2, 3})
	assert.InDelta(t, 0.0, out[0], 1e-9)
	assert.InDelta(t, 0.5, out[1], 1e-9)
	assert.InDelta(t, 1.0, out[2], 1e-9)

	out = MinMax([]float64{5, 5, 5})
	for _, v := range out {
		assert.Equal(t, 0.5, v)
	}
}

func TestFusionWeights(t *testing.T) {
	wv, wf := FusionWeights(0.7, 0.3, 0, 10, 50)
	assert.Equal(t, 0.0, wv)
	assert.Equal(t, 1.0, wf)

	wv, wf = FusionWeights(0.7, 0.3, 10, 0, 50)
	assert.Equal(t, 1.0, wv)
	assert.Equal(t, 0.0, wf)

	// Both sources below threshold shrink proportionally but preserve ratio
	wv, wf = FusionWeights(0.7, 0.3, 5, 5, 50)
	assert.InDelta(t, 0.7, wv, 1e-9)
	assert.InDelta(t, 0.3, wf, 1e-9)

	// Full coverage on both sides matches base weights.
	wv, wf = FusionWeights(0.7, 0.3, 50, 50, 50)
	assert.InDelta(t, 0.7, wv, 1e-9)
	assert.InDelta(t, 0.3, wf, 1e-9)
}

func TestQualityFloor(t *testing.T) {
	out := QualityFloor([]float64{0.9, 0.3, 0.29, 0.0}, 0.3)
	assert.Equal(t, []float64{0.9, 0.3, 0, 0}, out)
}

func TestRRF(t *testing.T) {
	lists := [][]string{{"a", "b", "c"}, {"b", "a"}}
	scores := RRF(lists, 60)
	assert.Greater(t, scores["a"], 0.0)
	assert.Greater(t, scores["b"], scores["c"])
}
