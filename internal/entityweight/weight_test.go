package entityweight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeights_Empty(t *testing.T) {
	out := Weights(nil, nil, []float32{1, 0}, DefaultSignalWeights)
	assert.Empty(t, out)
}

func TestWeights_NormalizesToOne(t *testing.T) {
	cands := []Candidate{
		{ID: "e1", Embedding: []float32{1, 0}, Degree: 10},
		{ID: "e2", Embedding: []float32{0, 1}, Degree: 1},
	}
	seeds := []SeedMemory{
		{Embedding: []float32{1, 0}, AboutIDs: []string{"e1"}},
	}
	out := Weights(cands, seeds, []float32{1, 0}, DefaultSignalWeights)
	assert.Len(t, out, 2)
	var sum float64
	for _, v := range out {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, out["e1"], out["e2"])
}

func TestWeights_NonPositiveTotalIsEmpty(t *testing.T) {
	cands := []Candidate{{ID: "e1", Degree: 0}}
	out := Weights(cands, nil, nil, DefaultSignalWeights)
	assert.Empty(t, out)
}
