package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistill_OrdersBySelectionNotRawScore(t *testing.T) {
	land := []candidate{
		{id: "a", score: 0.9, source: SourceVector, embedding: []float32{1, 0}},
		{id: "b", score: 0.85, source: SourceVector, embedding: []float32{1, 0}},
		{id: "c", score: 0.2, source: SourceFulltext, embedding: []float32{0, 1}},
	}
	cfg := testConfig()
	cfg.DistillTopK = 2

	out := distill(land, nil, cfg)
	require.Len(t, out, 2)
	// Fused scores are a=1, b≈0.93, c=0, so the adaptive lambda is 0.9 and
	// b still outscores the diverse c for the second slot; the top pick is
	// a or b.
	assert.Contains(t, []string{"a", "b"}, out[0].id)
}

func TestDistill_EmptyInputReturnsEmpty(t *testing.T) {
	out := distill(nil, nil, testConfig())
	assert.Empty(t, out)
}

func TestDistill_RespectsTopK(t *testing.T) {
	land := make([]candidate, 5)
	for i := range land {
		land[i] = candidate{id: string(rune('a' + i)), score: float64(i) / 10}
	}
	cfg := testConfig()
	cfg.DistillTopK = 3
	out := distill(land, nil, cfg)
	assert.Len(t, out, 3)
}
