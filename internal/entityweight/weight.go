// Package entityweight implements the multi-signal entity scoring used by
// the retrieval pipeline's ANCHOR phase to turn a set of candidate
// entities into a PPR personalization vector.
package entityweight

import (
	"math"

	"github.com/aziham/memento/internal/mathx"
)

// SignalWeights controls how the three signals are blended. The defaults
// are 0.5 semantic / 0.3 memory / 0.2 structural and must sum to 1.
type SignalWeights struct {
	Semantic   float64
	Memory     float64
	Structural float64
}

// DefaultSignalWeights is the default signal blend.
var DefaultSignalWeights = SignalWeights{Semantic: 0.5, Memory: 0.3, Structural: 0.2}

// Candidate is one entity eligible for weighting.
type Candidate struct {
	ID        string
	Embedding []float32 // optional
	Degree    int
}

// SeedMemory is a memory used to compute the memory-based signal: its
// embedding (optional) and the entity ids it is ABOUT.
type SeedMemory struct {
	Embedding []float32
	AboutIDs  []string
}

// Weights computes a normalized weight per candidate entity, suitable for
// use as a PPR personalization vector. If the blended total is <= 0, an
// empty map is returned so callers can short-circuit.
func Weights(candidates []Candidate, seeds []SeedMemory, queryEmbedding []float32, w SignalWeights) map[string]float64 {
	if len(candidates) == 0 {
		return map[string]float64{}
	}

	// memory signal: mean cosine(memory embedding, query embedding) over
	// seed memories ABOUT this entity.
	memSum := make(map[string]float64, len(candidates))
	memCount := make(map[string]int, len(candidates))
	for _, m := range seeds {
		sim := mathx.Cosine(m.Embedding, queryEmbedding)
		for _, id := range m.AboutIDs {
			memSum[id] += sim
			memCount[id]++
		}
	}

	// structural signal: log(1+degree) normalized by the max log-degree
	// in the input set.
	maxLogDeg := 0.0
	for _, c := range candidates {
		ld := math.Log1p(float64(c.Degree))
		if ld > maxLogDeg {
			maxLogDeg = ld
		}
	}

	raw := make(map[string]float64, len(candidates))
	var total float64
	for _, c := range candidates {
		semantic := 0.0
		if len(c.Embedding) > 0 && len(queryEmbedding) > 0 {
			semantic = mathx.Cosine(c.Embedding, queryEmbedding)
		}
		memory := 0.0
		if n := memCount[c.ID]; n > 0 {
			memory = memSum[c.ID] / float64(n)
		}
		structural := 0.0
		if maxLogDeg > 0 {
			structural = math.Log1p(float64(c.Degree)) / maxLogDeg
		}
		blend := w.Semantic*semantic + w.Memory*memory + w.Structural*structural
		raw[c.ID] = blend
		total += blend
	}

	if total <= 0 {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(raw))
	for id, v := range raw {
		out[id] = v / total
	}
	return out
}
