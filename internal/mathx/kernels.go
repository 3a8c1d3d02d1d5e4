// Package mathx holds the pure numeric routines shared by the retrieval
// and consolidation pipelines: similarity, distribution alignment,
// normalization, fusion weighting, rank fusion, and MMR reranking. Every
// routine here is total (no panics, no errors) and has no retries; each
// failure mode is handled by returning a defined value (zero, midpoint, or
// empty) rather than erroring.
package mathx

import "math"

// Cosine returns the cosine similarity between a and b. It returns 0 for
// empty or length-mismatched inputs. Embedding vectors produced by the
// embedding service are assumed L2-normalized, so in practice this reduces
// to a dot product, but the full formula is computed defensively.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// AlignDistribution maps raw scores to a target (mean, stddev) using a
// z-score transform: target.Mean + (s - mean(scores))*target.StdDev/std(scores).
// If the input's standard deviation is 0, every output equals target.Mean.
func AlignDistribution(scores []float64, targetMean, targetStdDev float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	mean := meanOf(scores)
	std := stdDevOf(scores, mean)
	if std == 0 {
		for i := range out {
			out[i] = targetMean
		}
		return out
	}
	for i, s := range scores {
		out[i] = targetMean + (s-mean)*targetStdDev/std
	}
	return out
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDevOf(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// MinMax normalizes scores to [0,1]. If max == min, every output is 0.5.
func MinMax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// QualityFloor zeroes out normalized scores below floor, so low-quality
// matches from one source cannot meaningfully drag a weighted average.
func QualityFloor(scores []float64, floor float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		if s < floor {
			continue
		}
		out[i] = s
	}
	return out
}

// FusionWeights computes coverage-adjusted fusion weights for two result
// sources given their base weights, observed result counts, and the
// full-weight threshold T: w_i' = w_i * min(n_i/T, 1), renormalized to sum
// to 1. If one source is empty, its counterpart receives weight 1.
func FusionWeights(baseVector, baseFulltext float64, nVector, nFulltext, fullWeightThreshold int) (wVector, wFulltext float64) {
	if nVector == 0 && nFulltext == 0 {
		return 0, 0
	}
	if nVector == 0 {
		return 0, 1
	}
	if nFulltext == 0 {
		return 1, 0
	}
	if fullWeightThreshold <= 0 {
		fullWeightThreshold = 1
	}
	cov := func(w float64, n int) float64 {
		ratio := float64(n) / float64(fullWeightThreshold)
		if ratio > 1 {
			ratio = 1
		}
		return w * ratio
	}
	wv := cov(baseVector, nVector)
	wf := cov(baseFulltext, nFulltext)
	total := wv + wf
	if total <= 0 {
		return 0.5, 0.5
	}
	return wv / total, wf / total
}

// RRF combines k ranked id lists using reciprocal-rank fusion:
// score(id) = sum over lists containing id of 1/(rank+c), rank is 1-based.
// Used only by the hybrid-search primitive exposed to consolidation's
// entity search.
func RRF(rankedLists [][]string, c float64) map[string]float64 {
	if c <= 0 {
		c = 60
	}
	out := make(map[string]float64)
	for _, list := range rankedLists {
		for i, id := range list {
			out[id] += 1.0 / (float64(i+1) + c)
		}
	}
	return out
}
