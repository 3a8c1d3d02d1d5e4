package mathx

// LambdaBounds configures the adaptive-lambda step function's range.
type LambdaBounds struct {
	Min float64
	Max float64
}

// DefaultLambdaBounds matches the defaults used by the retrieval pipeline's
// DISTILL phase.
var DefaultLambdaBounds = LambdaBounds{Min: 0.5, Max: 0.9}

// AdaptiveLambda computes the MMR trade-off parameter from a score-sorted
// (descending) list of relevance scores:
//
//	gap = top - mean
//	gap > 0.3  -> Max
//	gap > 0.2  -> (Min+Max)/2 + 0.05
//	gap > 0.1  -> (Min+Max)/2
//	otherwise  -> Min
//
// Empty input returns the midpoint (Min+Max)/2.
func AdaptiveLambda(sortedScores []float64, b LambdaBounds) float64 {
	mid := (b.Min + b.Max) / 2
	if len(sortedScores) == 0 {
		return mid
	}
	top := sortedScores[0]
	mean := meanOf(sortedScores)
	gap := top - mean
	switch {
	case gap > 0.3:
		return b.Max
	case gap > 0.2:
		return mid + 0.05
	case gap > 0.1:
		return mid
	default:
		return b.Min
	}
}

// MMRCandidate is one item eligible for maximal-marginal-relevance
// selection: a relevance score and an optional embedding used for the
// diversity term. Candidates with a nil/empty embedding contribute 0
// similarity to already-selected items.
type MMRCandidate struct {
	ID        string
	Relevance float64
	Embedding []float32
}

// MMRRerank selects up to k items from a relevance-sorted candidate list
// using the standard maximal-marginal-relevance objective:
//
//	lambda*relevance(c) - (1-lambda)*max_sim(c, selected)
//
// Fewer than k items are returned when the candidate list is shorter.
// Input order is NOT assumed sorted by this function: every remaining
// candidate is scored on each pass, so the first pick is the
// highest-relevance candidate wherever it sits, and input order only
// decides ties (the earlier candidate wins).
func MMRRerank(candidates []MMRCandidate, lambda float64, k int) []MMRCandidate {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}
	remaining := make([]MMRCandidate, len(candidates))
	copy(remaining, candidates)
	selected := make([]MMRCandidate, 0, k)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0
		for i, cand := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				sim := Cosine(cand.Embedding, s.Embedding)
				if sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*cand.Relevance - (1-lambda)*maxSim
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}
