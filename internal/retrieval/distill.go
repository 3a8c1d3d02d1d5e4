package retrieval

import (
	"sort"

	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/mathx"
)

// distill fuses LAND and EXPAND candidates with the same algorithm and
// configuration as LAND, computes an adaptive MMR lambda from the fused
// scores, and selects the top cfg.DistillTopK items in MMR selection
// order.
func distill(land, expand []candidate, cfg Config) []candidate {
	fused := fuseCandidates(land, expand, cfg)
	if len(fused) == 0 {
		return nil
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].score > fused[j].score })

	sortedScores := make([]float64, len(fused))
	for i, c := range fused {
		sortedScores[i] = c.score
	}
	lambda := mathx.AdaptiveLambda(sortedScores, mathx.DefaultLambdaBounds)

	mmrCands := make([]mathx.MMRCandidate, len(fused))
	byID := make(map[string]candidate, len(fused))
	for i, c := range fused {
		mmrCands[i] = mathx.MMRCandidate{ID: c.id, Relevance: c.score, Embedding: c.embedding}
		byID[c.id] = c
	}

	selected := mathx.MMRRerank(mmrCands, lambda, cfg.DistillTopK)
	out := make([]candidate, len(selected))
	for i, s := range selected {
		out[i] = byID[s.ID]
	}
	return out
}

// fuseCandidates fuses two already-scored candidate sets (as opposed to
// land's raw graph.ScoredNode fusion). Source tagging follows the same
// multiple-if-both-present rule.
func fuseCandidates(a, b []candidate, cfg Config) []candidate {
	toNodes := func(cands []candidate) []graph.ScoredNode {
		nodes := make([]graph.ScoredNode, len(cands))
		for i, c := range cands {
			nodes[i] = graph.ScoredNode{ID: c.id, Score: c.score}
		}
		return nodes
	}
	embeddingByID := make(map[string][]float32, len(a)+len(b))
	sourceByID := make(map[string]Source, len(a)+len(b))
	for _, c := range a {
		embeddingByID[c.id] = c.embedding
		sourceByID[c.id] = c.source
	}
	for _, c := range b {
		if _, ok := embeddingByID[c.id]; !ok || len(embeddingByID[c.id]) == 0 {
			embeddingByID[c.id] = c.embedding
		}
		sourceByID[c.id] = c.source
	}

	fused := fuse(toNodes(a), toNodes(b), cfg)
	for i := range fused {
		fused[i].embedding = embeddingByID[fused[i].id]
		if fused[i].source != SourceMultiple {
			fused[i].source = sourceByID[fused[i].id]
		}
	}
	return fused
}
