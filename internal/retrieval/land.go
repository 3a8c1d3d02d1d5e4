package retrieval

import (
	"context"

	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/mathx"
	"golang.org/x/sync/errgroup"
)

// land casts a wide net: vector and full-text search over valid Memory
// nodes, run concurrently, then fused via distribution alignment ->
// min-max -> coverage-adjusted weights -> weighted average.
func land(ctx context.Context, store graph.Search, queryText string, queryEmbedding []float32, cfg Config) ([]candidate, error) {
	var vecResults, ftResults []graph.ScoredNode

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vecResults, err = store.SearchVector(gctx, graph.LabelMemory, queryEmbedding, cfg.LandCandidates, graph.SearchOptions{ValidOnly: true})
		return err
	})
	g.Go(func() error {
		var err error
		ftResults, err = store.SearchFulltext(gctx, graph.LabelMemory, queryText, cfg.LandCandidates, graph.SearchOptions{ValidOnly: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fuse(vecResults, ftResults, cfg), nil
}

// fuse implements the shared fusion algorithm used by both LAND (vector +
// full-text) and DISTILL (LAND + EXPAND): align distributions to
// mu=0.5/sigma=0.2, min-max, compute coverage-adjusted weights, apply a
// quality floor, then take the weighted average per id. Ids present in
// both inputs are tagged source=multiple.
func fuse(a, b []graph.ScoredNode, cfg Config) []candidate {
	vw, fw := cfg.FusionVectorWeight, cfg.FusionFulltextWeight
	threshold := cfg.FusionThreshold

	aAligned := mathx.QualityFloor(alignAndNormalize(a), cfg.FusionQualityFloor)
	bAligned := mathx.QualityFloor(alignAndNormalize(b), cfg.FusionQualityFloor)

	wa, wb := mathx.FusionWeights(vw, fw, len(a), len(b), threshold)

	scores := make(map[string]float64, len(a)+len(b))
	seenA := make(map[string]bool, len(a))
	seenB := make(map[string]bool, len(b))
	for i, n := range a {
		scores[n.ID] = aAligned[i] * wa
		seenA[n.ID] = true
	}
	for i, n := range b {
		v := bAligned[i] * wb
		if seenA[n.ID] {
			scores[n.ID] += v
		} else {
			scores[n.ID] = v
		}
		seenB[n.ID] = true
	}

	out := make([]candidate, 0, len(scores))
	for id, score := range scores {
		src := SourceVector
		switch {
		case seenA[id] && seenB[id]:
			src = SourceMultiple
		case seenB[id]:
			src = SourceFulltext
		}
		out = append(out, candidate{id: id, score: score, source: src})
	}
	return out
}

func alignAndNormalize(nodes []graph.ScoredNode) []float64 {
	raw := make([]float64, len(nodes))
	for i, n := range nodes {
		raw[i] = n.Score
	}
	aligned := mathx.AlignDistribution(raw, 0.5, 0.2)
	return mathx.MinMax(aligned)
}
