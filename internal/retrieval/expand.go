package retrieval

import (
	"context"

	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/mathx"
)

// expand walks the graph from the ANCHOR entities via personalized
// PageRank, then applies the Semantic-PPR re-score: alpha*structural +
// (1-alpha)*cosine(memory, query), falling back to the pure structural
// score when a memory has no embedding.
func expand(ctx context.Context, store interface {
	graph.Algorithms
	graph.Reader
}, anchorWeights map[string]float64, queryEmbedding []float32, cfg Config) ([]candidate, error) {
	if len(anchorWeights) == 0 {
		return nil, nil
	}

	sourceIDs := make([]string, 0, len(anchorWeights))
	for id := range anchorWeights {
		sourceIDs = append(sourceIDs, id)
	}

	scored, err := store.PersonalizedPageRank(ctx, sourceIDs, cfg.PPRDamping, cfg.PPRIterations, cfg.LandCandidates)
	if err != nil {
		return nil, err
	}

	out := make([]candidate, len(scored))
	for i, s := range scored {
		out[i] = candidate{id: s.ID, score: s.Score, source: SourceSemPPR}
	}
	out, err = hydrateEmbeddings(ctx, store, out)
	if err != nil {
		return nil, err
	}

	alpha := cfg.SemanticPPRAlpha
	for i := range out {
		if len(out[i].embedding) == 0 {
			continue
		}
		sim := mathx.Cosine(out[i].embedding, queryEmbedding)
		out[i].score = alpha*out[i].score + (1-alpha)*sim
	}
	return out, nil
}
