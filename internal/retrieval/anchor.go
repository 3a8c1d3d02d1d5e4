package retrieval

import (
	"context"

	"github.com/aziham/memento/internal/entityweight"
	"github.com/aziham/memento/internal/graph"
	"golang.org/x/sync/errgroup"
)

// anchor picks the entities that will seed the EXPAND phase's
// personalized-PageRank walk: entities referenced by at least
// cfg.AnchorMinMemories of the LAND candidates, weighted by a multi-signal
// blend (semantic, memory, structural) and normalized to sum to 1.
func anchor(ctx context.Context, store interface {
	graph.BulkReads
	graph.Reader
}, landCandidates []candidate, queryEmbedding []float32, cfg Config) (map[string]float64, error) {
	if len(landCandidates) == 0 {
		return map[string]float64{}, nil
	}

	ids := make([]string, len(landCandidates))
	for i, c := range landCandidates {
		ids[i] = c.id
	}
	aboutByMemory, err := store.AboutEntityNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	entityNameByID := make(map[string]string)
	for _, refs := range aboutByMemory {
		for _, ref := range refs {
			if ref.ID == graph.UserID {
				continue
			}
			counts[ref.ID]++
			entityNameByID[ref.ID] = ref.Name
		}
	}

	survivorIDs := make([]string, 0, len(counts))
	for id, n := range counts {
		if n >= cfg.AnchorMinMemories {
			survivorIDs = append(survivorIDs, id)
		}
	}
	if len(survivorIDs) == 0 {
		return map[string]float64{}, nil
	}

	candidates := make([]entityweight.Candidate, len(survivorIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range survivorIDs {
		i, id := i, id
		g.Go(func() error {
			ent, found, err := store.GetEntityByID(gctx, id)
			if err != nil {
				return err
			}
			degree, err := store.EntityDegree(gctx, id)
			if err != nil {
				return err
			}
			var embedding []float32
			if found {
				embedding = ent.Embedding
			}
			candidates[i] = entityweight.Candidate{ID: id, Embedding: embedding, Degree: degree}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seeds := make([]entityweight.SeedMemory, 0, len(landCandidates))
	for _, c := range landCandidates {
		refs := aboutByMemory[c.id]
		aboutIDs := make([]string, 0, len(refs))
		for _, ref := range refs {
			aboutIDs = append(aboutIDs, ref.ID)
		}
		seeds = append(seeds, entityweight.SeedMemory{Embedding: c.embedding, AboutIDs: aboutIDs})
	}

	return entityweight.Weights(candidates, seeds, queryEmbedding, entityweight.DefaultSignalWeights), nil
}
