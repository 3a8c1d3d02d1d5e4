package retrieval

import (
	"context"

	"github.com/aziham/memento/internal/graph"
	"golang.org/x/sync/errgroup"
)

// hydrateEmbeddings fetches each candidate's memory record (embedding,
// content, validAt) so downstream phases (ANCHOR's memory signal,
// DISTILL's MMR diversity term, TRACE's content field) have what they
// need. A candidate whose memory has since vanished keeps its zero values
// and simply contributes 0 similarity, per the MMR contract.
func hydrateEmbeddings(ctx context.Context, reader graph.Reader, cands []candidate) ([]candidate, error) {
	g, gctx := errgroup.WithContext(ctx)
	for i := range cands {
		i := i
		g.Go(func() error {
			mem, found, err := reader.GetMemoryByID(gctx, cands[i].id)
			if err != nil {
				return err
			}
			if found {
				cands[i].embedding = mem.Embedding
				cands[i].content = mem.Content
				cands[i].validAt = mem.ValidAt
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cands, nil
}
