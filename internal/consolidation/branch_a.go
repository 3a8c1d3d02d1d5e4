package consolidation

import (
	"context"
	"sort"
	"sync"

	"github.com/aziham/memento/internal/agentrunner"
	"github.com/aziham/memento/internal/agents"
	"github.com/aziham/memento/internal/embedding"
	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/retrieval"
	"github.com/aziham/memento/internal/stats"
	"golang.org/x/sync/errgroup"
)

// branchA runs the context-retrieval half of consolidation: embed the
// note, retrieve existing context, expand recall via HyDE, and merge.
// Returns the existing memories memory-resolver needs as shared context,
// ranked and truncated to cfg.ContextTopK. An empty retrieval result
// short-circuits HyDE entirely.
func branchA(ctx context.Context, store retrieval.Store, embedder embedding.Embedder, runner *agentrunner.Runner, note Input, noteEmbedding []float32, cfg Config, rcfg retrieval.Config, s *stats.Stats) ([]agents.ExistingMemoryRef, error) {
	pipeline := &retrieval.Pipeline{Store: store, Config: rcfg}
	retrieved, err := pipeline.Run(ctx, note.Content, noteEmbedding, s)
	if err != nil {
		return nil, err
	}
	if len(retrieved.Memories) == 0 {
		return nil, nil
	}

	memoryStrings := make([]string, len(retrieved.Memories))
	for i, m := range retrieved.Memories {
		memoryStrings[i] = m.Content
	}

	hyde, err := agentrunner.Run(ctx, runner, agents.Hyde, agents.HydeInput{Memories: memoryStrings}, s, agentrunner.CallOptions{Temperature: &cfg.HydeTemperature})
	if err != nil {
		return nil, err
	}

	docs := make([]string, 0, len(hyde.Semantic)+len(hyde.StateChange))
	for _, d := range hyde.Semantic {
		docs = append(docs, d.Content)
	}
	for _, d := range hyde.StateChange {
		docs = append(docs, d.Content)
	}
	if len(docs) == 0 {
		return rankExisting(retrieved.Memories, nil, cfg), nil
	}

	docEmbeddings, err := embedder.EmbedBatch(ctx, docs)
	if err != nil {
		return nil, err
	}
	if s != nil {
		s.IncEmbeddingCall()
	}

	hydeScores, err := searchHydeDocs(ctx, store, docEmbeddings, cfg)
	if err != nil {
		return nil, err
	}

	knownIDs := make(map[string]bool, len(retrieved.Memories))
	for _, m := range retrieved.Memories {
		knownIDs[m.ID] = true
	}
	hydeOnlyIDs := make([]string, 0)
	for id := range hydeScores {
		if !knownIDs[id] {
			hydeOnlyIDs = append(hydeOnlyIDs, id)
		}
	}
	hydeOnlyContent, err := fetchContent(ctx, store, hydeOnlyIDs)
	if err != nil {
		return nil, err
	}

	merged := mergeHyde(retrieved.Memories, hydeScores, hydeOnlyContent)
	return rankExisting(retrieved.Memories, merged, cfg), nil
}

// searchHydeDocs runs one vector search per HyDE document embedding,
// concurrently, and deduplicates hits by id keeping the max score.
func searchHydeDocs(ctx context.Context, store graph.Search, docEmbeddings [][]float32, cfg Config) (map[string]float64, error) {
	scores := make(map[string]float64)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, vec := range docEmbeddings {
		vec := vec
		g.Go(func() error {
			hits, err := store.SearchVector(gctx, graph.LabelMemory, vec, cfg.HydeResultsPerDoc, graph.SearchOptions{ValidOnly: true})
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, h := range hits {
				if existing, ok := scores[h.ID]; !ok || h.Score > existing {
					scores[h.ID] = h.Score
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// fetchContent batch-fetches memory content for ids not already present in
// the retrieval pass, so HyDE-only hits carry their content; ids that are
// not found are left out of the result.
func fetchContent(ctx context.Context, reader graph.Reader, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	content := make(map[string]string, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			mem, found, err := reader.GetMemoryByID(gctx, id)
			if err != nil {
				return err
			}
			if found {
				mu.Lock()
				content[id] = mem.Content
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return content, nil
}

type mergedMemory struct {
	id      string
	content string
	score   float64
}

// mergeHyde merges retrieval-pass memories with HyDE hits by id: for
// intersecting ids, take the max of the two scores; HyDE-only ids are
// added as new entries using their fetched content.
func mergeHyde(retrieved []retrieval.MemoryResult, hydeScores map[string]float64, hydeOnlyContent map[string]string) []mergedMemory {
	out := make([]mergedMemory, 0, len(retrieved)+len(hydeOnlyContent))
	for _, m := range retrieved {
		score := m.Score
		if hs, ok := hydeScores[m.ID]; ok && hs > score {
			score = hs
		}
		out = append(out, mergedMemory{id: m.ID, content: m.Content, score: score})
	}
	for id, content := range hydeOnlyContent {
		out = append(out, mergedMemory{id: id, content: content, score: hydeScores[id]})
	}
	return out
}

// rankExisting sorts merged memories by score descending and truncates to
// cfg.ContextTopK, returning the shape memory-resolver consumes.
func rankExisting(retrieved []retrieval.MemoryResult, merged []mergedMemory, cfg Config) []agents.ExistingMemoryRef {
	if merged == nil {
		merged = make([]mergedMemory, len(retrieved))
		for i, m := range retrieved {
			merged[i] = mergedMemory{id: m.ID, content: m.Content, score: m.Score}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].score > merged[j].score })
	if len(merged) > cfg.ContextTopK {
		merged = merged[:cfg.ContextTopK]
	}
	out := make([]agents.ExistingMemoryRef, len(merged))
	for i, m := range merged {
		out[i] = agents.ExistingMemoryRef{ID: m.id, Content: m.content}
	}
	return out
}
