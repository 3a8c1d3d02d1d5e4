package postgres

import (
	"context"
	"sort"

	"github.com/aziham/memento/internal/graph"
)

// PersonalizedPageRank runs a damped, teleporting power iteration over an
// in-process adjacency snapshot seeded at sourceIDs (entity ids). Mass
// flows Entity->Memory via ABOUT and Memory->Entity the same way,
// so a walk starting at an anchor entity reaches the memories around it
// and, through them, related entities, before teleporting back to the
// seed set. Only valid (non-invalidated) memories are returned.
func (s *Store) PersonalizedPageRank(ctx context.Context, sourceIDs []string, damping float64, iterations, limit int) ([]graph.ScoredNode, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	if iterations <= 0 {
		iterations = 25
	}
	if damping <= 0 || damping >= 1 {
		damping = 0.75
	}

	adj, err := s.loadAdjacency(ctx)
	if err != nil {
		return nil, err
	}

	teleport := make(map[string]float64, len(sourceIDs))
	for _, id := range sourceIDs {
		teleport[id] = 1.0 / float64(len(sourceIDs))
	}

	rank := make(map[string]float64, len(teleport))
	for id, v := range teleport {
		rank[id] = v
	}

	for iter := 0; iter < iterations; iter++ {
		next := make(map[string]float64, len(rank))
		for id, r := range rank {
			neighbors := adj[id]
			if len(neighbors) == 0 {
				// Dangling mass is dropped; it is not returned to the teleport set.
				continue
			}
			share := damping * r / float64(len(neighbors))
			for _, nb := range neighbors {
				next[nb] += share
			}
		}
		for id, t := range teleport {
			next[id] += (1 - damping) * t
		}
		rank = next
	}

	validMemoryIDs, err := s.validMemoryIDSet(ctx, rank)
	if err != nil {
		return nil, err
	}

	scored := make([]graph.ScoredNode, 0, len(validMemoryIDs))
	for id := range validMemoryIDs {
		scored = append(scored, graph.ScoredNode{ID: id, Score: rank[id]})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// loadAdjacency builds an undirected adjacency list over entity and memory
// ids from the ABOUT edge table. MENTIONS edges (note->entity) are
// intentionally excluded from the walk: notes are not part of the PPR
// node space, only entities and memories are.
func (s *Store) loadAdjacency(ctx context.Context) (map[string][]string, error) {
	adj := make(map[string][]string)
	rows, err := s.pool.Query(ctx, `SELECT memory_id, entity_id FROM edges_about`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var memID, entID string
		if err := rows.Scan(&memID, &entID); err != nil {
			rows.Close()
			return nil, err
		}
		adj[memID] = append(adj[memID], entID)
		adj[entID] = append(adj[entID], memID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return adj, nil
}

func (s *Store) validMemoryIDSet(ctx context.Context, candidates map[string]float64) (map[string]struct{}, error) {
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM memories WHERE id = ANY($1) AND invalid_at IS NULL
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
