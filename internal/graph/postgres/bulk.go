package postgres

import (
	"context"

	"github.com/aziham/memento/internal/graph"
)

func (s *Store) AboutEntityNames(ctx context.Context, memoryIDs []string) (map[string][]graph.EntityRef, error) {
	out := make(map[string][]graph.EntityRef, len(memoryIDs))
	if len(memoryIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT a.memory_id, a.entity_id,
			CASE WHEN a.entity_id = $2 THEN $3 ELSE e.name END AS name
		FROM edges_about a
		LEFT JOIN entities e ON e.id = a.entity_id
		WHERE a.memory_id = ANY($1)
	`, memoryIDs, graph.UserID, "USER")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var memID, entID, name string
		if err := rows.Scan(&memID, &entID, &name); err != nil {
			return nil, err
		}
		out[memID] = append(out[memID], graph.EntityRef{ID: entID, Name: name})
	}
	return out, rows.Err()
}

func (s *Store) ProvenanceNotes(ctx context.Context, memoryIDs []string) (map[string]graph.Note, error) {
	out := make(map[string]graph.Note, len(memoryIDs))
	if len(memoryIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT ef.memory_id, n.id, n.content, n.timestamp
		FROM edges_extracted_from ef
		JOIN notes n ON n.id = ef.note_id
		WHERE ef.memory_id = ANY($1)
	`, memoryIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var memID string
		var n graph.Note
		if err := rows.Scan(&memID, &n.ID, &n.Content, &n.Timestamp); err != nil {
			return nil, err
		}
		out[memID] = n
	}
	return out, rows.Err()
}

func (s *Store) EntityDetailsByName(ctx context.Context, names []string) (map[string]graph.EntityDetail, error) {
	out := make(map[string]graph.EntityDetail, len(names))
	if len(names) == 0 {
		return out, nil
	}
	remaining := make([]string, 0, len(names))
	for _, n := range names {
		if n == "USER" {
			u, ok, err := getUser(ctx, s.pool)
			if err != nil {
				return nil, err
			}
			if ok {
				out["USER"] = graph.EntityDetail{
					Entity: graph.Entity{
						ID: u.ID, Name: u.Name, Type: u.Type, Description: u.Description,
						Embedding: u.Embedding, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
					},
					IsUser: true,
				}
			}
			continue
		}
		remaining = append(remaining, n)
	}
	if len(remaining) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, description, embedding, is_well_known, created_at, updated_at
		FROM entities WHERE name = ANY($1)
	`, remaining)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e graph.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Description, &e.Embedding, &e.IsWellKnown, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out[e.Name] = graph.EntityDetail{Entity: e, IsUser: false}
	}
	return out, rows.Err()
}

// InvalidationChain walks edges_invalidates up to maxDepth hops per seed
// memory id. Depth 2 is the only value any caller passes today, but the
// walk is written generically.
func (s *Store) InvalidationChain(ctx context.Context, memoryIDs []string, maxDepth int) (map[string]graph.InvalidationNode, error) {
	out := make(map[string]graph.InvalidationNode, len(memoryIDs))
	for _, id := range memoryIDs {
		mem, ok, err := getMemory(ctx, s.pool, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		node, err := s.invalidationSubtree(ctx, mem, "", maxDepth)
		if err != nil {
			return nil, err
		}
		out[id] = node
	}
	return out, nil
}

func (s *Store) invalidationSubtree(ctx context.Context, mem graph.Memory, reason string, depthRemaining int) (graph.InvalidationNode, error) {
	node := graph.InvalidationNode{Memory: mem, Reason: reason}
	if depthRemaining <= 0 {
		return node, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT target_id, reason FROM edges_invalidates WHERE source_id = $1
	`, mem.ID)
	if err != nil {
		return node, err
	}
	type child struct {
		targetID string
		reason   string
	}
	var children []child
	for rows.Next() {
		var c child
		if err := rows.Scan(&c.targetID, &c.reason); err != nil {
			rows.Close()
			return node, err
		}
		children = append(children, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return node, err
	}
	for _, c := range children {
		childMem, ok, err := getMemory(ctx, s.pool, c.targetID)
		if err != nil {
			return node, err
		}
		if !ok {
			continue
		}
		sub, err := s.invalidationSubtree(ctx, childMem, c.reason, depthRemaining-1)
		if err != nil {
			return node, err
		}
		node.Invalidates = append(node.Invalidates, sub)
	}
	return node, nil
}
