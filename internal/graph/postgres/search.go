package postgres

import (
	"context"
	"strings"

	"github.com/aziham/memento/internal/graph"
)

// SearchFulltext ranks Memory or Entity rows by ts_rank against a
// plainto_tsquery built from query. Memory search can additionally
// restrict to valid (non-invalidated) rows.
func (s *Store) SearchFulltext(ctx context.Context, label graph.NodeLabel, query string, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	if k <= 0 {
		k = 10
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}

	var stmt string
	switch label {
	case graph.LabelMemory:
		stmt = `SELECT id, ts_rank(ts, plainto_tsquery('simple', $1)) AS score
			FROM memories
			WHERE ts @@ plainto_tsquery('simple', $1)`
		if opts.ValidOnly {
			stmt += ` AND invalid_at IS NULL`
		}
		stmt += ` ORDER BY score DESC LIMIT $2`
	case graph.LabelEntity:
		stmt = `SELECT id, ts_rank(ts, plainto_tsquery('simple', $1)) AS score
			FROM entities
			WHERE ts @@ plainto_tsquery('simple', $1)
			ORDER BY score DESC LIMIT $2`
	default:
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, stmt, q, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]graph.ScoredNode, 0, k)
	for rows.Next() {
		var n graph.ScoredNode
		if err := rows.Scan(&n.ID, &n.Score); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
