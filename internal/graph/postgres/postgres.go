// Package postgres is the relational backend for the graph store: node
// tables, edge tables, full-text search over memories and entities, and a
// personalized-PageRank primitive computed from an in-process adjacency
// snapshot. Vector similarity search is delegated to a separate index
// (internal/graph/qdrant); this package stores embeddings as plain float
// arrays so PPR re-scoring and entity weighting can read them back without
// a round-trip to the vector index.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx, letting every
// Writer method run identically inside or outside a transaction.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the relational graph backend.
type Store struct {
	pool *pgxpool.Pool
}

// New opens the schema (idempotent) and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return s, nil
}

func (s *Store) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			embedding REAL[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			embedding REAL[] NOT NULL DEFAULT '{}',
			is_well_known BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			ts tsvector GENERATED ALWAYS AS (to_tsvector('simple', coalesce(name,'') || ' ' || coalesce(description,''))) STORED
		)`,
		`CREATE INDEX IF NOT EXISTS entities_ts_idx ON entities USING GIN (ts)`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding REAL[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			valid_at TIMESTAMPTZ,
			invalid_at TIMESTAMPTZ,
			ts tsvector GENERATED ALWAYS AS (to_tsvector('simple', coalesce(content,''))) STORED
		)`,
		`CREATE INDEX IF NOT EXISTS memories_ts_idx ON memories USING GIN (ts)`,
		`CREATE INDEX IF NOT EXISTS memories_valid_idx ON memories (invalid_at)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edges_about (
			memory_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			PRIMARY KEY (memory_id, entity_id)
		)`,
		`CREATE INDEX IF NOT EXISTS edges_about_entity_idx ON edges_about (entity_id)`,
		`CREATE TABLE IF NOT EXISTS edges_extracted_from (
			memory_id TEXT PRIMARY KEY,
			note_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edges_mentions (
			note_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			PRIMARY KEY (note_id, entity_id)
		)`,
		`CREATE TABLE IF NOT EXISTS edges_invalidates (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS edges_invalidates_target_idx ON edges_invalidates (target_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
