package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aziham/memento/internal/graph"
)

func (s *Store) GetUser(ctx context.Context) (graph.User, bool, error) {
	return getUser(ctx, s.pool)
}

func getUser(ctx context.Context, q queryer) (graph.User, bool, error) {
	row := q.QueryRow(ctx, `SELECT id, name, description, embedding, created_at, updated_at FROM users WHERE id = $1`, graph.UserID)
	var u graph.User
	if err := row.Scan(&u.ID, &u.Name, &u.Description, &u.Embedding, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.User{}, false, nil
		}
		return graph.User{}, false, err
	}
	u.Type = graph.EntityPerson
	return u, true, nil
}

func (s *Store) GetEntityByID(ctx context.Context, id string) (graph.Entity, bool, error) {
	return getEntity(ctx, s.pool, "id", id)
}

func (s *Store) GetEntityByName(ctx context.Context, name string) (graph.Entity, bool, error) {
	return getEntity(ctx, s.pool, "name", name)
}

func getEntity(ctx context.Context, q queryer, col, val string) (graph.Entity, bool, error) {
	row := q.QueryRow(ctx, `SELECT id, name, type, description, embedding, is_well_known, created_at, updated_at FROM entities WHERE `+col+` = $1`, val)
	var e graph.Entity
	if err := row.Scan(&e.ID, &e.Name, &e.Type, &e.Description, &e.Embedding, &e.IsWellKnown, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.Entity{}, false, nil
		}
		return graph.Entity{}, false, err
	}
	return e, true, nil
}

func (s *Store) GetMemoryByID(ctx context.Context, id string) (graph.Memory, bool, error) {
	return getMemory(ctx, s.pool, id)
}

func getMemory(ctx context.Context, q queryer, id string) (graph.Memory, bool, error) {
	row := q.QueryRow(ctx, `SELECT id, content, embedding, created_at, valid_at, invalid_at FROM memories WHERE id = $1`, id)
	var m graph.Memory
	if err := row.Scan(&m.ID, &m.Content, &m.Embedding, &m.CreatedAt, &m.ValidAt, &m.InvalidAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return graph.Memory{}, false, nil
		}
		return graph.Memory{}, false, err
	}
	return m, true, nil
}

func (s *Store) EntityDegree(ctx context.Context, id string) (int, error) {
	return entityDegree(ctx, s.pool, id)
}

func entityDegree(ctx context.Context, q queryer, id string) (int, error) {
	var n int
	row := q.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM edges_about WHERE entity_id = $1) +
			(SELECT count(*) FROM edges_mentions WHERE entity_id = $1)
	`, id)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func (s *Store) CreateOrMergeEntity(ctx context.Context, name string, typ graph.EntityType, description string, embedding []float32, isWellKnown bool) (graph.Entity, bool, error) {
	return createOrMergeEntity(ctx, s.pool, name, typ, description, embedding, isWellKnown)
}

func createOrMergeEntity(ctx context.Context, q queryer, name string, typ graph.EntityType, description string, embedding []float32, isWellKnown bool) (graph.Entity, bool, error) {
	existing, ok, err := getEntity(ctx, q, "name", name)
	if err != nil {
		return graph.Entity{}, false, err
	}
	if ok {
		return existing, false, nil
	}
	e := graph.Entity{
		ID:          newID("ent"),
		Name:        name,
		Type:        typ,
		Description: description,
		Embedding:   embedding,
		IsWellKnown: isWellKnown,
	}
	row := q.QueryRow(ctx, `
		INSERT INTO entities (id, name, type, description, embedding, is_well_known)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING created_at, updated_at
	`, e.ID, e.Name, string(e.Type), e.Description, nonNilFloats(e.Embedding), e.IsWellKnown)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return graph.Entity{}, false, err
	}
	return e, true, nil
}

func (s *Store) UpdateEntity(ctx context.Context, id string, description *string, embedding []float32) error {
	return updateEntity(ctx, s.pool, id, description, embedding)
}

func updateEntity(ctx context.Context, q queryer, id string, description *string, embedding []float32) error {
	if description != nil {
		if _, err := q.Exec(ctx, `UPDATE entities SET description = $2, updated_at = now() WHERE id = $1`, id, *description); err != nil {
			return err
		}
	}
	if embedding != nil {
		if _, err := q.Exec(ctx, `UPDATE entities SET embedding = $2, updated_at = now() WHERE id = $1`, id, nonNilFloats(embedding)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateMemory(ctx context.Context, content string, embedding []float32, validAt *time.Time) (graph.Memory, error) {
	return createMemory(ctx, s.pool, content, embedding, validAt)
}

func createMemory(ctx context.Context, q queryer, content string, embedding []float32, validAt *time.Time) (graph.Memory, error) {
	m := graph.Memory{
		ID:        newID("mem"),
		Content:   content,
		Embedding: embedding,
		ValidAt:   validAt,
	}
	row := q.QueryRow(ctx, `
		INSERT INTO memories (id, content, embedding, valid_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, m.ID, m.Content, nonNilFloats(m.Embedding), m.ValidAt)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return graph.Memory{}, err
	}
	return m, nil
}

func (s *Store) UpdateMemory(ctx context.Context, id string, content *string, embedding []float32, validAt, invalidAt *time.Time) error {
	return updateMemory(ctx, s.pool, id, content, embedding, validAt, invalidAt)
}

func updateMemory(ctx context.Context, q queryer, id string, content *string, embedding []float32, validAt, invalidAt *time.Time) error {
	if content != nil {
		if _, err := q.Exec(ctx, `UPDATE memories SET content = $2 WHERE id = $1`, id, *content); err != nil {
			return err
		}
	}
	if embedding != nil {
		if _, err := q.Exec(ctx, `UPDATE memories SET embedding = $2 WHERE id = $1`, id, nonNilFloats(embedding)); err != nil {
			return err
		}
	}
	if validAt != nil {
		if _, err := q.Exec(ctx, `UPDATE memories SET valid_at = $2 WHERE id = $1`, id, *validAt); err != nil {
			return err
		}
	}
	if invalidAt != nil {
		if _, err := q.Exec(ctx, `UPDATE memories SET invalid_at = $2 WHERE id = $1`, id, *invalidAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateNote(ctx context.Context, content string, timestamp time.Time) (graph.Note, error) {
	return createNote(ctx, s.pool, content, timestamp)
}

func createNote(ctx context.Context, q queryer, content string, timestamp time.Time) (graph.Note, error) {
	n := graph.Note{ID: newID("note"), Content: content, Timestamp: timestamp}
	if _, err := q.Exec(ctx, `INSERT INTO notes (id, content, timestamp) VALUES ($1, $2, $3)`, n.ID, n.Content, n.Timestamp); err != nil {
		return graph.Note{}, err
	}
	return n, nil
}

func (s *Store) GetOrCreateUser(ctx context.Context, defaultName string, defaultEmbedding []float32) (graph.User, error) {
	return getOrCreateUser(ctx, s.pool, defaultName, defaultEmbedding)
}

func getOrCreateUser(ctx context.Context, q queryer, defaultName string, defaultEmbedding []float32) (graph.User, error) {
	existing, ok, err := getUser(ctx, q)
	if err != nil {
		return graph.User{}, err
	}
	if ok {
		return existing, nil
	}
	u := graph.User{ID: graph.UserID, Name: defaultName, Type: graph.EntityPerson, Embedding: defaultEmbedding}
	row := q.QueryRow(ctx, `
		INSERT INTO users (id, name, embedding) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING created_at, updated_at
	`, u.ID, u.Name, nonNilFloats(u.Embedding))
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return graph.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, name *string, description *string, embedding []float32) error {
	return updateUser(ctx, s.pool, name, description, embedding)
}

func updateUser(ctx context.Context, q queryer, name *string, description *string, embedding []float32) error {
	if name != nil {
		if _, err := q.Exec(ctx, `UPDATE users SET name = $2, updated_at = now() WHERE id = $1`, graph.UserID, *name); err != nil {
			return err
		}
	}
	if description != nil {
		if _, err := q.Exec(ctx, `UPDATE users SET description = $2, updated_at = now() WHERE id = $1`, graph.UserID, *description); err != nil {
			return err
		}
	}
	if embedding != nil {
		if _, err := q.Exec(ctx, `UPDATE users SET embedding = $2, updated_at = now() WHERE id = $1`, graph.UserID, nonNilFloats(embedding)); err != nil {
			return err
		}
	}
	return nil
}

func nonNilFloats(v []float32) []float32 {
	if v == nil {
		return []float32{}
	}
	return v
}
