package postgres

import (
	"context"
	"time"

	"github.com/aziham/memento/internal/graph"
)

func (s *Store) CreateAbout(ctx context.Context, memoryID, entityID string) error {
	return createAbout(ctx, s.pool, memoryID, entityID)
}

func createAbout(ctx context.Context, q queryer, memoryID, entityID string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO edges_about (memory_id, entity_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, memoryID, entityID)
	return err
}

func (s *Store) CreateAboutUser(ctx context.Context, memoryID string) error {
	return createAbout(ctx, s.pool, memoryID, graph.UserID)
}

func (s *Store) CreateExtractedFrom(ctx context.Context, memoryID, noteID string) error {
	return createExtractedFrom(ctx, s.pool, memoryID, noteID)
}

func createExtractedFrom(ctx context.Context, q queryer, memoryID, noteID string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO edges_extracted_from (memory_id, note_id) VALUES ($1, $2)
		ON CONFLICT (memory_id) DO UPDATE SET note_id = EXCLUDED.note_id
	`, memoryID, noteID)
	return err
}

func (s *Store) CreateMentions(ctx context.Context, noteID, entityID string) error {
	return createMentions(ctx, s.pool, noteID, entityID)
}

func createMentions(ctx context.Context, q queryer, noteID, entityID string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO edges_mentions (note_id, entity_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, noteID, entityID)
	return err
}

func (s *Store) CreateInvalidates(ctx context.Context, newMemoryID, targetMemoryID, reason string, effectiveTime time.Time) error {
	return createInvalidates(ctx, s.pool, newMemoryID, targetMemoryID, reason, effectiveTime)
}

func createInvalidates(ctx context.Context, q queryer, newMemoryID, targetMemoryID, reason string, effectiveTime time.Time) error {
	if _, err := q.Exec(ctx, `
		INSERT INTO edges_invalidates (id, source_id, target_id, reason)
		VALUES ($1, $2, $3, $4)
	`, newID("inv"), newMemoryID, targetMemoryID, reason); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `UPDATE memories SET invalid_at = $2 WHERE id = $1`, targetMemoryID, effectiveTime)
	return err
}
