package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aziham/memento/internal/graph"
)

// txWriter adapts a pgx.Tx to graph.Tx, reusing the exact same SQL as the
// pool-backed Store methods via the shared queryer-taking functions.
type txWriter struct {
	tx pgx.Tx
}

func (w *txWriter) CreateOrMergeEntity(ctx context.Context, name string, typ graph.EntityType, description string, embedding []float32, isWellKnown bool) (graph.Entity, bool, error) {
	return createOrMergeEntity(ctx, w.tx, name, typ, description, embedding, isWellKnown)
}

func (w *txWriter) UpdateEntity(ctx context.Context, id string, description *string, embedding []float32) error {
	return updateEntity(ctx, w.tx, id, description, embedding)
}

func (w *txWriter) CreateMemory(ctx context.Context, content string, embedding []float32, validAt *time.Time) (graph.Memory, error) {
	return createMemory(ctx, w.tx, content, embedding, validAt)
}

func (w *txWriter) UpdateMemory(ctx context.Context, id string, content *string, embedding []float32, validAt, invalidAt *time.Time) error {
	return updateMemory(ctx, w.tx, id, content, embedding, validAt, invalidAt)
}

func (w *txWriter) CreateNote(ctx context.Context, content string, timestamp time.Time) (graph.Note, error) {
	return createNote(ctx, w.tx, content, timestamp)
}

func (w *txWriter) GetOrCreateUser(ctx context.Context, defaultName string, defaultEmbedding []float32) (graph.User, error) {
	return getOrCreateUser(ctx, w.tx, defaultName, defaultEmbedding)
}

func (w *txWriter) UpdateUser(ctx context.Context, name *string, description *string, embedding []float32) error {
	return updateUser(ctx, w.tx, name, description, embedding)
}

func (w *txWriter) CreateAbout(ctx context.Context, memoryID, entityID string) error {
	return createAbout(ctx, w.tx, memoryID, entityID)
}

func (w *txWriter) CreateAboutUser(ctx context.Context, memoryID string) error {
	return createAbout(ctx, w.tx, memoryID, graph.UserID)
}

func (w *txWriter) CreateExtractedFrom(ctx context.Context, memoryID, noteID string) error {
	return createExtractedFrom(ctx, w.tx, memoryID, noteID)
}

func (w *txWriter) CreateMentions(ctx context.Context, noteID, entityID string) error {
	return createMentions(ctx, w.tx, noteID, entityID)
}

func (w *txWriter) CreateInvalidates(ctx context.Context, newMemoryID, targetMemoryID, reason string, effectiveTime time.Time) error {
	return createInvalidates(ctx, w.tx, newMemoryID, targetMemoryID, reason, effectiveTime)
}

// ExecuteTransaction runs fn inside a single pgx transaction. A panic or
// returned error rolls back everything fn did; a nil return commits.
func (s *Store) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx graph.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, &txWriter{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
