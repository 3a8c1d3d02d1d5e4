// Package hybridstore composes the relational backend (internal/graph/postgres)
// and the vector backend (internal/graph/qdrant) into a single graph.Store:
// relational storage and graph algorithms come from Postgres, nearest-neighbor
// search comes from Qdrant, and SearchHybrid fuses vector and full-text
// results with reciprocal-rank fusion, the one place in the codebase RRF
// is used, reserved for consolidation's entity search.
package hybridstore

import (
	"context"
	"time"

	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/mathx"
)

// Relational is the subset of postgres.Store the composed store depends on.
type Relational interface {
	graph.Reader
	graph.Writer
	graph.BulkReads
	graph.Algorithms
	SearchFulltext(ctx context.Context, label graph.NodeLabel, query string, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error)
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx graph.Tx) error) error
}

// VectorIndex is the subset of qdrant.Index the composed store depends on.
type VectorIndex interface {
	Upsert(ctx context.Context, label graph.NodeLabel, id string, vector []float32) error
	SearchVector(ctx context.Context, label graph.NodeLabel, vector []float32, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error)
}

// FusionConfig controls SearchHybrid's reciprocal-rank fusion of vector and
// full-text result lists: score(id) = sum over lists containing id of
// 1/(rank+RRFConstant), rank 1-based.
type FusionConfig struct {
	RRFConstant float64
}

var DefaultFusionConfig = FusionConfig{
	RRFConstant: 60,
}

type Store struct {
	pg     Relational
	vec    VectorIndex
	fusion FusionConfig
}

func New(pg Relational, vec VectorIndex, fusion FusionConfig) *Store {
	return &Store{pg: pg, vec: vec, fusion: fusion}
}

// --- Reader ---

func (s *Store) GetUser(ctx context.Context) (graph.User, bool, error) { return s.pg.GetUser(ctx) }
func (s *Store) GetEntityByID(ctx context.Context, id string) (graph.Entity, bool, error) {
	return s.pg.GetEntityByID(ctx, id)
}
func (s *Store) GetEntityByName(ctx context.Context, name string) (graph.Entity, bool, error) {
	return s.pg.GetEntityByName(ctx, name)
}
func (s *Store) GetMemoryByID(ctx context.Context, id string) (graph.Memory, bool, error) {
	return s.pg.GetMemoryByID(ctx, id)
}
func (s *Store) EntityDegree(ctx context.Context, id string) (int, error) {
	return s.pg.EntityDegree(ctx, id)
}

// --- BulkReads ---

func (s *Store) AboutEntityNames(ctx context.Context, memoryIDs []string) (map[string][]graph.EntityRef, error) {
	return s.pg.AboutEntityNames(ctx, memoryIDs)
}
func (s *Store) InvalidationChain(ctx context.Context, memoryIDs []string, maxDepth int) (map[string]graph.InvalidationNode, error) {
	return s.pg.InvalidationChain(ctx, memoryIDs, maxDepth)
}
func (s *Store) ProvenanceNotes(ctx context.Context, memoryIDs []string) (map[string]graph.Note, error) {
	return s.pg.ProvenanceNotes(ctx, memoryIDs)
}
func (s *Store) EntityDetailsByName(ctx context.Context, names []string) (map[string]graph.EntityDetail, error) {
	return s.pg.EntityDetailsByName(ctx, names)
}

// --- Algorithms ---

func (s *Store) PersonalizedPageRank(ctx context.Context, sourceIDs []string, damping float64, iterations, limit int) ([]graph.ScoredNode, error) {
	return s.pg.PersonalizedPageRank(ctx, sourceIDs, damping, iterations, limit)
}

// --- Writer (relational write, then vector upsert; an upsert failure is returned) ---

func (s *Store) CreateOrMergeEntity(ctx context.Context, name string, typ graph.EntityType, description string, embedding []float32, isWellKnown bool) (graph.Entity, bool, error) {
	e, created, err := s.pg.CreateOrMergeEntity(ctx, name, typ, description, embedding, isWellKnown)
	if err != nil {
		return graph.Entity{}, false, err
	}
	if created && len(embedding) > 0 {
		if err := s.vec.Upsert(ctx, graph.LabelEntity, e.ID, embedding); err != nil {
			return e, created, err
		}
	}
	return e, created, nil
}

func (s *Store) UpdateEntity(ctx context.Context, id string, description *string, embedding []float32) error {
	if err := s.pg.UpdateEntity(ctx, id, description, embedding); err != nil {
		return err
	}
	if embedding != nil {
		return s.vec.Upsert(ctx, graph.LabelEntity, id, embedding)
	}
	return nil
}

func (s *Store) CreateMemory(ctx context.Context, content string, embedding []float32, validAt *time.Time) (graph.Memory, error) {
	m, err := s.pg.CreateMemory(ctx, content, embedding, validAt)
	if err != nil {
		return graph.Memory{}, err
	}
	if len(embedding) > 0 {
		if err := s.vec.Upsert(ctx, graph.LabelMemory, m.ID, embedding); err != nil {
			return m, err
		}
	}
	return m, nil
}

func (s *Store) UpdateMemory(ctx context.Context, id string, content *string, embedding []float32, validAt, invalidAt *time.Time) error {
	if err := s.pg.UpdateMemory(ctx, id, content, embedding, validAt, invalidAt); err != nil {
		return err
	}
	if embedding != nil {
		return s.vec.Upsert(ctx, graph.LabelMemory, id, embedding)
	}
	return nil
}

func (s *Store) CreateNote(ctx context.Context, content string, timestamp time.Time) (graph.Note, error) {
	return s.pg.CreateNote(ctx, content, timestamp)
}

func (s *Store) GetOrCreateUser(ctx context.Context, defaultName string, defaultEmbedding []float32) (graph.User, error) {
	u, err := s.pg.GetOrCreateUser(ctx, defaultName, defaultEmbedding)
	if err != nil {
		return graph.User{}, err
	}
	if len(defaultEmbedding) > 0 {
		if err := s.vec.Upsert(ctx, graph.LabelEntity, u.ID, defaultEmbedding); err != nil {
			return u, err
		}
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, name, description *string, embedding []float32) error {
	if err := s.pg.UpdateUser(ctx, name, description, embedding); err != nil {
		return err
	}
	if embedding != nil {
		return s.vec.Upsert(ctx, graph.LabelEntity, graph.UserID, embedding)
	}
	return nil
}

func (s *Store) CreateAbout(ctx context.Context, memoryID, entityID string) error {
	return s.pg.CreateAbout(ctx, memoryID, entityID)
}
func (s *Store) CreateAboutUser(ctx context.Context, memoryID string) error {
	return s.pg.CreateAboutUser(ctx, memoryID)
}
func (s *Store) CreateExtractedFrom(ctx context.Context, memoryID, noteID string) error {
	return s.pg.CreateExtractedFrom(ctx, memoryID, noteID)
}
func (s *Store) CreateMentions(ctx context.Context, noteID, entityID string) error {
	return s.pg.CreateMentions(ctx, noteID, entityID)
}
func (s *Store) CreateInvalidates(ctx context.Context, newMemoryID, targetMemoryID, reason string, effectiveTime time.Time) error {
	return s.pg.CreateInvalidates(ctx, newMemoryID, targetMemoryID, reason, effectiveTime)
}

// --- Search ---

func (s *Store) SearchVector(ctx context.Context, label graph.NodeLabel, vector []float32, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	nodes, err := s.vec.SearchVector(ctx, label, vector, k, opts)
	if err != nil {
		return nil, err
	}
	if label != graph.LabelMemory || !opts.ValidOnly {
		return nodes, nil
	}
	return s.filterValidMemories(ctx, nodes)
}

func (s *Store) SearchFulltext(ctx context.Context, label graph.NodeLabel, query string, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	nodes, err := s.pg.SearchFulltext(ctx, label, query, k, opts)
	if err != nil {
		return nil, err
	}
	if label != graph.LabelMemory || !opts.ValidOnly {
		return nodes, nil
	}
	return s.filterValidMemories(ctx, nodes)
}

func (s *Store) filterValidMemories(ctx context.Context, nodes []graph.ScoredNode) ([]graph.ScoredNode, error) {
	out := make([]graph.ScoredNode, 0, len(nodes))
	for _, n := range nodes {
		mem, ok, err := s.pg.GetMemoryByID(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		if ok && mem.Valid() {
			out = append(out, n)
		}
	}
	return out, nil
}

// SearchHybrid runs vector search, then full-text search, and fuses the
// two ranked lists with reciprocal-rank fusion. This is the one call path
// RRF is used for, reserved for consolidation's entity search.
func (s *Store) SearchHybrid(ctx context.Context, label graph.NodeLabel, query string, vector []float32, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	vecResults, err := s.SearchVector(ctx, label, vector, k, opts)
	if err != nil {
		return nil, err
	}
	textResults, err := s.SearchFulltext(ctx, label, query, k, opts)
	if err != nil {
		return nil, err
	}
	return fuseRRF(vecResults, textResults, s.fusion), nil
}

func fuseRRF(vecResults, textResults []graph.ScoredNode, cfg FusionConfig) []graph.ScoredNode {
	vecIDs := make([]string, len(vecResults))
	for i, n := range vecResults {
		vecIDs[i] = n.ID
	}
	textIDs := make([]string, len(textResults))
	for i, n := range textResults {
		textIDs[i] = n.ID
	}

	scores := mathx.RRF([][]string{vecIDs, textIDs}, cfg.RRFConstant)

	out := make([]graph.ScoredNode, 0, len(scores))
	for id, score := range scores {
		out = append(out, graph.ScoredNode{ID: id, Score: score})
	}
	sortByScoreDesc(out)
	return out
}

func sortByScoreDesc(nodes []graph.ScoredNode) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j].Score > nodes[j-1].Score; j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}

// --- Transactions ---

type hybridTx struct {
	tx  graph.Tx
	vec VectorIndex
}

func (s *Store) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx graph.Tx) error) error {
	return s.pg.ExecuteTransaction(ctx, func(ctx context.Context, tx graph.Tx) error {
		return fn(ctx, &hybridTx{tx: tx, vec: s.vec})
	})
}

func (t *hybridTx) CreateOrMergeEntity(ctx context.Context, name string, typ graph.EntityType, description string, embedding []float32, isWellKnown bool) (graph.Entity, bool, error) {
	e, created, err := t.tx.CreateOrMergeEntity(ctx, name, typ, description, embedding, isWellKnown)
	if err != nil {
		return graph.Entity{}, false, err
	}
	if created && len(embedding) > 0 {
		if err := t.vec.Upsert(ctx, graph.LabelEntity, e.ID, embedding); err != nil {
			return e, created, err
		}
	}
	return e, created, nil
}

func (t *hybridTx) UpdateEntity(ctx context.Context, id string, description *string, embedding []float32) error {
	if err := t.tx.UpdateEntity(ctx, id, description, embedding); err != nil {
		return err
	}
	if embedding != nil {
		return t.vec.Upsert(ctx, graph.LabelEntity, id, embedding)
	}
	return nil
}

func (t *hybridTx) CreateMemory(ctx context.Context, content string, embedding []float32, validAt *time.Time) (graph.Memory, error) {
	m, err := t.tx.CreateMemory(ctx, content, embedding, validAt)
	if err != nil {
		return graph.Memory{}, err
	}
	if len(embedding) > 0 {
		if err := t.vec.Upsert(ctx, graph.LabelMemory, m.ID, embedding); err != nil {
			return m, err
		}
	}
	return m, nil
}

func (t *hybridTx) UpdateMemory(ctx context.Context, id string, content *string, embedding []float32, validAt, invalidAt *time.Time) error {
	if err := t.tx.UpdateMemory(ctx, id, content, embedding, validAt, invalidAt); err != nil {
		return err
	}
	if embedding != nil {
		return t.vec.Upsert(ctx, graph.LabelMemory, id, embedding)
	}
	return nil
}

func (t *hybridTx) CreateNote(ctx context.Context, content string, timestamp time.Time) (graph.Note, error) {
	return t.tx.CreateNote(ctx, content, timestamp)
}

func (t *hybridTx) GetOrCreateUser(ctx context.Context, defaultName string, defaultEmbedding []float32) (graph.User, error) {
	u, err := t.tx.GetOrCreateUser(ctx, defaultName, defaultEmbedding)
	if err != nil {
		return graph.User{}, err
	}
	if len(defaultEmbedding) > 0 {
		if err := t.vec.Upsert(ctx, graph.LabelEntity, u.ID, defaultEmbedding); err != nil {
			return u, err
		}
	}
	return u, nil
}

func (t *hybridTx) UpdateUser(ctx context.Context, name, description *string, embedding []float32) error {
	if err := t.tx.UpdateUser(ctx, name, description, embedding); err != nil {
		return err
	}
	if embedding != nil {
		return t.vec.Upsert(ctx, graph.LabelEntity, graph.UserID, embedding)
	}
	return nil
}

func (t *hybridTx) CreateAbout(ctx context.Context, memoryID, entityID string) error {
	return t.tx.CreateAbout(ctx, memoryID, entityID)
}
func (t *hybridTx) CreateAboutUser(ctx context.Context, memoryID string) error {
	return t.tx.CreateAboutUser(ctx, memoryID)
}
func (t *hybridTx) CreateExtractedFrom(ctx context.Context, memoryID, noteID string) error {
	return t.tx.CreateExtractedFrom(ctx, memoryID, noteID)
}
func (t *hybridTx) CreateMentions(ctx context.Context, noteID, entityID string) error {
	return t.tx.CreateMentions(ctx, noteID, entityID)
}
func (t *hybridTx) CreateInvalidates(ctx context.Context, newMemoryID, targetMemoryID, reason string, effectiveTime time.Time) error {
	return t.tx.CreateInvalidates(ctx, newMemoryID, targetMemoryID, reason, effectiveTime)
}

var _ graph.Store = (*Store)(nil)
