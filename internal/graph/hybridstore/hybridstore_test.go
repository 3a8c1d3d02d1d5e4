package hybridstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aziham/memento/internal/graph"
)

// fakeRelational is a minimal in-memory stand-in for postgres.Store, enough
// to exercise Store's fusion and transaction wiring without a live database.
type fakeRelational struct {
	entities map[string]graph.Entity
	memories map[string]graph.Memory
	fulltext map[string][]graph.ScoredNode
	nextID   int
}

func newFakeRelational() *fakeRelational {
	return &fakeRelational{entities: map[string]graph.Entity{}, memories: map[string]graph.Memory{}, fulltext: map[string][]graph.ScoredNode{}}
}

func (f *fakeRelational) GetUser(ctx context.Context) (graph.User, bool, error) { return graph.User{}, false, nil }
func (f *fakeRelational) GetEntityByID(ctx context.Context, id string) (graph.Entity, bool, error) {
	e, ok := f.entities[id]
	return e, ok, nil
}
func (f *fakeRelational) GetEntityByName(ctx context.Context, name string) (graph.Entity, bool, error) {
	for _, e := range f.entities {
		if e.Name == name {
			return e, true, nil
		}
	}
	return graph.Entity{}, false, nil
}
func (f *fakeRelational) GetMemoryByID(ctx context.Context, id string) (graph.Memory, bool, error) {
	m, ok := f.memories[id]
	return m, ok, nil
}
func (f *fakeRelational) EntityDegree(ctx context.Context, id string) (int, error) { return 0, nil }

func (f *fakeRelational) AboutEntityNames(ctx context.Context, memoryIDs []string) (map[string][]graph.EntityRef, error) {
	return map[string][]graph.EntityRef{}, nil
}
func (f *fakeRelational) InvalidationChain(ctx context.Context, memoryIDs []string, maxDepth int) (map[string]graph.InvalidationNode, error) {
	return map[string]graph.InvalidationNode{}, nil
}
func (f *fakeRelational) ProvenanceNotes(ctx context.Context, memoryIDs []string) (map[string]graph.Note, error) {
	return map[string]graph.Note{}, nil
}
func (f *fakeRelational) EntityDetailsByName(ctx context.Context, names []string) (map[string]graph.EntityDetail, error) {
	return map[string]graph.EntityDetail{}, nil
}
func (f *fakeRelational) PersonalizedPageRank(ctx context.Context, sourceIDs []string, damping float64, iterations, limit int) ([]graph.ScoredNode, error) {
	return nil, nil
}

func (f *fakeRelational) CreateOrMergeEntity(ctx context.Context, name string, typ graph.EntityType, description string, embedding []float32, isWellKnown bool) (graph.Entity, bool, error) {
	if e, ok, _ := f.GetEntityByName(ctx, name); ok {
		return e, false, nil
	}
	f.nextID++
	e := graph.Entity{ID: "e", Name: name, Type: typ, Description: description, Embedding: embedding, IsWellKnown: isWellKnown}
	f.entities[e.ID] = e
	return e, true, nil
}
func (f *fakeRelational) UpdateEntity(ctx context.Context, id string, description *string, embedding []float32) error {
	e := f.entities[id]
	if description != nil {
		e.Description = *description
	}
	if embedding != nil {
		e.Embedding = embedding
	}
	f.entities[id] = e
	return nil
}
func (f *fakeRelational) CreateMemory(ctx context.Context, content string, embedding []float32, validAt *time.Time) (graph.Memory, error) {
	m := graph.Memory{ID: "m", Content: content, Embedding: embedding, ValidAt: validAt}
	f.memories[m.ID] = m
	return m, nil
}
func (f *fakeRelational) UpdateMemory(ctx context.Context, id string, content *string, embedding []float32, validAt, invalidAt *time.Time) error {
	m := f.memories[id]
	if embedding != nil {
		m.Embedding = embedding
	}
	f.memories[id] = m
	return nil
}
func (f *fakeRelational) CreateNote(ctx context.Context, content string, timestamp time.Time) (graph.Note, error) {
	return graph.Note{ID: "n", Content: content, Timestamp: timestamp}, nil
}
func (f *fakeRelational) GetOrCreateUser(ctx context.Context, defaultName string, defaultEmbedding []float32) (graph.User, error) {
	return graph.User{ID: graph.UserID, Name: defaultName, Embedding: defaultEmbedding}, nil
}
func (f *fakeRelational) UpdateUser(ctx context.Context, name, description *string, embedding []float32) error {
	return nil
}
func (f *fakeRelational) CreateAbout(ctx context.Context, memoryID, entityID string) error { return nil }
func (f *fakeRelational) CreateAboutUser(ctx context.Context, memoryID string) error       { return nil }
func (f *fakeRelational) CreateExtractedFrom(ctx context.Context, memoryID, noteID string) error {
	return nil
}
func (f *fakeRelational) CreateMentions(ctx context.Context, noteID, entityID string) error { return nil }
func (f *fakeRelational) CreateInvalidates(ctx context.Context, newMemoryID, targetMemoryID, reason string, effectiveTime time.Time) error {
	return nil
}
func (f *fakeRelational) SearchFulltext(ctx context.Context, label graph.NodeLabel, query string, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	return f.fulltext[query], nil
}
func (f *fakeRelational) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx graph.Tx) error) error {
	return fn(ctx, f)
}

type fakeVector struct {
	upserts map[string][]float32
	results []graph.ScoredNode
}

func newFakeVector() *fakeVector {
	return &fakeVector{upserts: map[string][]float32{}}
}

func (v *fakeVector) Upsert(ctx context.Context, label graph.NodeLabel, id string, vector []float32) error {
	v.upserts[id] = vector
	return nil
}
func (v *fakeVector) SearchVector(ctx context.Context, label graph.NodeLabel, vector []float32, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	return v.results, nil
}

func TestCreateMemory_UpsertsVector(t *testing.T) {
	pg := newFakeRelational()
	vec := newFakeVector()
	s := New(pg, vec, DefaultFusionConfig)

	m, err := s.CreateMemory(context.Background(), "hello", []float32{1, 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec.upserts[m.ID])
}

func TestExecuteTransaction_WiresVectorUpsert(t *testing.T) {
	pg := newFakeRelational()
	vec := newFakeVector()
	s := New(pg, vec, DefaultFusionConfig)

	var createdID string
	err := s.ExecuteTransaction(context.Background(), func(ctx context.Context, tx graph.Tx) error {
		m, err := tx.CreateMemory(ctx, "inside tx", []float32{0, 1}, nil)
		createdID = m.ID
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec.upserts[createdID])
}

func TestFuseRRF_RanksIntersectionHighest(t *testing.T) {
	vec := []graph.ScoredNode{{ID: "a", Score: 0.9}, {ID: "c", Score: 0.5}}
	text := []graph.ScoredNode{{ID: "a", Score: 1.0}, {ID: "b", Score: 0.2}}
	out := fuseRRF(vec, text, DefaultFusionConfig)

	require.NotEmpty(t, out)
	assert.Equal(t, "a", out[0].ID)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Score, out[i].Score)
	}
}

func TestSearchHybrid_FusesAndOrdersByScore(t *testing.T) {
	pg := newFakeRelational()
	pg.fulltext["query"] = []graph.ScoredNode{{ID: "a", Score: 1.0}, {ID: "b", Score: 0.2}}
	vec := newFakeVector()
	vec.results = []graph.ScoredNode{{ID: "a", Score: 0.9}, {ID: "c", Score: 0.5}}
	s := New(pg, vec, DefaultFusionConfig)

	out, err := s.SearchHybrid(context.Background(), graph.LabelMemory, "query", []float32{1, 0}, 10, graph.SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	// "a" appears in both lists and should outrank single-list hits.
	assert.Equal(t, "a", out[0].ID)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Score, out[i].Score)
	}
}
