package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory graph.Store satisfying exactly the
// retrieval.Store surface, used to exercise the pipeline end to end
// without a real backend.
type fakeStore struct {
	memories map[string]graph.Memory
	entities map[string]graph.Entity
	vector   []graph.ScoredNode
	fulltext []graph.ScoredNode
	ppr      []graph.ScoredNode
	about    map[string][]graph.EntityRef
	degree   map[string]int
}

func (f *fakeStore) GetUser(ctx context.Context) (graph.User, bool, error) { return graph.User{}, false, nil }
func (f *fakeStore) GetEntityByID(ctx context.Context, id string) (graph.Entity, bool, error) {
	e, ok := f.entities[id]
	return e, ok, nil
}
func (f *fakeStore) GetEntityByName(ctx context.Context, name string) (graph.Entity, bool, error) {
	for _, e := range f.entities {
		if e.Name == name {
			return e, true, nil
		}
	}
	return graph.Entity{}, false, nil
}
func (f *fakeStore) GetMemoryByID(ctx context.Context, id string) (graph.Memory, bool, error) {
	m, ok := f.memories[id]
	return m, ok, nil
}
func (f *fakeStore) EntityDegree(ctx context.Context, id string) (int, error) {
	return f.degree[id], nil
}

func (f *fakeStore) SearchVector(ctx context.Context, label graph.NodeLabel, vector []float32, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	return f.vector, nil
}
func (f *fakeStore) SearchFulltext(ctx context.Context, label graph.NodeLabel, query string, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	return f.fulltext, nil
}
func (f *fakeStore) SearchHybrid(ctx context.Context, label graph.NodeLabel, query string, vector []float32, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	return nil, nil
}

func (f *fakeStore) PersonalizedPageRank(ctx context.Context, sourceIDs []string, damping float64, iterations, limit int) ([]graph.ScoredNode, error) {
	return f.ppr, nil
}

func (f *fakeStore) AboutEntityNames(ctx context.Context, memoryIDs []string) (map[string][]graph.EntityRef, error) {
	out := make(map[string][]graph.EntityRef, len(memoryIDs))
	for _, id := range memoryIDs {
		out[id] = f.about[id]
	}
	return out, nil
}
func (f *fakeStore) InvalidationChain(ctx context.Context, memoryIDs []string, maxDepth int) (map[string]graph.InvalidationNode, error) {
	return map[string]graph.InvalidationNode{}, nil
}
func (f *fakeStore) ProvenanceNotes(ctx context.Context, memoryIDs []string) (map[string]graph.Note, error) {
	return map[string]graph.Note{}, nil
}
func (f *fakeStore) EntityDetailsByName(ctx context.Context, names []string) (map[string]graph.EntityDetail, error) {
	out := make(map[string]graph.EntityDetail, len(names))
	for _, name := range names {
		for _, e := range f.entities {
			if e.Name == name {
				out[name] = graph.EntityDetail{Entity: e}
			}
		}
	}
	return out, nil
}

func TestPipeline_EmptyGraphReturnsEmptyOutputWithoutCallingEntities(t *testing.T) {
	store := &fakeStore{memories: map[string]graph.Memory{}, entities: map[string]graph.Entity{}, about: map[string][]graph.EntityRef{}, degree: map[string]int{}}
	p := &Pipeline{Store: store, Config: testConfig()}

	out, err := p.Run(context.Background(), "what are my preferences?", []float32{1, 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Meta.TotalCandidates)
	assert.Empty(t, out.Memories)
	assert.Empty(t, out.Entities)
}

func TestPipeline_BasicRetrieval(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		memories: map[string]graph.Memory{
			"mem-1": {ID: "mem-1", Content: "USER prefers TypeScript", Embedding: []float32{1, 0}, ValidAt: &now},
			"mem-2": {ID: "mem-2", Content: "USER codes in Go", Embedding: []float32{0.9, 0.1}, ValidAt: &now},
		},
		entities: map[string]graph.Entity{
			"ent-1": {ID: "ent-1", Name: "TypeScript", Type: graph.EntityTechnology, Embedding: []float32{1, 0}},
		},
		vector:   []graph.ScoredNode{{ID: "mem-1", Score: 0.95}, {ID: "mem-2", Score: 0.75}},
		fulltext: []graph.ScoredNode{{ID: "mem-1", Score: 0.6}},
		ppr:      []graph.ScoredNode{{ID: "mem-1", Score: 0.8}, {ID: "mem-2", Score: 0.4}},
		about: map[string][]graph.EntityRef{
			"mem-1": {{ID: "ent-1", Name: "TypeScript"}},
			"mem-2": {{ID: graph.UserID, Name: "USER"}},
		},
		degree: map[string]int{"ent-1": 10},
	}
	p := &Pipeline{Store: store, Config: testConfig()}
	s := &stats.Stats{}

	out, err := p.Run(context.Background(), "What are my coding preferences?", []float32{1, 0}, s)
	require.NoError(t, err)
	assert.Equal(t, "What are my coding preferences?", out.Query)
	require.GreaterOrEqual(t, len(out.Memories), 1)
	assert.Equal(t, 1, out.Memories[0].Rank)
	assert.GreaterOrEqual(t, out.Meta.DurationMs, int64(0))
	assert.Greater(t, s.Snapshot().GraphReads, int64(0))
}

func TestPipeline_RanksAreSequentialWithoutGaps(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		memories: map[string]graph.Memory{
			"mem-1": {ID: "mem-1", Content: "a", Embedding: []float32{1, 0}, ValidAt: &now},
			"mem-2": {ID: "mem-2", Content: "b", Embedding: []float32{0, 1}, ValidAt: &now},
			"mem-3": {ID: "mem-3", Content: "c", Embedding: []float32{1, 1}, ValidAt: &now},
		},
		entities: map[string]graph.Entity{},
		vector:   []graph.ScoredNode{{ID: "mem-1", Score: 0.9}, {ID: "mem-2", Score: 0.8}, {ID: "mem-3", Score: 0.7}},
		fulltext: nil,
		ppr:      nil,
		about:    map[string][]graph.EntityRef{"mem-1": nil, "mem-2": nil, "mem-3": nil},
		degree:   map[string]int{},
	}
	p := &Pipeline{Store: store, Config: testConfig()}

	out, err := p.Run(context.Background(), "query", []float32{1, 0}, nil)
	require.NoError(t, err)
	for i, m := range out.Memories {
		assert.Equal(t, i+1, m.Rank)
	}
}
