package consolidation

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aziham/memento/internal/agentrunner"
	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/llm"
	"github.com/aziham/memento/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a fixed-length zero vector per text; consolidation
// never branches on embedding content directly.
type fakeEmbedder struct{ dims int }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dims), nil
}
func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f fakeEmbedder) Dimensions() int { return f.dims }

// scriptedProvider answers CompleteJSONSchema with a canned response keyed
// by schema name, so each consolidation agent call in a pipeline run
// returns deterministic, pre-scripted output.
type scriptedProvider struct {
	responses map[string]string
}

func (p scriptedProvider) Chat(ctx context.Context, msgs []llm.Message, opts llm.CompletionOptions) (llm.Message, error) {
	return llm.Message{}, fmt.Errorf("Chat not scripted")
}

func (p scriptedProvider) CompleteJSONSchema(ctx context.Context, msgs []llm.Message, schemaName string, schema map[string]any, opts llm.CompletionOptions) (json.RawMessage, error) {
	resp, ok := p.responses[schemaName]
	if !ok {
		return nil, fmt.Errorf("no scripted response for schema %q", schemaName)
	}
	return json.RawMessage(resp), nil
}

func (p scriptedProvider) CompleteToolCall(ctx context.Context, msgs []llm.Message, schemaName string, schema map[string]any, opts llm.CompletionOptions) (json.RawMessage, error) {
	return nil, &llm.ErrStrategyUnsupported{}
}

func (p scriptedProvider) CompleteJSONMode(ctx context.Context, msgs []llm.Message, opts llm.CompletionOptions) (json.RawMessage, error) {
	return nil, &llm.ErrStrategyUnsupported{}
}

// fakeStore is a minimal in-memory graph.Store sufficient to drive one
// consolidation run end to end without a real backend.
type fakeStore struct {
	user     graph.User
	hasUser  bool
	entities map[string]graph.Entity
	memories map[string]graph.Memory
	notes    map[string]graph.Note
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entities: map[string]graph.Entity{}, memories: map[string]graph.Memory{}, notes: map[string]graph.Note{}}
}

func (s *fakeStore) genID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *fakeStore) GetUser(ctx context.Context) (graph.User, bool, error) { return s.user, s.hasUser, nil }
func (s *fakeStore) GetEntityByID(ctx context.Context, id string) (graph.Entity, bool, error) {
	e, ok := s.entities[id]
	return e, ok, nil
}
func (s *fakeStore) GetEntityByName(ctx context.Context, name string) (graph.Entity, bool, error) {
	for _, e := range s.entities {
		if e.Name == name {
			return e, true, nil
		}
	}
	return graph.Entity{}, false, nil
}
func (s *fakeStore) GetMemoryByID(ctx context.Context, id string) (graph.Memory, bool, error) {
	m, ok := s.memories[id]
	return m, ok, nil
}
func (s *fakeStore) EntityDegree(ctx context.Context, id string) (int, error) { return 0, nil }

func (s *fakeStore) SearchVector(ctx context.Context, label graph.NodeLabel, vector []float32, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	return nil, nil
}
func (s *fakeStore) SearchFulltext(ctx context.Context, label graph.NodeLabel, query string, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	return nil, nil
}
func (s *fakeStore) SearchHybrid(ctx context.Context, label graph.NodeLabel, query string, vector []float32, k int, opts graph.SearchOptions) ([]graph.ScoredNode, error) {
	return nil, nil
}

func (s *fakeStore) PersonalizedPageRank(ctx context.Context, sourceIDs []string, damping float64, iterations, limit int) ([]graph.ScoredNode, error) {
	return nil, nil
}

func (s *fakeStore) AboutEntityNames(ctx context.Context, memoryIDs []string) (map[string][]graph.EntityRef, error) {
	return map[string][]graph.EntityRef{}, nil
}
func (s *fakeStore) InvalidationChain(ctx context.Context, memoryIDs []string, maxDepth int) (map[string]graph.InvalidationNode, error) {
	return map[string]graph.InvalidationNode{}, nil
}
func (s *fakeStore) ProvenanceNotes(ctx context.Context, memoryIDs []string) (map[string]graph.Note, error) {
	return map[string]graph.Note{}, nil
}
func (s *fakeStore) EntityDetailsByName(ctx context.Context, names []string) (map[string]graph.EntityDetail, error) {
	return map[string]graph.EntityDetail{}, nil
}

func (s *fakeStore) CreateOrMergeEntity(ctx context.Context, name string, typ graph.EntityType, description string, embedding []float32, isWellKnown bool) (graph.Entity, bool, error) {
	e := graph.Entity{ID: s.genID("ent"), Name: name, Type: typ, Description: description, Embedding: embedding, IsWellKnown: isWellKnown}
	s.entities[e.ID] = e
	return e, true, nil
}
func (s *fakeStore) UpdateEntity(ctx context.Context, id string, description *string, embedding []float32) error {
	e := s.entities[id]
	if description != nil {
		e.Description = *description
	}
	s.entities[id] = e
	return nil
}
func (s *fakeStore) CreateMemory(ctx context.Context, content string, embedding []float32, validAt *time.Time) (graph.Memory, error) {
	m := graph.Memory{ID: s.genID("mem"), Content: content, Embedding: embedding, ValidAt: validAt}
	s.memories[m.ID] = m
	return m, nil
}
func (s *fakeStore) UpdateMemory(ctx context.Context, id string, content *string, embedding []float32, validAt, invalidAt *time.Time) error {
	return nil
}
func (s *fakeStore) CreateNote(ctx context.Context, content string, timestamp time.Time) (graph.Note, error) {
	n := graph.Note{ID: s.genID("note"), Content: content, Timestamp: timestamp}
	s.notes[n.ID] = n
	return n, nil
}
func (s *fakeStore) GetOrCreateUser(ctx context.Context, defaultName string, defaultEmbedding []float32) (graph.User, error) {
	if !s.hasUser {
		s.user = graph.User{ID: graph.UserID, Name: defaultName, Type: graph.EntityPerson}
		s.hasUser = true
	}
	return s.user, nil
}
func (s *fakeStore) UpdateUser(ctx context.Context, name *string, description *string, embedding []float32) error {
	if name != nil {
		s.user.Name = *name
	}
	if description != nil {
		s.user.Description = *description
	}
	return nil
}
func (s *fakeStore) CreateAbout(ctx context.Context, memoryID, entityID string) error      { return nil }
func (s *fakeStore) CreateAboutUser(ctx context.Context, memoryID string) error            { return nil }
func (s *fakeStore) CreateExtractedFrom(ctx context.Context, memoryID, noteID string) error { return nil }
func (s *fakeStore) CreateMentions(ctx context.Context, noteID, entityID string) error      { return nil }
func (s *fakeStore) CreateInvalidates(ctx context.Context, newMemoryID, targetMemoryID, reason string, effectiveTime time.Time) error {
	return nil
}

func (s *fakeStore) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx graph.Tx) error) error {
	return fn(ctx, s)
}

func TestPipeline_AddsExtractedMemoryAndEntity(t *testing.T) {
	store := newFakeStore()
	provider := scriptedProvider{responses: map[string]string{
		"entity_extraction": `{"entities":[{"name":"Go","type":"Technology","description":"a programming language","isWellKnown":true}],"userBiographicalFacts":null}`,
		"entity_resolution": `{"resolutions":[{"name":"Go","decision":"CREATE","matchedId":null,"updateDescription":false,"mergedDescription":null}],"userDescriptionUpdate":{"shouldUpdate":false,"mergedDescription":null,"reason":null}}`,
		"memory_extraction": `{"memories":[{"content":"USER started learning Go","aboutEntities":["Go"],"validAt":null}]}`,
		"memory_resolution": `{"decisions":[{"decision":"ADD","targets":[]}]}`,
		"hyde_documents":    `{"semantic":[],"stateChange":[]}`,
	}}

	p := &Pipeline{
		Store:     store,
		Embedder:  fakeEmbedder{dims: 4},
		Runner:    agentrunner.New(provider),
		Retrieval: testRetrievalConfig(),
		Config:    testConsolidationConfig(),
	}

	out, err := p.Run(context.Background(), Input{Content: "I started learning Go today", Timestamp: time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)}, nil)
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	require.Len(t, out.Memories, 1)
	assert.Equal(t, "ADD", out.Memories[0].Decision)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "CREATE", out.Entities[0].Decision)
	assert.Equal(t, "Go", out.Entities[0].Name)
}

func TestPipeline_NoExtractedMemoriesSkipsWithReason(t *testing.T) {
	store := newFakeStore()
	provider := scriptedProvider{responses: map[string]string{
		"entity_extraction": `{"entities":[],"userBiographicalFacts":null}`,
		"entity_resolution": `{"resolutions":[],"userDescriptionUpdate":{"shouldUpdate":false,"mergedDescription":null,"reason":null}}`,
		"memory_extraction": `{"memories":[]}`,
		"hyde_documents":    `{"semantic":[],"stateChange":[]}`,
	}}

	p := &Pipeline{
		Store:     store,
		Embedder:  fakeEmbedder{dims: 4},
		Runner:    agentrunner.New(provider),
		Retrieval: testRetrievalConfig(),
		Config:    testConsolidationConfig(),
	}

	out, err := p.Run(context.Background(), Input{Content: "nothing notable", Timestamp: time.Now()}, nil)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, skipReasonNoMemories, out.SkipReason)
}

func TestPipeline_AllMemoriesSkippedReportsSkipReason(t *testing.T) {
	store := newFakeStore()
	provider := scriptedProvider{responses: map[string]string{
		"entity_extraction": `{"entities":[],"userBiographicalFacts":null}`,
		"entity_resolution": `{"resolutions":[],"userDescriptionUpdate":{"shouldUpdate":false,"mergedDescription":null,"reason":null}}`,
		"memory_extraction": `{"memories":[{"content":"USER likes coffee","aboutEntities":[],"validAt":null}]}`,
		"memory_resolution": `{"decisions":[{"decision":"SKIP","targets":[]}]}`,
		"hyde_documents":    `{"semantic":[],"stateChange":[]}`,
	}}

	p := &Pipeline{
		Store:     store,
		Embedder:  fakeEmbedder{dims: 4},
		Runner:    agentrunner.New(provider),
		Retrieval: testRetrievalConfig(),
		Config:    testConsolidationConfig(),
	}

	out, err := p.Run(context.Background(), Input{Content: "USER likes coffee, as always", Timestamp: time.Now()}, nil)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, skipReasonAllSkipped, out.SkipReason)
}

func TestPipeline_NoMemoryAboutUserSkipsUserNode(t *testing.T) {
	store := newFakeStore()
	provider := scriptedProvider{responses: map[string]string{
		"entity_extraction": `{"entities":[{"name":"Go","type":"Technology","description":"a programming language","isWellKnown":true}],"userBiographicalFacts":"works as a backend engineer"}`,
		"entity_resolution": `{"resolutions":[{"name":"Go","decision":"CREATE","matchedId":null,"updateDescription":false,"mergedDescription":null}],"userDescriptionUpdate":{"shouldUpdate":true,"mergedDescription":"Backend engineer.","reason":"new fact","detectedName":null}}`,
		"memory_extraction": `{"memories":[{"content":"Go is popular for backend services","aboutEntities":["Go"],"validAt":null}]}`,
		"memory_resolution": `{"decisions":[{"decision":"ADD","targets":[]}]}`,
		"hyde_documents":    `{"semantic":[],"stateChange":[]}`,
	}}

	p := &Pipeline{
		Store:     store,
		Embedder:  fakeEmbedder{dims: 4},
		Runner:    agentrunner.New(provider),
		Retrieval: testRetrievalConfig(),
		Config:    testConsolidationConfig(),
	}

	out, err := p.Run(context.Background(), Input{Content: "Go is popular for backend services"}, nil)
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	assert.False(t, out.UserDescriptionUpdated)
	assert.False(t, store.hasUser)
}

func TestPipeline_UpdatesUserNameWhenDetectedNameDiffers(t *testing.T) {
	store := newFakeStore()
	store.hasUser = true
	store.user = graph.User{ID: graph.UserID, Name: "Sara"}
	provider := scriptedProvider{responses: map[string]string{
		"entity_extraction": `{"entities":[],"userBiographicalFacts":"goes by Sarah now"}`,
		"entity_resolution": `{"resolutions":[],"userDescriptionUpdate":{"shouldUpdate":false,"mergedDescription":null,"reason":null,"detectedName":"Sarah"}}`,
		"memory_extraction": `{"memories":[{"content":"USER goes by Sarah now","aboutEntities":["USER"],"validAt":null}]}`,
		"memory_resolution": `{"decisions":[{"decision":"ADD","targets":[]}]}`,
		"hyde_documents":    `{"semantic":[],"stateChange":[]}`,
	}}

	p := &Pipeline{
		Store:     store,
		Embedder:  fakeEmbedder{dims: 4},
		Runner:    agentrunner.New(provider),
		Retrieval: testRetrievalConfig(),
		Config:    testConsolidationConfig(),
	}

	out, err := p.Run(context.Background(), Input{Content: "I go by Sarah now"}, nil)
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	assert.False(t, out.UserDescriptionUpdated)
	assert.Equal(t, "Sarah", store.user.Name)
}

func testRetrievalConfig() retrieval.Config {
	return retrieval.Config{
		LandCandidates: 10, AnchorMinMemories: 1, PPRDamping: 0.75, PPRIterations: 25,
		SemanticPPRAlpha: 0.5, FusionVectorWeight: 0.7, FusionFulltextWeight: 0.3,
		FusionThreshold: 3, FusionQualityFloor: 0.3, DistillTopK: 10, InvalidationDepth: 2,
	}
}

func testConsolidationConfig() Config {
	return Config{ContextTopK: 15, HydeResultsPerDoc: 10, EntityMatchesPerEntity: 5, HydeTemperature: 0.7}
}
