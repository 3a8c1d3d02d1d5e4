// Package qdrant is the vector-similarity backend for Memory and Entity
// embeddings. It keeps one collection per node label so a search never
// has to filter node kind out of the result set.
package qdrant

import (
	"context"
	"fmt"

	gouuid "github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/aziham/memento/internal/graph"
)

// originalIDField stores the caller's opaque node id in the point payload,
// since Qdrant point ids must be a UUID or an unsigned integer.
const originalIDField = "_node_id"

// Index is a thin wrapper around two Qdrant collections (memories,
// entities), satisfying the vector half of graph.Search.
type Index struct {
	client          *qdrant.Client
	memoryCollection string
	entityCollection string
	dimensions      int
}

// Config describes how to reach Qdrant and how the collections should be
// sized.
type Config struct {
	Host             string
	Port             int
	APIKey           string
	UseTLS           bool
	MemoryCollection string
	EntityCollection string
	Dimensions       int
}

func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.MemoryCollection == "" {
		cfg.MemoryCollection = "memento_memories"
	}
	if cfg.EntityCollection == "" {
		cfg.EntityCollection = "memento_entities"
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: dimensions must be > 0")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	idx := &Index{
		client:           client,
		memoryCollection: cfg.MemoryCollection,
		entityCollection: cfg.EntityCollection,
		dimensions:       cfg.Dimensions,
	}
	for _, coll := range []string{idx.memoryCollection, idx.entityCollection} {
		if err := idx.ensureCollection(ctx, coll); err != nil {
			client.Close()
			return nil, fmt.Errorf("ensure collection %s: %w", coll, err)
		}
	}
	return idx, nil
}

func (i *Index) ensureCollection(ctx context.Context, name string) error {
	exists, err := i.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(i.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (i *Index) collectionFor(label graph.NodeLabel) string {
	if label == graph.LabelEntity {
		return i.entityCollection
	}
	return i.memoryCollection
}

func pointID(id string) *qdrant.PointId {
	if _, err := gouuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(gouuid.NewSHA1(gouuid.NameSpaceOID, []byte(id)).String())
}

// Upsert stores or replaces the vector for a node id.
func (i *Index) Upsert(ctx context.Context, label graph.NodeLabel, id string, vector []float32) error {
	vec := make([]float32, len(vector))
	copy(vec, vector)
	point := &qdrant.PointStruct{
		Id:      pointID(id),
		Vectors: qdrant.NewVectorsDense(vec),
		Payload: qdrant.NewValueMap(map[string]any{originalIDField: id}),
	}
	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collectionFor(label),
		Points:         []*qdrant.PointStruct{point},
	})
	return err
}

// SearchVector returns the k nearest nodes to vector. validOnly has no
// meaning here (validity is a Memory-table concept); callers that need
// valid-only vector search over memories re-filter against the graph
// store's GetMemoryByID, same as the hybrid path does.
func (i *Index) SearchVector(ctx context.Context, label graph.NodeLabel, vector []float32, k int, _ graph.SearchOptions) ([]graph.ScoredNode, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	limit := uint64(k)
	hits, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collectionFor(label),
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]graph.ScoredNode, 0, len(hits))
	for _, h := range hits {
		id := ""
		if h.Payload != nil {
			if v, ok := h.Payload[originalIDField]; ok {
				id = v.GetStringValue()
			}
		}
		if id == "" {
			continue
		}
		out = append(out, graph.ScoredNode{ID: id, Score: float64(h.Score)})
	}
	return out, nil
}

func (i *Index) Close() error {
	return i.client.Close()
}
