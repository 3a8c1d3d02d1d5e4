package graph

import (
	"context"
	"time"
)

// NodeLabel discriminates which node kind a search/vector operation
// targets.
type NodeLabel string

const (
	LabelMemory NodeLabel = "Memory"
	LabelEntity NodeLabel = "Entity"
)

// ScoredNode is one hit from a vector, full-text, hybrid, or PPR search.
type ScoredNode struct {
	ID    string
	Score float64
}

// SearchOptions modifies a search call's result set.
type SearchOptions struct {
	// ValidOnly restricts Memory search results to memories whose
	// InvalidAt is nil.
	ValidOnly bool
}

// EntityRef is a lightweight (id, name) pair, used where full entity
// details are unnecessary (e.g. ABOUT-entity listings).
type EntityRef struct {
	ID   string
	Name string
}

// EntityDetail is the full entity record plus whether it denotes the
// singleton user (appears as USER in ABOUT edges but is reified here with
// its real display name).
type EntityDetail struct {
	Entity
	IsUser bool
}

// InvalidationNode reifies an INVALIDATES chain as a finite, bounded tree
// in memory rather than a live back-pointer into the store. Depth is
// bounded to 2 hops by every caller.
type InvalidationNode struct {
	Memory      Memory
	Reason      string // reason on the edge pointing TO this node; "" at the root
	Invalidates []InvalidationNode
}

// Reader exposes point lookups.
type Reader interface {
	GetUser(ctx context.Context) (User, bool, error)
	GetEntityByID(ctx context.Context, id string) (Entity, bool, error)
	GetEntityByName(ctx context.Context, name string) (Entity, bool, error)
	GetMemoryByID(ctx context.Context, id string) (Memory, bool, error)
	// EntityDegree returns the number of edges (any relation, either
	// direction) touching the entity, used by the structural signal in
	// entity weighting.
	EntityDegree(ctx context.Context, id string) (int, error)
}

// Search exposes the vector/full-text/hybrid search primitives over
// Memory and Entity nodes.
type Search interface {
	SearchVector(ctx context.Context, label NodeLabel, vector []float32, k int, opts SearchOptions) ([]ScoredNode, error)
	SearchFulltext(ctx context.Context, label NodeLabel, query string, k int, opts SearchOptions) ([]ScoredNode, error)
	SearchHybrid(ctx context.Context, label NodeLabel, query string, vector []float32, k int, opts SearchOptions) ([]ScoredNode, error)
}

// Algorithms exposes graph-algorithmic primitives.
type Algorithms interface {
	// PersonalizedPageRank runs a damped random walk seeded at sourceIDs
	// (entity ids) and returns the top `limit` Memory nodes by score,
	// filtered to valid memories.
	PersonalizedPageRank(ctx context.Context, sourceIDs []string, damping float64, iterations, limit int) ([]ScoredNode, error)
}

// BulkReads exposes the batched reads TRACE and consolidation need, so a
// single round-trip can answer for many ids at once.
type BulkReads interface {
	// AboutEntityNames returns, per memory id, the entities (and/or the
	// user) it is ABOUT. USER is represented with EntityRef{ID: UserID}.
	AboutEntityNames(ctx context.Context, memoryIDs []string) (map[string][]EntityRef, error)
	// InvalidationChain returns, per memory id, the INVALIDATES subtree
	// rooted at that memory, truncated to maxDepth hops.
	InvalidationChain(ctx context.Context, memoryIDs []string, maxDepth int) (map[string]InvalidationNode, error)
	// ProvenanceNotes returns, per memory id, the Note it was
	// EXTRACTED_FROM (at most one per memory, per the data model).
	ProvenanceNotes(ctx context.Context, memoryIDs []string) (map[string]Note, error)
	// EntityDetailsByName returns full entity records keyed by name,
	// including the synthetic USER entry when requested.
	EntityDetailsByName(ctx context.Context, names []string) (map[string]EntityDetail, error)
}

// Writer is the set of mutating operations available both outside a
// transaction (rare; only used by maintenance tooling) and inside one via
// Tx, which embeds Writer.
type Writer interface {
	// CreateOrMergeEntity creates an entity by name if absent, or merges
	// into the existing one: isWellKnown is carried ONLY on creation and
	// is immutable on merge; description/embedding may be updated by the
	// caller via UpdateEntity afterwards if desired.
	CreateOrMergeEntity(ctx context.Context, name string, typ EntityType, description string, embedding []float32, isWellKnown bool) (Entity, bool, error)
	UpdateEntity(ctx context.Context, id string, description *string, embedding []float32) error

	CreateMemory(ctx context.Context, content string, embedding []float32, validAt *time.Time) (Memory, error)
	UpdateMemory(ctx context.Context, id string, content *string, embedding []float32, validAt, invalidAt *time.Time) error

	CreateNote(ctx context.Context, content string, timestamp time.Time) (Note, error)

	GetOrCreateUser(ctx context.Context, defaultName string, defaultEmbedding []float32) (User, error)
	UpdateUser(ctx context.Context, name *string, description *string, embedding []float32) error

	CreateAbout(ctx context.Context, memoryID, entityID string) error
	// CreateAboutUser is the USER-targeted counterpart of CreateAbout,
	// idempotent via merge (so re-consolidating never double-creates it).
	CreateAboutUser(ctx context.Context, memoryID string) error
	CreateExtractedFrom(ctx context.Context, memoryID, noteID string) error
	// CreateMentions is deduplicated by (noteID, entityID).
	CreateMentions(ctx context.Context, noteID, entityID string) error
	// CreateInvalidates creates the edge and sets target.InvalidAt to
	// effectiveTime in the same operation.
	CreateInvalidates(ctx context.Context, newMemoryID, targetMemoryID, reason string, effectiveTime time.Time) error
}

// Tx is the write-only handle passed to a transaction function. It embeds
// Writer so the consolidation pipeline's atomic write can be expressed as
// a sequence of Writer calls with no other surface available — there is
// no way to accidentally read-then-branch on stale data from inside a
// transaction.
type Tx interface {
	Writer
}

// Store is the full abstract graph contract the rest of the engine
// depends on. Any backend satisfying it — a graph database with
// vector/full-text indexes and a PPR primitive, or a composition of a
// relational store plus a vector index, as this module ships — is
// acceptable.
type Store interface {
	Reader
	Search
	Algorithms
	BulkReads
	Writer

	// ExecuteTransaction runs fn with a write-only handle; either every
	// operation commits or none does.
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
