// Package graph defines the domain model (users, entities, memories,
// notes, and the edges joining them) and the abstract store contract the
// rest of the engine depends on. Concrete backends live in
// internal/graph/postgres and internal/graph/qdrant.
package graph

import "time"

// UserID is the fixed literal identifier of the singleton User node.
const UserID = "USER"

// EntityType is the closed classification set for Entity nodes.
type EntityType string

const (
	EntityPerson       EntityType = "Person"
	EntityOrganization EntityType = "Organization"
	EntityProject      EntityType = "Project"
	EntityTechnology   EntityType = "Technology"
	EntityLocation     EntityType = "Location"
	EntityEvent        EntityType = "Event"
	EntityConcept      EntityType = "Concept"
)

// ValidEntityTypes enumerates the closed 7-element set.
var ValidEntityTypes = []EntityType{
	EntityPerson, EntityOrganization, EntityProject, EntityTechnology,
	EntityLocation, EntityEvent, EntityConcept,
}

func (t EntityType) Valid() bool {
	for _, v := range ValidEntityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// User is the singleton node representing the human owner of the graph.
// isWellKnown is always false when observed externally.
type User struct {
	ID          string // always UserID
	Name        string
	Type        EntityType // always EntityPerson
	Description string
	Embedding   []float32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Entity is a node identified by a generated id and a globally unique name.
type Entity struct {
	ID          string
	Name        string
	Type        EntityType
	Description string
	Embedding   []float32
	IsWellKnown bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Memory is a single atomic fact.
type Memory struct {
	ID        string
	Content   string
	Embedding []float32
	CreatedAt time.Time
	ValidAt   *time.Time
	InvalidAt *time.Time
}

// Valid reports whether the memory has not been superseded.
func (m Memory) Valid() bool { return m.InvalidAt == nil }

// Note is the raw user submission that produced memories. Immutable after
// creation.
type Note struct {
	ID        string
	Content   string
	Timestamp time.Time
}

// Edge relation names.
const (
	RelAbout         = "ABOUT"
	RelExtractedFrom = "EXTRACTED_FROM"
	RelMentions      = "MENTIONS"
	RelInvalidates   = "INVALIDATES"
)

// InvalidationEdge carries the free-text reason an INVALIDATES edge was
// created with.
type InvalidationEdge struct {
	ID        string
	SourceID  string // new memory
	TargetID  string // superseded memory
	Reason    string
	CreatedAt time.Time
}
