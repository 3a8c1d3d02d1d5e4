// Package retrieval implements the LAND -> ANCHOR -> EXPAND -> DISTILL ->
// TRACE pipeline: given a query and its embedding, produce a ranked list
// of memories with full graph context.
package retrieval

import (
	"time"

	"github.com/aziham/memento/internal/config"
)

// Source tags where a memory result came from.
type Source string

const (
	SourceVector   Source = "vector"
	SourceFulltext Source = "fulltext"
	SourceSemPPR   Source = "sem-ppr"
	SourceMultiple Source = "multiple"
)

// Provenance is the note a memory was extracted from.
type Provenance struct {
	NoteID        string    `json:"noteId"`
	NoteContent   string    `json:"noteContent"`
	NoteTimestamp time.Time `json:"noteTimestamp"`
}

// InvalidatedMemory reifies one node of an INVALIDATES subtree, bounded to
// 2 hops.
type InvalidatedMemory struct {
	ID            string               `json:"id"`
	Content       string               `json:"content"`
	ValidAt       *time.Time           `json:"validAt,omitempty"`
	InvalidatedAt *time.Time           `json:"invalidatedAt,omitempty"`
	Reason        *string              `json:"reason,omitempty"`
	Invalidated   []InvalidatedMemory  `json:"invalidated,omitempty"`
}

// MemoryResult is one ranked memory in the retrieval output.
type MemoryResult struct {
	Rank            int                  `json:"rank"`
	ID              string               `json:"id"`
	Content         string               `json:"content"`
	Score           float64              `json:"score"`
	Source          Source               `json:"source"`
	About           []string             `json:"about"`
	AboutEntityIDs  []string             `json:"aboutEntityIds"`
	ValidAt         *time.Time           `json:"validAt,omitempty"`
	Invalidates     []InvalidatedMemory  `json:"invalidates,omitempty"`
	ExtractedFrom   *Provenance          `json:"extractedFrom,omitempty"`
}

// EntityResult is one entity referenced by at least one selected memory.
type EntityResult struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description,omitempty"`
	IsWellKnown bool    `json:"isWellKnown"`
	IsUser      bool    `json:"isUser"`
	MemoryCount int     `json:"memoryCount"`
}

// Meta carries diagnostics about a retrieval run.
type Meta struct {
	TotalCandidates int   `json:"totalCandidates"`
	DurationMs      int64 `json:"durationMs"`
}

// Output is the stable wire contract every retrieval run produces.
type Output struct {
	Query    string         `json:"query"`
	Entities []EntityResult `json:"entities"`
	Memories []MemoryResult `json:"memories"`
	Meta     Meta           `json:"meta"`
}

// candidate is the internal working representation of a scored memory
// before TRACE enrichment.
type candidate struct {
	id        string
	score     float64
	source    Source
	embedding []float32
	content   string
	validAt   *time.Time
}

// Config is the subset of the engine config the pipeline needs, pulled out
// of config.RetrievalConfig so callers don't have to thread the whole
// config tree through.
type Config = config.RetrievalConfig
