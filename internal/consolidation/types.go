// Package consolidation implements the write path: given a note, extract
// and resolve entities and memories against the existing graph and commit
// them in a single atomic transaction.
package consolidation

import (
	"time"

	"github.com/aziham/memento/internal/config"
)

// Input is a note submitted for consolidation.
type Input struct {
	Content   string
	Timestamp time.Time
}

// CreatedEntity records one entity node touched by a consolidation run,
// for callers that want to report what changed.
type CreatedEntity struct {
	ID       string
	Name     string
	Decision string // CREATE | MATCH
}

// CreatedMemory records one memory node written by a consolidation run.
type CreatedMemory struct {
	ID       string
	Content  string
	Decision string // ADD | INVALIDATE
}

// Output is the result of one consolidation run.
type Output struct {
	Entities               []CreatedEntity
	Memories               []CreatedMemory
	UserDescriptionUpdated bool
	Skipped                bool
	SkipReason             string
}

// Config is the subset of engine configuration the consolidation pipeline
// needs.
type Config = config.ConsolidationConfig

const (
	skipReasonNoMemories = "No memories could be extracted from this note"
	skipReasonAllSkipped = "All memories were duplicates of existing knowledge"
)
