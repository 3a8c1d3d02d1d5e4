package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/aziham/memento/internal/agentrunner"
)

// ResolvedEntityRef is the name/type/action of an entity already resolved
// against the graph, offered to the memory-extraction agent as context.
type ResolvedEntityRef struct {
	Name   string
	Type   string
	Action string // CREATE | MATCH
}

// MemoryExtractInput is a note, its submission timestamp, and the entities
// already resolved from it.
type MemoryExtractInput struct {
	NoteContent    string
	NoteTimestamp  time.Time
	ResolvedEntities []ResolvedEntityRef
}

// ExtractedMemory is one atomic fact pulled from a note, not yet resolved
// against existing memories.
type ExtractedMemory struct {
	Content      string   `json:"content"`
	AboutEntities []string `json:"aboutEntities"`
	ValidAt      *string  `json:"validAt"` // RFC3339 or null
}

// MemoryExtractOutput is the ordered list of atomic memories found in the
// note.
type MemoryExtractOutput struct {
	Memories []ExtractedMemory `json:"memories"`
}

const memoryExtractSystemPrompt = `You extract atomic factual memories from a personal note.

Rules:
- Rewrite first-person pronouns (I, me, my, we, our) to the literal token USER.
- aboutEntities lists the exact resolved entity names this memory concerns, plus USER
  whenever the user is an implicit subject (e.g. "USER joined Acme" is about USER and Acme).
- Preserve temporal phrases in content verbatim (e.g. "last March", "since 2019"); separately
  compute validAt as an absolute RFC3339 timestamp relative to the note timestamp, or null if
  the memory has no specific validity start.
- Split compound statements into separate atomic memories; do not merge unrelated facts.
- Only use entity names that appear in the resolved entity list, plus USER.`

// MemoryExtract is the memory-extraction agent.
var MemoryExtract = agentrunner.Agent[MemoryExtractInput, MemoryExtractOutput]{
	Name:         "memory-extract",
	SystemPrompt: memoryExtractSystemPrompt,
	SchemaName:   "memory_extraction",
	Schema: objectSchema(map[string]any{
		"memories": map[string]any{
			"type": "array",
			"items": objectSchema(map[string]any{
				"content":       map[string]any{"type": "string"},
				"aboutEntities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"validAt":       map[string]any{"type": []any{"string", "null"}},
			}, []string{"content", "aboutEntities", "validAt"}),
		},
	}, []string{"memories"}),
	FormatInput: func(in MemoryExtractInput) string {
		var b strings.Builder
		fmt.Fprintf(&b, "Note timestamp: %s\n\n", in.NoteTimestamp.Format(time.RFC3339))
		b.WriteString("Resolved entities:\n")
		for _, e := range in.ResolvedEntities {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", e.Name, e.Type, e.Action)
		}
		b.WriteString("\nNote:\n")
		b.WriteString(in.NoteContent)
		return b.String()
	},
	Temperature: 0.2,
	MaxTokens:   2048,
	MaxRetries:  2,
}
