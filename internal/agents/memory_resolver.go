package agents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aziham/memento/internal/agentrunner"
)

// ExistingMemoryRef is one memory already in the graph, offered to the
// memory-resolver as shared context (not per-memory search).
type ExistingMemoryRef struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// MemoryResolverInput is every memory extracted from the current note plus
// every currently valid existing memory, as shared context.
type MemoryResolverInput struct {
	Extracted []ExtractedMemory
	Existing  []ExistingMemoryRef
}

// InvalidationTarget is one existing memory a new memory supersedes.
type InvalidationTarget struct {
	ExistingMemoryID string `json:"existingMemoryId"`
	Reason           string `json:"reason"`
}

// MemoryDecision is the resolver's verdict for one extracted memory.
type MemoryDecision struct {
	Decision string                `json:"decision"` // ADD | SKIP | INVALIDATE
	Targets  []InvalidationTarget  `json:"targets"`
}

// MemoryResolverOutput is one decision per extracted memory, in the same
// order they were extracted.
type MemoryResolverOutput struct {
	Decisions []MemoryDecision `json:"decisions"`
}

const memoryResolverSystemPrompt = `You resolve newly extracted memories against the existing memory set.

Rules:
- ADD: the memory is new information with no conflicting or duplicate existing memory.
- SKIP: the memory duplicates an existing valid memory (same fact, no new information).
- INVALIDATE: the memory represents a state change that supersedes one or more existing
  memories (job change, relocation, relationship change, task completion), or a temporal
  restatement/correction of the same fact stated more precisely. List every superseded
  memory as a target with a short reason each.
- Distinct event identifiers are never invalidations: consecutive instances of a recurring
  event (e.g. attending a conference two years running) are ADDs, not INVALIDATEs, because
  they describe different occurrences, not a changed state.
- Return exactly one decision per extracted memory, in the same order given. A decision with
  an empty targets list is only valid for ADD or SKIP.`

// MemoryResolver is the memory-resolution agent.
var MemoryResolver = agentrunner.Agent[MemoryResolverInput, MemoryResolverOutput]{
	Name:         "memory-resolver",
	SystemPrompt: memoryResolverSystemPrompt,
	SchemaName:   "memory_resolution",
	Schema: objectSchema(map[string]any{
		"decisions": map[string]any{
			"type": "array",
			"items": objectSchema(map[string]any{
				"decision": map[string]any{"type": "string", "enum": []any{"ADD", "SKIP", "INVALIDATE"}},
				"targets": map[string]any{
					"type": "array",
					"items": objectSchema(map[string]any{
						"existingMemoryId": map[string]any{"type": "string"},
						"reason":           map[string]any{"type": "string"},
					}, []string{"existingMemoryId", "reason"}),
				},
			}, []string{"decision", "targets"}),
		},
	}, []string{"decisions"}),
	FormatInput: func(in MemoryResolverInput) string {
		var b strings.Builder
		b.WriteString("Extracted memories (in order):\n")
		for i, m := range in.Extracted {
			fmt.Fprintf(&b, "%d. %s (about: %s)\n", i+1, m.Content, strings.Join(m.AboutEntities, ", "))
		}
		b.WriteString("\nExisting memories:\n")
		if len(in.Existing) == 0 {
			b.WriteString("none\n")
		} else {
			ej, _ := json.Marshal(in.Existing)
			fmt.Fprintf(&b, "%s\n", ej)
		}
		return b.String()
	},
	Temperature: 0.2,
	MaxTokens:   2048,
	MaxRetries:  2,
}

// AlignDecisions checks that the resolver returned exactly one decision per
// extracted memory, in order.
func AlignDecisions(extracted []ExtractedMemory, decisions []MemoryDecision) error {
	if len(extracted) != len(decisions) {
		return fmt.Errorf("agents: expected %d memory decisions, got %d", len(extracted), len(decisions))
	}
	return nil
}
