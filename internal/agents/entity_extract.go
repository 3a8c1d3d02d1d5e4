package agents

import (
	"fmt"
	"strings"

	"github.com/aziham/memento/internal/agentrunner"
)

// ExtractedEntity is one entity surfaced from a note, before resolution
// against the existing graph.
type ExtractedEntity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	IsWellKnown bool   `json:"isWellKnown"`
}

// EntityExtractInput is the note text a user submitted, plus their known
// name (if any) so the agent can exclude self-references.
type EntityExtractInput struct {
	NoteContent   string
	KnownUserName *string
}

// EntityExtractOutput is every non-user entity mentioned in the note, plus
// any biographical facts about the user themselves.
type EntityExtractOutput struct {
	Entities              []ExtractedEntity `json:"entities"`
	UserBiographicalFacts *string           `json:"userBiographicalFacts"`
}

const entityExtractSystemPrompt = `You extract entities mentioned in a personal note.

Rules:
- Never extract the user themselves, their known name, or first-person pronouns as an entity.
- type must be one of: Person, Organization, Project, Technology, Location, Event, Concept.
- description is factual and dictionary-style: what the entity IS, not an opinion about it.
- isWellKnown is true only for entities a general-knowledge reader would already recognize
  (e.g. "Python", "Google"), never for people or projects private to the user.
- userBiographicalFacts captures only durable facts about the user: role, affiliation,
  location, expertise. Never preferences, moods, or one-off events. Use null if none.
- If the same entity is mentioned more than once, extract it only once.`

// EntityExtract is the entity-extraction agent.
var EntityExtract = agentrunner.Agent[EntityExtractInput, EntityExtractOutput]{
	Name:         "entity-extract",
	SystemPrompt: entityExtractSystemPrompt,
	SchemaName:   "entity_extraction",
	Schema: objectSchema(map[string]any{
		"entities": map[string]any{
			"type": "array",
			"items": objectSchema(map[string]any{
				"name":        map[string]any{"type": "string"},
				"type":        map[string]any{"type": "string", "enum": entityTypeEnum()},
				"description": map[string]any{"type": "string"},
				"isWellKnown": map[string]any{"type": "boolean"},
			}, []string{"name", "type", "description", "isWellKnown"}),
		},
		"userBiographicalFacts": map[string]any{"type": []any{"string", "null"}},
	}, []string{"entities", "userBiographicalFacts"}),
	FormatInput: func(in EntityExtractInput) string {
		var b strings.Builder
		if in.KnownUserName != nil && *in.KnownUserName != "" {
			fmt.Fprintf(&b, "Known user name: %s\n\n", *in.KnownUserName)
		}
		b.WriteString("Note:\n")
		b.WriteString(in.NoteContent)
		return b.String()
	},
	Temperature: 0.2,
	MaxTokens:   1024,
	MaxRetries:  2,
}
