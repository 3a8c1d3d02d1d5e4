package agents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aziham/memento/internal/agentrunner"
)

// EntityCandidateMatch is one hybrid-search hit offered to the resolver as
// a possible match for an extracted entity.
type EntityCandidateMatch struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Description string `json:"description"`
	Similarity float64 `json:"similarity"`
}

// EntityResolveItem bundles one extracted entity with its search results,
// ready for the resolver.
type EntityResolveItem struct {
	Name        string
	Type        string
	Description string
	IsWellKnown bool
	Matches     []EntityCandidateMatch
}

// EntityResolverInput is every entity extracted from a note, the
// biographical facts just extracted, and the user's current name/description.
type EntityResolverInput struct {
	Items                  []EntityResolveItem
	CurrentUserName        *string
	CurrentUserDescription string
	NewBiographicalFacts   *string
}

// EntityResolution is the decision for one extracted entity: either CREATE
// a new node or MATCH an existing one.
type EntityResolution struct {
	Name             string `json:"name"`
	Decision         string `json:"decision"` // CREATE | MATCH
	MatchedID        *string `json:"matchedId"`
	UpdateDescription bool   `json:"updateDescription"`
	MergedDescription *string `json:"mergedDescription"`
}

// UserDescriptionUpdate is the resolver's verdict on whether the user's
// description node should change, and whether the note revealed a name for
// the user that differs from the one currently on file.
type UserDescriptionUpdate struct {
	ShouldUpdate      bool    `json:"shouldUpdate"`
	MergedDescription *string `json:"mergedDescription"`
	Reason            *string `json:"reason"`
	DetectedName      *string `json:"detectedName"`
}

// EntityResolverOutput is one resolution per input entity, in the same
// order, plus the user-description verdict.
type EntityResolverOutput struct {
	Resolutions  []EntityResolution     `json:"resolutions"`
	UserUpdate   UserDescriptionUpdate  `json:"userDescriptionUpdate"`
}

const entityResolverSystemPrompt = `You resolve newly extracted entities against existing graph entities.

Rules:
- Entities that share a name but differ in type are distinct entities: never match across types.
- When in doubt, choose CREATE. A MATCH must be a clear, confident identity, not a loose
  topical similarity.
- isWellKnown is carried only when the decision is CREATE; it is immutable and never set on MATCH.
- On MATCH, updateDescription is true only when the new description adds information the
  existing one lacks; mergedDescription is then the combined factual description.
- The user-description update is independent of entity resolution: decide shouldUpdate based
  on whether the newly extracted biographical facts add information the current description
  lacks. If there are no new facts, shouldUpdate is false and mergedDescription/reason are null.
- detectedName is set only when the note itself reveals the user's name (e.g. an introduction,
  a signature, a correction of a prior name) and it differs case-insensitively from the current
  one; otherwise it is null.
- Return exactly one resolution per input entity, in the same order, using the exact input name.`

// EntityResolver is the entity-resolution agent.
var EntityResolver = agentrunner.Agent[EntityResolverInput, EntityResolverOutput]{
	Name:         "entity-resolver",
	SystemPrompt: entityResolverSystemPrompt,
	SchemaName:   "entity_resolution",
	Schema: objectSchema(map[string]any{
		"resolutions": map[string]any{
			"type": "array",
			"items": objectSchema(map[string]any{
				"name":              map[string]any{"type": "string"},
				"decision":          map[string]any{"type": "string", "enum": []any{"CREATE", "MATCH"}},
				"matchedId":         map[string]any{"type": []any{"string", "null"}},
				"updateDescription": map[string]any{"type": "boolean"},
				"mergedDescription": map[string]any{"type": []any{"string", "null"}},
			}, []string{"name", "decision", "matchedId", "updateDescription", "mergedDescription"}),
		},
		"userDescriptionUpdate": objectSchema(map[string]any{
			"shouldUpdate":      map[string]any{"type": "boolean"},
			"mergedDescription": map[string]any{"type": []any{"string", "null"}},
			"reason":            map[string]any{"type": []any{"string", "null"}},
			"detectedName":      map[string]any{"type": []any{"string", "null"}},
		}, []string{"shouldUpdate", "mergedDescription", "reason", "detectedName"}),
	}, []string{"resolutions", "userDescriptionUpdate"}),
	FormatInput: func(in EntityResolverInput) string {
		var b strings.Builder
		if in.CurrentUserName != nil && *in.CurrentUserName != "" {
			fmt.Fprintf(&b, "Current user name: %s\n", *in.CurrentUserName)
		}
		fmt.Fprintf(&b, "Current user description: %s\n", in.CurrentUserDescription)
		if in.NewBiographicalFacts != nil {
			fmt.Fprintf(&b, "Newly extracted biographical facts: %s\n", *in.NewBiographicalFacts)
		} else {
			b.WriteString("Newly extracted biographical facts: none\n")
		}
		b.WriteString("\nEntities to resolve (in order):\n")
		for i, item := range in.Items {
			fmt.Fprintf(&b, "%d. name=%q type=%q description=%q isWellKnown=%v\n",
				i+1, item.Name, item.Type, item.Description, item.IsWellKnown)
			if len(item.Matches) == 0 {
				b.WriteString("   candidates: none\n")
				continue
			}
			mj, _ := json.Marshal(item.Matches)
			fmt.Fprintf(&b, "   candidates: %s\n", mj)
		}
		return b.String()
	},
	Temperature: 0.1,
	MaxTokens:   2048,
	MaxRetries:  2,
}

// AlignResolutions checks that the resolver returned exactly one resolution
// per input entity, in order, by name.
func AlignResolutions(items []EntityResolveItem, resolutions []EntityResolution) error {
	inputNames := make([]string, len(items))
	for i, it := range items {
		inputNames[i] = it.Name
	}
	outputNames := make([]string, len(resolutions))
	for i, r := range resolutions {
		outputNames[i] = r.Name
	}
	return alignByName(inputNames, outputNames)
}
