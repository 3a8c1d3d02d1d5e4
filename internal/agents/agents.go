// Package agents defines the five LLM-backed bundles the consolidation
// pipeline runs through internal/agentrunner: entity extraction, entity
// resolution, memory extraction, memory resolution, and HyDE document
// generation. Each bundle is plain data (prompt, formatter, schema); the
// runner does the calling.
package agents

import (
	"fmt"
	"strings"

	"github.com/aziham/memento/internal/graph"
)

func entityTypeEnum() []any {
	out := make([]any, len(graph.ValidEntityTypes))
	for i, t := range graph.ValidEntityTypes {
		out[i] = string(t)
	}
	return out
}

// objectSchema is a small helper so every agent's schema reads as data, not
// a hand-rolled JSON blob duplicated five times.
func objectSchema(properties map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// alignByName asserts a one-to-one, case-insensitive correspondence
// between an input list of names and an LLM response's claimed names,
// per the engine's no-silent-repair rule: any mismatch is an error, not a
// best-effort patch.
func alignByName(inputNames, outputNames []string) error {
	if len(inputNames) != len(outputNames) {
		return fmt.Errorf("agents: expected %d items, got %d", len(inputNames), len(outputNames))
	}
	for i, want := range inputNames {
		got := outputNames[i]
		if !strings.EqualFold(want, got) {
			return fmt.Errorf("agents: item %d name mismatch: expected %q, got %q", i, want, got)
		}
	}
	return nil
}
