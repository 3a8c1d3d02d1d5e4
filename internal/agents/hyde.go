package agents

import (
	"strings"

	"github.com/aziham/memento/internal/agentrunner"
)

// HydeDocument is one hypothetical memory-shaped document generated to
// improve recall via embedding search.
type HydeDocument struct {
	Content string `json:"content"`
}

// HydeInput is the set of memories returned by the first retrieval pass.
type HydeInput struct {
	Memories []string
}

// HydeOutput is three semantic paraphrases and three state-change variants
// of the input memories.
type HydeOutput struct {
	Semantic    []HydeDocument `json:"semantic"`
	StateChange []HydeDocument `json:"stateChange"`
}

const hydeSystemPrompt = `You generate hypothetical memory documents to expand retrieval recall.

Rules:
- Every document must be grounded in the given memories; never invent unrelated facts.
- USER is always the subject, consistent with how memories are phrased in this system.
- semantic: 3 documents that paraphrase or rephrase the given memories using different
  wording, synonyms, or phrasing a user might search with.
- stateChange: 3 documents that express an opposite or evolved state of one of the given
  memories (e.g. if a memory says USER works at Acme, a state-change document might say
  USER no longer works at Acme, or USER was promoted at Acme).`

// Hyde is the hypothetical-document-embedding agent.
var Hyde = agentrunner.Agent[HydeInput, HydeOutput]{
	Name:         "hyde",
	SystemPrompt: hydeSystemPrompt,
	SchemaName:   "hyde_documents",
	Schema: objectSchema(map[string]any{
		"semantic": map[string]any{
			"type":  "array",
			"items": objectSchema(map[string]any{"content": map[string]any{"type": "string"}}, []string{"content"}),
		},
		"stateChange": map[string]any{
			"type":  "array",
			"items": objectSchema(map[string]any{"content": map[string]any{"type": "string"}}, []string{"content"}),
		},
	}, []string{"semantic", "stateChange"}),
	FormatInput: func(in HydeInput) string {
		var b strings.Builder
		b.WriteString("Existing memories:\n")
		for _, m := range in.Memories {
			b.WriteString("- ")
			b.WriteString(m)
			b.WriteString("\n")
		}
		return b.String()
	},
	Temperature: 0.7,
	MaxTokens:   1024,
	MaxRetries:  2,
}
