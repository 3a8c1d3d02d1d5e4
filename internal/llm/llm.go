// Package llm defines the structured-completion contract the rest of the
// engine depends on. Concrete backends live in internal/llm/openai and
// internal/llm/anthropic; the tiered-strategy retry that turns either
// backend into a schema-returning completeJSON lives in
// internal/llm/structured.
package llm

import (
	"context"
	"encoding/json"
)

// Message is a single turn in a chat-style completion request.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ToolSchema describes a single callable tool, reused here to force a
// schema-shaped response via tool calling.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// CompletionOptions carries the knobs an agent call can set without
// reaching into a specific backend's param types.
type CompletionOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   int64
	// Extra carries opaque provider-specific fields (e.g. reasoning_effort)
	// verbatim to the backend.
	Extra map[string]any
}

// Provider is a plain chat completion backend.
type Provider interface {
	Chat(ctx context.Context, msgs []Message, opts CompletionOptions) (Message, error)
}

// StructuredProvider is the superset of strategies the tiered retry in
// internal/llm/structured tries in preference order. A backend that can't
// support a strategy returns ErrStrategyUnsupported so the caller moves on
// to the next one without burning a retry.
type StructuredProvider interface {
	Provider

	// CompleteJSONSchema asks for a response constrained to schema via the
	// backend's native structured-output mechanism (OpenAI's
	// response_format: json_schema, Anthropic has none and returns
	// ErrStrategyUnsupported).
	CompleteJSONSchema(ctx context.Context, msgs []Message, schemaName string, schema map[string]any, opts CompletionOptions) (json.RawMessage, error)

	// CompleteToolCall forces the model to respond via a single synthetic
	// tool call shaped like schema, and returns the call's arguments.
	CompleteToolCall(ctx context.Context, msgs []Message, schemaName string, schema map[string]any, opts CompletionOptions) (json.RawMessage, error)

	// CompleteJSONMode asks for an unconstrained JSON object (no schema
	// enforcement) via the backend's JSON-mode response format.
	CompleteJSONMode(ctx context.Context, msgs []Message, opts CompletionOptions) (json.RawMessage, error)
}

// ErrStrategyUnsupported signals that a backend has no native
// implementation of a strategy; internal/llm/structured treats it as a
// transparent skip, not a retry-worthy failure.
type ErrStrategyUnsupported struct {
	Strategy string
}

func (e *ErrStrategyUnsupported) Error() string {
	return "llm: strategy not supported: " + e.Strategy
}
