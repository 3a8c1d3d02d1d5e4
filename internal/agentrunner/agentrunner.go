// Package agentrunner builds prompts, calls the LLM structured-completion
// contract, and retries on failure — the one place every consolidation
// agent (entity-extract, entity-resolve, memory-extract, memory-resolve,
// HyDE) funnels through.
package agentrunner

import (
	"context"
	"fmt"

	"github.com/aziham/memento/internal/errs"
	"github.com/aziham/memento/internal/llm"
	"github.com/aziham/memento/internal/llm/structured"
	"github.com/aziham/memento/internal/stats"
)

// Agent bundles a system prompt, an input formatter, and an output schema.
// Out is the zero value of the type the agent's JSON response unmarshals
// into; Runner allocates a fresh copy of it on every call so callers never
// see state bleed across invocations.
type Agent[In, Out any] struct {
	Name         string
	SystemPrompt string
	SchemaName   string
	Schema       map[string]any
	FormatInput  func(in In) string
	Temperature  float64
	MaxTokens    int64
	MaxRetries   int
}

// CallOptions lets a caller override the agent's default temperature for
// a single call (the HyDE step passes the configured HyDE temperature)
// without mutating the shared Agent value.
type CallOptions struct {
	Temperature *float64
	Extra       map[string]any
}

// Runner executes agents against a structured LLM provider, accounting
// call and retry counts on the shared Stats for the in-flight request.
type Runner struct {
	Provider llm.StructuredProvider
}

func New(provider llm.StructuredProvider) *Runner {
	return &Runner{Provider: provider}
}

// Run formats in, calls the agent's schema-constrained completion, and
// retries up to agent.MaxRetries times on failure. It never injects
// feedback between retries: internal/llm/structured already tries each
// strategy once in turn, so a Run-level retry only re-issues the
// same request, which is valuable when the failure was a transient
// network/provider error rather than a persistently malformed response.
func Run[In, Out any](ctx context.Context, r *Runner, agent Agent[In, Out], in In, s *stats.Stats, opts CallOptions) (Out, error) {
	var out Out
	msgs := []llm.Message{
		{Role: "system", Content: agent.SystemPrompt},
		{Role: "user", Content: agent.FormatInput(in)},
	}

	temperature := agent.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	callOpts := llm.CompletionOptions{
		Temperature: &temperature,
		MaxTokens:   agent.MaxTokens,
		Extra:       opts.Extra,
	}

	maxRetries := agent.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if s != nil {
			s.IncLLMCall()
			if attempt > 0 {
				s.IncLLMRetry()
			}
		}
		var result Out
		err := structured.CompleteJSON(ctx, r.Provider, agent.SchemaName, agent.Schema, msgs, callOpts, &result)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return out, errs.New(errs.KindAgentSchema, agent.Name, fmt.Errorf("failed after %d attempt(s): %w", maxRetries+1, lastErr))
}
