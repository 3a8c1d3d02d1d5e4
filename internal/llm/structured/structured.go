// Package structured implements the completeJSON tiered-strategy retry:
// native structured output, then tool calling, then JSON mode, then a
// plain-prompt-with-extraction fallback, falling through to the next
// strategy only when the current one fails outright.
package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/aziham/memento/internal/llm"
	"github.com/aziham/memento/internal/logging"
)

// CompleteJSON runs the tiered strategy against provider and unmarshals the
// winning strategy's output into out (a pointer). schemaName/schema
// describe the target shape for the strategies that can use it natively.
func CompleteJSON(ctx context.Context, provider llm.StructuredProvider, schemaName string, schema map[string]any, msgs []llm.Message, opts llm.CompletionOptions, out any) error {
	log := logging.FromContext(ctx)

	strategies := []struct {
		name string
		run  func() (json.RawMessage, error)
	}{
		{"json_schema", func() (json.RawMessage, error) {
			return provider.CompleteJSONSchema(ctx, msgs, schemaName, schema, opts)
		}},
		{"tool_call", func() (json.RawMessage, error) {
			return provider.CompleteToolCall(ctx, msgs, schemaName, schema, opts)
		}},
		{"json_mode", func() (json.RawMessage, error) {
			return provider.CompleteJSONMode(ctx, msgs, opts)
		}},
		{"prompt_extraction", func() (json.RawMessage, error) {
			return completeWithExtraction(ctx, provider, msgs, opts)
		}},
	}

	var errs []error
	for _, s := range strategies {
		raw, err := s.run()
		if err != nil {
			var unsupported *llm.ErrStrategyUnsupported
			if errors.As(err, &unsupported) {
				continue
			}
			log.Debug().Err(err).Str("strategy", s.name).Msg("structured_completion_strategy_failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		repaired, err := repairAndUnmarshal(raw, out)
		if err != nil {
			log.Debug().Err(err).Str("strategy", s.name).Msg("structured_completion_unmarshal_failed")
			errs = append(errs, fmt.Errorf("%s: unmarshal: %w", s.name, err))
			continue
		}
		_ = repaired
		return nil
	}
	return fmt.Errorf("structured completion: every strategy failed: %w", errors.Join(errs...))
}

// completeWithExtraction asks for plain text and pulls out the first
// balanced JSON object it can find, as a last resort for backends/models
// that ignore every structured-response instruction.
func completeWithExtraction(ctx context.Context, provider llm.StructuredProvider, msgs []llm.Message, opts llm.CompletionOptions) (json.RawMessage, error) {
	prompted := append(append([]llm.Message{}, msgs...), llm.Message{
		Role:    "system",
		Content: "Respond with a single JSON object and nothing else: no prose, no markdown code fences.",
	})
	resp, err := provider.Chat(ctx, prompted, opts)
	if err != nil {
		return nil, err
	}
	obj := extractJSONObject(resp.Content)
	if obj == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	return json.RawMessage(obj), nil
}

// extractJSONObject returns the first balanced {...} substring, stripping
// markdown code fences first since models routinely wrap JSON in them
// despite being told not to.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// repairAndUnmarshal tries a direct Unmarshal first and only calls into
// jsonrepair (which rewrites common model mistakes: trailing commas,
// unquoted keys, single quotes) when that fails.
func repairAndUnmarshal(raw json.RawMessage, out any) (json.RawMessage, error) {
	if err := json.Unmarshal(raw, out); err == nil {
		return raw, nil
	}
	repaired, err := jsonrepair.JSONRepair(string(raw))
	if err != nil {
		return nil, fmt.Errorf("jsonrepair: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return nil, fmt.Errorf("unmarshal after repair: %w", err)
	}
	return json.RawMessage(repaired), nil
}
