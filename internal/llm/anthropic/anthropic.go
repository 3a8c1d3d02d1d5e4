// Package anthropic adapts the Anthropic Messages API to llm.StructuredProvider.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aziham/memento/internal/llm"
	"github.com/aziham/memento/internal/logging"
)

const defaultMaxTokens int64 = 2048

// Client wraps the Anthropic SDK client with a default model.
type Client struct {
	sdk       sdk.Client
	model     string
	maxTokens int64
}

// Config describes how to reach the Messages endpoint.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
}

const DefaultModel = "claude-3-7-sonnet-latest"

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key must not be empty")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model, maxTokens: maxTokens}, nil
}

// splitSystem pulls out system-role messages (Anthropic takes system as a
// top-level field, not a message) and converts the rest.
func splitSystem(msgs []llm.Message) (string, []sdk.MessageParam) {
	var sys strings.Builder
	converted := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if strings.EqualFold(m.Role, "system") {
			if sys.Len() > 0 {
				sys.WriteString("\n\n")
			}
			sys.WriteString(m.Content)
			continue
		}
		if strings.EqualFold(m.Role, "assistant") {
			converted = append(converted, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		} else {
			converted = append(converted, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	return sys.String(), converted
}

func (c *Client) baseParams(msgs []llm.Message, opts llm.CompletionOptions) sdk.MessageNewParams {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	sys, converted := splitSystem(msgs)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		Messages:  converted,
		MaxTokens: maxTokens,
	}
	if sys != "" {
		params.System = []sdk.TextBlockParam{{Text: sys}}
	}
	if opts.Temperature != nil {
		params.Temperature = sdk.Float(*opts.Temperature)
	}
	if len(opts.Extra) > 0 {
		params.SetExtraFields(opts.Extra)
	}
	return params
}

// Chat implements llm.Provider.
func (c *Client) Chat(ctx context.Context, msgs []llm.Message, opts llm.CompletionOptions) (llm.Message, error) {
	log := logging.FromContext(ctx)
	params := c.baseParams(msgs, opts)

	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", string(params.Model)).Dur("duration", dur).Msg("anthropic_chat_error")
		return llm.Message{}, fmt.Errorf("anthropic chat: %w", err)
	}
	log.Debug().Str("model", string(params.Model)).Dur("duration", dur).
		Int64("input_tokens", resp.Usage.InputTokens).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Msg("anthropic_chat_ok")

	var text strings.Builder
	for _, block := range resp.Content {
		if tb := block.AsText(); tb.Text != "" {
			text.WriteString(tb.Text)
		}
	}
	return llm.Message{Role: "assistant", Content: text.String()}, nil
}

// CompleteJSONSchema has no Anthropic equivalent; the Messages API has no
// response_format parameter, so this strategy is always skipped in favor
// of tool calling.
func (c *Client) CompleteJSONSchema(ctx context.Context, msgs []llm.Message, schemaName string, schema map[string]any, opts llm.CompletionOptions) (json.RawMessage, error) {
	return nil, &llm.ErrStrategyUnsupported{Strategy: "json_schema"}
}

// CompleteToolCall forces the response through a single tool shaped like
// schema and returns its input.
func (c *Client) CompleteToolCall(ctx context.Context, msgs []llm.Message, schemaName string, schema map[string]any, opts llm.CompletionOptions) (json.RawMessage, error) {
	log := logging.FromContext(ctx)
	params := c.baseParams(msgs, opts)
	params.Tools = []sdk.ToolUnionParam{
		{
			OfTool: &sdk.ToolParam{
				Name:        schemaName,
				Description: sdk.String("Return the result in this exact shape."),
				InputSchema: sdk.ToolInputSchemaParam{
					Properties: schema["properties"],
					Required:   toStringSlice(schema["required"]),
				},
			},
		},
	}
	params.ToolChoice = sdk.ToolChoiceUnionParam{
		OfTool: &sdk.ToolChoiceToolParam{Name: schemaName},
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		log.Debug().Err(err).Msg("anthropic_tool_call_error")
		return nil, fmt.Errorf("anthropic tool call: %w", err)
	}
	for _, block := range resp.Content {
		if tu := block.AsToolUse(); tu.Name == schemaName {
			return json.RawMessage(tu.Input), nil
		}
	}
	return nil, fmt.Errorf("anthropic tool call: model did not call the tool")
}

// CompleteJSONMode reports the json_mode tier unsupported: Anthropic has no
// dedicated JSON response mode, and a plain completion here would repeat
// the request prompt-with-extraction sends one tier down.
func (c *Client) CompleteJSONMode(ctx context.Context, msgs []llm.Message, opts llm.CompletionOptions) (json.RawMessage, error) {
	return nil, &llm.ErrStrategyUnsupported{Strategy: "json_mode"}
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

var _ llm.StructuredProvider = (*Client)(nil)
