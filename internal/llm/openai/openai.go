// Package openai adapts the OpenAI chat completions API to llm.StructuredProvider.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"github.com/aziham/memento/internal/llm"
	"github.com/aziham/memento/internal/logging"
)

// Client wraps the OpenAI SDK client with a default model.
type Client struct {
	sdk   sdk.Client
	model string
}

// Config describes how to reach the chat completions endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

const DefaultModel = "gpt-4o-mini"

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key must not be empty")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}, nil
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

func (c *Client) baseParams(msgs []llm.Message, opts llm.CompletionOptions) sdk.ChatCompletionNewParams {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: adaptMessages(msgs),
	}
	if opts.Temperature != nil {
		params.Temperature = param.NewOpt(*opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(opts.MaxTokens)
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
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", string(params.Model)).Dur("duration", dur).Msg("openai_chat_error")
		return llm.Message{}, fmt.Errorf("openai chat: %w", err)
	}
	log.Debug().Str("model", string(params.Model)).Dur("duration", dur).
		Int("prompt_tokens", int(comp.Usage.PromptTokens)).
		Int("completion_tokens", int(comp.Usage.CompletionTokens)).
		Msg("openai_chat_ok")
	if len(comp.Choices) == 0 {
		return llm.Message{}, fmt.Errorf("openai chat: no choices returned")
	}
	return llm.Message{Role: "assistant", Content: comp.Choices[0].Message.Content}, nil
}

// CompleteJSONSchema asks for a response_format-constrained completion,
// OpenAI's native structured-output mechanism.
func (c *Client) CompleteJSONSchema(ctx context.Context, msgs []llm.Message, schemaName string, schema map[string]any, opts llm.CompletionOptions) (json.RawMessage, error) {
	log := logging.FromContext(ctx)
	params := c.baseParams(msgs, opts)
	params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   schemaName,
				Schema: schema,
				Strict: param.NewOpt(true),
			},
		},
	}

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Debug().Err(err).Dur("duration", dur).Msg("openai_json_schema_error")
		return nil, fmt.Errorf("openai json schema: %w", err)
	}
	if len(comp.Choices) == 0 {
		return nil, fmt.Errorf("openai json schema: no choices returned")
	}
	return json.RawMessage(comp.Choices[0].Message.Content), nil
}

// CompleteToolCall forces the response through a single synthetic tool
// call shaped like schema, since some models support tool calling but not
// response_format: json_schema.
func (c *Client) CompleteToolCall(ctx context.Context, msgs []llm.Message, schemaName string, schema map[string]any, opts llm.CompletionOptions) (json.RawMessage, error) {
	log := logging.FromContext(ctx)
	params := c.baseParams(msgs, opts)
	params.Tools = []sdk.ChatCompletionToolUnionParam{
		sdk.ChatCompletionFunctionTool(sdk.FunctionDefinitionParam{
			Name:        schemaName,
			Description: param.NewOpt("Return the result in this exact shape."),
			Parameters:  sdk.FunctionParameters(schema),
		}),
	}
	params.ToolChoice = sdk.ChatCompletionToolChoiceOptionUnionParam{
		OfFunctionToolChoice: &sdk.ChatCompletionNamedToolChoiceParam{
			Function: sdk.ChatCompletionNamedToolChoiceFunctionParam{Name: schemaName},
		},
	}

	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Debug().Err(err).Msg("openai_tool_call_error")
		return nil, fmt.Errorf("openai tool call: %w", err)
	}
	if len(comp.Choices) == 0 || len(comp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("openai tool call: model did not call the tool")
	}
	call := comp.Choices[0].Message.ToolCalls[0]
	fn := call.AsAny()
	if tc, ok := fn.(sdk.ChatCompletionMessageFunctionToolCall); ok {
		return json.RawMessage(tc.Function.Arguments), nil
	}
	return nil, fmt.Errorf("openai tool call: unexpected tool call shape")
}

// CompleteJSONMode asks for an unconstrained JSON object.
func (c *Client) CompleteJSONMode(ctx context.Context, msgs []llm.Message, opts llm.CompletionOptions) (json.RawMessage, error) {
	log := logging.FromContext(ctx)
	params := c.baseParams(msgs, opts)
	params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
	}

	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Debug().Err(err).Msg("openai_json_mode_error")
		return nil, fmt.Errorf("openai json mode: %w", err)
	}
	if len(comp.Choices) == 0 {
		return nil, fmt.Errorf("openai json mode: no choices returned")
	}
	return json.RawMessage(comp.Choices[0].Message.Content), nil
}

var _ llm.StructuredProvider = (*Client)(nil)
