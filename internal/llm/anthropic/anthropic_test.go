package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aziham/memento/internal/llm"
)

func TestSplitSystem_ExtractsSystemMessages(t *testing.T) {
	msgs := []llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	sys, converted := splitSystem(msgs)
	assert.Equal(t, "be terse", sys)
	assert.Len(t, converted, 2)
}

func TestSplitSystem_JoinsMultipleSystemMessages(t *testing.T) {
	msgs := []llm.Message{
		{Role: "system", Content: "first"},
		{Role: "system", Content: "second"},
	}
	sys, converted := splitSystem(msgs)
	assert.Equal(t, "first\n\nsecond", sys)
	assert.Empty(t, converted)
}

func TestToStringSlice_FiltersNonStrings(t *testing.T) {
	out := toStringSlice([]any{"a", 1, "b"})
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestToStringSlice_NilForWrongType(t *testing.T) {
	assert.Nil(t, toStringSlice("not a slice"))
}

func TestCompleteJSONSchema_ReportsUnsupported(t *testing.T) {
	c := &Client{model: "claude-3-7-sonnet-latest", maxTokens: defaultMaxTokens}
	_, err := c.CompleteJSONSchema(nil, nil, "x", nil, llm.CompletionOptions{})
	var unsupported *llm.ErrStrategyUnsupported
	assert.ErrorAs(t, err, &unsupported)
}
