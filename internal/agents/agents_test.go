package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignByName_MatchesCaseInsensitively(t *testing.T) {
	err := alignByName([]string{"Acme Corp", "Go"}, []string{"acme corp", "GO"})
	require.NoError(t, err)
}

func TestAlignByName_LengthMismatchErrors(t *testing.T) {
	err := alignByName([]string{"Acme"}, []string{"Acme", "Extra"})
	require.Error(t, err)
}

func TestAlignByName_NameMismatchErrors(t *testing.T) {
	err := alignByName([]string{"Acme"}, []string{"Globex"})
	require.Error(t, err)
}

func TestObjectSchema_SetsAdditionalPropertiesFalse(t *testing.T) {
	s := objectSchema(map[string]any{"a": map[string]any{"type": "string"}}, []string{"a"})
	assert.Equal(t, "object", s["type"])
	assert.Equal(t, false, s["additionalProperties"])
	assert.Equal(t, []string{"a"}, s["required"])
}

func TestEntityTypeEnum_HasSevenEntries(t *testing.T) {
	assert.Len(t, entityTypeEnum(), 7)
	assert.Contains(t, entityTypeEnum(), "Person")
	assert.Contains(t, entityTypeEnum(), "Concept")
}

func TestAlignResolutions_DetectsOrderMismatch(t *testing.T) {
	items := []EntityResolveItem{{Name: "Acme"}, {Name: "Globex"}}
	resolutions := []EntityResolution{{Name: "Globex"}, {Name: "Acme"}}
	err := AlignResolutions(items, resolutions)
	require.Error(t, err)
}

func TestAlignResolutions_AcceptsMatchingOrder(t *testing.T) {
	items := []EntityResolveItem{{Name: "Acme"}, {Name: "Globex"}}
	resolutions := []EntityResolution{{Name: "Acme"}, {Name: "Globex"}}
	err := AlignResolutions(items, resolutions)
	require.NoError(t, err)
}

func TestAlignDecisions_CountMismatchErrors(t *testing.T) {
	extracted := []ExtractedMemory{{Content: "a"}, {Content: "b"}}
	decisions := []MemoryDecision{{Decision: "ADD"}}
	err := AlignDecisions(extracted, decisions)
	require.Error(t, err)
}

func TestEntityExtract_FormatInput_IncludesKnownUserName(t *testing.T) {
	name := "Alex"
	out := EntityExtract.FormatInput(EntityExtractInput{NoteContent: "hello", KnownUserName: &name})
	assert.Contains(t, out, "Alex")
	assert.Contains(t, out, "hello")
}

func TestHyde_FormatInput_ListsMemories(t *testing.T) {
	out := Hyde.FormatInput(HydeInput{Memories: []string{"USER works at Acme"}})
	assert.Contains(t, out, "USER works at Acme")
}
