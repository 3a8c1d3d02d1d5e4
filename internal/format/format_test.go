package format

import (
	"strings"
	"testing"
	"time"

	"github.com/aziham/memento/internal/retrieval"
	"github.com/stretchr/testify/assert"
)

func sampleOutput() retrieval.Output {
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	desc := "a programming language"
	return retrieval.Output{
		Query: "what are my preferences?",
		Entities: []retrieval.EntityResult{
			{ID: "ent-1", Name: "TypeScript", Type: "Technology", Description: &desc, MemoryCount: 2},
			{ID: "ent-2", Name: "Python", Type: "Technology", IsWellKnown: true, MemoryCount: 5},
			{ID: "ent-3", Name: "Unreferenced", Type: "Concept", MemoryCount: 0},
		},
		Memories: []retrieval.MemoryResult{
			{
				Rank: 1, ID: "mem-1", Content: "USER prefers TypeScript", Score: 0.9,
				Source: retrieval.SourceVector, About: []string{"TypeScript"},
				ExtractedFrom: &retrieval.Provenance{NoteID: "note-a", NoteContent: "raw note", NoteTimestamp: ts},
			},
			{
				Rank: 2, ID: "mem-2", Content: "USER used to prefer JavaScript", Score: 0.7,
				Source: retrieval.SourceFulltext, About: []string{"TypeScript"},
				ExtractedFrom: &retrieval.Provenance{NoteID: "note-a", NoteContent: "raw note", NoteTimestamp: ts},
				Invalidates: []retrieval.InvalidatedMemory{
					{ID: "old-1", Content: "USER prefers JavaScript", Reason: strPtr("preference changed")},
				},
			},
		},
		Meta: retrieval.Meta{TotalCandidates: 2, DurationMs: 12},
	}
}

func strPtr(s string) *string { return &s }

func TestRender_DropsWellKnownAndZeroReferenceEntities(t *testing.T) {
	out := Render(sampleOutput(), "2026-07-31")
	assert.Contains(t, out, "TypeScript")
	assert.NotContains(t, out, "Python")
	assert.NotContains(t, out, "Unreferenced")
}

func TestRender_SingleNotesSectionWithSequentialIDs(t *testing.T) {
	out := Render(sampleOutput(), "2026-07-31")
	assert.Equal(t, 1, strings.Count(out, "<notes>"))
	assert.Contains(t, out, `id="note-01"`)
	assert.Equal(t, 2, strings.Count(out, `note_id="note-01"`))
}

func TestRender_IncludesCurrentDateAndQuery(t *testing.T) {
	out := Render(sampleOutput(), "2026-07-31")
	assert.Contains(t, out, "<current-date>2026-07-31</current-date>")
	assert.Contains(t, out, "<query>what are my preferences?</query>")
}

func TestRender_IncludesInvalidationReason(t *testing.T) {
	out := Render(sampleOutput(), "2026-07-31")
	assert.Contains(t, out, "preference changed")
	assert.Contains(t, out, "<invalidates>")
}

func TestIsoDate_TruncatesToDatePrefix(t *testing.T) {
	assert.Equal(t, "2026-01-15", isoDate("2026-01-15T10:00:00Z"))
}

func TestRender_EmptyMemoriesOmitsMemoriesSection(t *testing.T) {
	out := Render(retrieval.Output{Query: "q"}, "2026-07-31")
	assert.NotContains(t, out, "<memories>")
}
