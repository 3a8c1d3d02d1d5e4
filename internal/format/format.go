// Package format renders a retrieval.Output as a structured text block
// suitable for injection into a downstream LLM's user message: a fixed
// instructions preamble, the current date, the query, a filtered entity
// list, a deduplicated provenance-notes section, and the memories
// themselves with invalidation subtrees.
package format

import (
	"fmt"
	"strings"

	"github.com/aziham/memento/internal/retrieval"
)

const preamble = `The following is relevant context retrieved from the user's personal memory graph. Use it to inform your response, but do not mention that it was retrieved or reference this block directly.`

// Render produces the <memento>...</memento> block for out. today is the
// caller-supplied current date (YYYY-MM-DD) so the renderer itself never
// calls a clock, keeping it deterministic for snapshot tests.
func Render(out retrieval.Output, today string) string {
	var b strings.Builder
	b.WriteString("<memento>\n")
	fmt.Fprintf(&b, "<instructions>%s</instructions>\n", preamble)
	fmt.Fprintf(&b, "<current-date>%s</current-date>\n", today)
	fmt.Fprintf(&b, "<query>%s</query>\n", out.Query)

	renderEntities(&b, out.Entities)
	noteIDs := renderNotes(&b, out.Memories)
	renderMemories(&b, out.Memories, noteIDs)

	b.WriteString("</memento>")
	return b.String()
}

func renderEntities(b *strings.Builder, entities []retrieval.EntityResult) {
	filtered := make([]retrieval.EntityResult, 0, len(entities))
	for _, e := range entities {
		if e.IsWellKnown || e.MemoryCount == 0 {
			continue
		}
		filtered = append(filtered, e)
	}
	if len(filtered) == 0 {
		return
	}
	b.WriteString("<entities>\n")
	for _, e := range filtered {
		desc := ""
		if e.Description != nil {
			desc = *e.Description
		}
		fmt.Fprintf(b, "  <entity id=%q name=%q type=%q>%s</entity>\n", e.ID, e.Name, e.Type, desc)
	}
	b.WriteString("</entities>\n")
}

// renderNotes assigns sequential note-01, note-02, ... ids to each
// distinct provenance note referenced by the selected memories, in first-
// seen order, and returns the id assigned to each note's real id.
func renderNotes(b *strings.Builder, memories []retrieval.MemoryResult) map[string]string {
	ids := make(map[string]string)
	order := make([]retrieval.Provenance, 0, len(memories))
	for _, m := range memories {
		if m.ExtractedFrom == nil {
			continue
		}
		if _, ok := ids[m.ExtractedFrom.NoteID]; ok {
			continue
		}
		ids[m.ExtractedFrom.NoteID] = fmt.Sprintf("note-%02d", len(ids)+1)
		order = append(order, *m.ExtractedFrom)
	}
	if len(order) == 0 {
		return ids
	}
	b.WriteString("<notes>\n")
	for _, n := range order {
		fmt.Fprintf(b, "  <note id=%q date=%q>%s</note>\n", ids[n.NoteID], isoDate(n.NoteTimestamp.Format("2006-01-02T15:04:05Z07:00")), n.NoteContent)
	}
	b.WriteString("</notes>\n")
	return ids
}

func renderMemories(b *strings.Builder, memories []retrieval.MemoryResult, noteIDs map[string]string) {
	if len(memories) == 0 {
		return
	}
	b.WriteString("<memories>\n")
	for _, m := range memories {
		attrs := fmt.Sprintf("rank=%q about=%q", fmt.Sprint(m.Rank), strings.Join(m.About, ", "))
		if m.ValidAt != nil {
			attrs += fmt.Sprintf(" valid_at=%q", isoDate(m.ValidAt.Format("2006-01-02T15:04:05Z07:00")))
		}
		fmt.Fprintf(b, "  <memory %s>\n", attrs)
		fmt.Fprintf(b, "    <content>%s</content>\n", m.Content)
		if m.ExtractedFrom != nil {
			fmt.Fprintf(b, "    <extracted_from note_id=%q/>\n", noteIDs[m.ExtractedFrom.NoteID])
		}
		if len(m.Invalidates) > 0 {
			b.WriteString("    <invalidates>\n")
			renderInvalidations(b, m.Invalidates, 4)
			b.WriteString("    </invalidates>\n")
		}
		b.WriteString("  </memory>\n")
	}
	b.WriteString("</memories>\n")
}

func renderInvalidations(b *strings.Builder, nodes []retrieval.InvalidatedMemory, indent int) {
	pad := strings.Repeat(" ", indent)
	for _, n := range nodes {
		reason := ""
		if n.Reason != nil {
			reason = *n.Reason
		}
		fmt.Fprintf(b, "%s<memory id=%q reason=%q>%s</memory>\n", pad, n.ID, reason, n.Content)
		if len(n.Invalidated) > 0 {
			renderInvalidations(b, n.Invalidated, indent+2)
		}
	}
}

// isoDate truncates an RFC3339 timestamp string to its YYYY-MM-DD prefix,
// avoiding time-zone shifts from reformatting.
func isoDate(rfc3339 string) string {
	if len(rfc3339) < 10 {
		return rfc3339
	}
	return rfc3339[:10]
}
