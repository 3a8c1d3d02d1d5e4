package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/aziham/memento/internal/graph"
	"golang.org/x/sync/errgroup"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// traceEnrich issues three TRACE reads concurrently for the DISTILL
// selection (ABOUT entities, invalidation chains, provenance notes), then
// fetches details for the entity names they return, and composes the
// stable Output wire contract.
func traceEnrich(ctx context.Context, store graph.BulkReads, distilled []candidate, cfg Config) (Output, error) {
	out := Output{Memories: make([]MemoryResult, 0, len(distilled))}
	if len(distilled) == 0 {
		return out, nil
	}

	ids := make([]string, len(distilled))
	for i, c := range distilled {
		ids[i] = c.id
	}

	var aboutByMemory map[string][]graph.EntityRef
	var invalidationByMemory map[string]graph.InvalidationNode
	var provenanceByMemory map[string]graph.Note

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		aboutByMemory, err = store.AboutEntityNames(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		invalidationByMemory, err = store.InvalidationChain(gctx, ids, cfg.InvalidationDepth)
		return err
	})
	g.Go(func() error {
		var err error
		provenanceByMemory, err = store.ProvenanceNotes(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return Output{}, err
	}

	entityNames := make(map[string]struct{})
	referencesUser := false
	for _, refs := range aboutByMemory {
		for _, ref := range refs {
			if ref.ID == graph.UserID {
				referencesUser = true
				continue
			}
			entityNames[ref.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(entityNames)+1)
	for n := range entityNames {
		names = append(names, n)
	}
	if referencesUser {
		names = append(names, graph.UserID)
	}
	entityDetails, err := store.EntityDetailsByName(ctx, names)
	if err != nil {
		return Output{}, err
	}
	userDisplayName := graph.UserID
	if u, ok := entityDetails[graph.UserID]; ok {
		userDisplayName = u.Name
	}

	memoryCount := make(map[string]int)
	for i, c := range distilled {
		refs := aboutByMemory[c.id]
		about := make([]string, 0, len(refs))
		aboutIDs := make([]string, 0, len(refs))
		for _, ref := range refs {
			if ref.ID == graph.UserID {
				about = append(about, userDisplayName)
				aboutIDs = append(aboutIDs, ref.ID)
				continue
			}
			about = append(about, ref.Name)
			aboutIDs = append(aboutIDs, ref.ID)
			memoryCount[ref.Name]++
		}

		mr := MemoryResult{
			Rank:           i + 1,
			ID:             c.id,
			Content:        whitespaceRun.ReplaceAllString(strings.TrimSpace(c.content), " "),
			Score:          c.score,
			Source:         c.source,
			About:          about,
			AboutEntityIDs: aboutIDs,
			ValidAt:        c.validAt,
		}
		if node, ok := invalidationByMemory[c.id]; ok && len(node.Invalidates) > 0 {
			mr.Invalidates = convertInvalidations(node.Invalidates)
		}
		if note, ok := provenanceByMemory[c.id]; ok {
			mr.ExtractedFrom = &Provenance{NoteID: note.ID, NoteContent: note.Content, NoteTimestamp: note.Timestamp}
		}
		out.Memories = append(out.Memories, mr)
	}

	out.Entities = buildEntityList(entityDetails, memoryCount)
	return out, nil
}

func convertInvalidations(nodes []graph.InvalidationNode) []InvalidatedMemory {
	out := make([]InvalidatedMemory, len(nodes))
	for i, n := range nodes {
		var reason *string
		if n.Reason != "" {
			r := n.Reason
			reason = &r
		}
		im := InvalidatedMemory{
			ID:      n.Memory.ID,
			Content: whitespaceRun.ReplaceAllString(strings.TrimSpace(n.Memory.Content), " "),
			ValidAt: n.Memory.ValidAt,
			InvalidatedAt: n.Memory.InvalidAt,
			Reason:  reason,
		}
		if len(n.Invalidates) > 0 {
			im.Invalidated = convertInvalidations(n.Invalidates)
		}
		out[i] = im
	}
	return out
}

func buildEntityList(details map[string]graph.EntityDetail, memoryCount map[string]int) []EntityResult {
	out := make([]EntityResult, 0, len(details))
	for name, d := range details {
		count := memoryCount[name]
		if count == 0 && !d.IsUser {
			continue
		}
		var desc *string
		if d.Description != "" {
			desc = &d.Description
		}
		out = append(out, EntityResult{
			ID:          d.ID,
			Name:        d.Name,
			Type:        string(d.Type),
			Description: desc,
			IsWellKnown: d.IsWellKnown,
			IsUser:      d.IsUser,
			MemoryCount: count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsUser != out[j].IsUser {
			return out[i].IsUser
		}
		return out[i].MemoryCount > out[j].MemoryCount
	})
	return out
}
