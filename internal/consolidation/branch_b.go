package consolidation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aziham/memento/internal/agentrunner"
	"github.com/aziham/memento/internal/agents"
	"github.com/aziham/memento/internal/embedding"
	"github.com/aziham/memento/internal/errs"
	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/stats"
	"golang.org/x/sync/errgroup"
)

// resolvedEntity is one entity after branchB's resolution step, carrying
// whatever embedding the atomic write needs to persist it.
type resolvedEntity struct {
	name              string
	typ               string
	description       string // as extracted from the note; used verbatim on CREATE
	isWellKnown       bool
	decision          string // CREATE | MATCH
	matchedID         string
	updateDescription bool
	mergedDescription string
	embedding         []float32 // carried for CREATE, or MATCH+updateDescription
}

type branchBResult struct {
	entities       []resolvedEntity
	userUpdate     agents.UserDescriptionUpdate
	memories       []agents.ExtractedMemory
	userReferenced bool
}

// branchBStore is the graph surface branchB needs.
type branchBStore interface {
	graph.Search
	graph.Reader
}

// branchB runs the extract-and-resolve half of consolidation: extract
// entities from the note, normalize their names, resolve them against the
// graph via hybrid search, then extract memories using the resolved
// entity list as context.
func branchB(ctx context.Context, store branchBStore, embedder embedding.Embedder, runner *agentrunner.Runner, note Input, knownUserName *string, userDescription string, cfg Config, s *stats.Stats) (branchBResult, error) {
	extracted, err := agentrunner.Run(ctx, runner, agents.EntityExtract, agents.EntityExtractInput{
		NoteContent:   note.Content,
		KnownUserName: knownUserName,
	}, s, agentrunner.CallOptions{})
	if err != nil {
		return branchBResult{}, err
	}

	for i := range extracted.Entities {
		extracted.Entities[i].Name = titleCaseNormalize(extracted.Entities[i].Name)
	}

	items, queryEmbeddings, err := searchEntityMatches(ctx, store, embedder, extracted.Entities, cfg, s)
	if err != nil {
		return branchBResult{}, err
	}

	resolution, err := agentrunner.Run(ctx, runner, agents.EntityResolver, agents.EntityResolverInput{
		Items:                  items,
		CurrentUserName:        knownUserName,
		CurrentUserDescription: userDescription,
		NewBiographicalFacts:   extracted.UserBiographicalFacts,
	}, s, agentrunner.CallOptions{})
	if err != nil {
		return branchBResult{}, err
	}
	if err := agents.AlignResolutions(items, resolution.Resolutions); err != nil {
		return branchBResult{}, errs.New(errs.KindAgentAlignment, "entity-resolver", err)
	}

	resolved := make([]resolvedEntity, len(resolution.Resolutions))
	for i, r := range resolution.Resolutions {
		re := resolvedEntity{
			name:              items[i].Name,
			typ:               items[i].Type,
			description:       items[i].Description,
			isWellKnown:       items[i].IsWellKnown,
			decision:          r.Decision,
			updateDescription: r.UpdateDescription,
		}
		if r.MatchedID != nil {
			re.matchedID = *r.MatchedID
		}
		if r.MergedDescription != nil {
			re.mergedDescription = *r.MergedDescription
		}
		switch {
		case r.Decision == "CREATE":
			re.embedding = queryEmbeddings[i]
		case r.Decision == "MATCH" && r.UpdateDescription:
			re.embedding = queryEmbeddings[i]
		}
		resolved[i] = re
	}

	refs := make([]agents.ResolvedEntityRef, len(resolved))
	for i, re := range resolved {
		refs[i] = agents.ResolvedEntityRef{Name: re.name, Type: re.typ, Action: re.decision}
	}
	memOut, err := agentrunner.Run(ctx, runner, agents.MemoryExtract, agents.MemoryExtractInput{
		NoteContent:      note.Content,
		NoteTimestamp:    note.Timestamp,
		ResolvedEntities: refs,
	}, s, agentrunner.CallOptions{})
	if err != nil {
		return branchBResult{}, err
	}

	userReferenced := false
	for _, m := range memOut.Memories {
		for _, about := range m.AboutEntities {
			if strings.EqualFold(about, graph.UserID) {
				userReferenced = true
			}
		}
	}

	return branchBResult{
		entities:       resolved,
		userUpdate:     resolution.UserUpdate,
		memories:       memOut.Memories,
		userReferenced: userReferenced,
	}, nil
}

// searchEntityMatches batch-embeds "Name: Description" for each extracted
// entity and runs a hybrid search over Entity nodes, concurrently, one per
// entity. Returns the resolver input items in the same order as extracted,
// plus each entity's query embedding (needed later to carry forward on
// CREATE/MATCH-with-update).
func searchEntityMatches(ctx context.Context, store branchBStore, embedder embedding.Embedder, entities []agents.ExtractedEntity, cfg Config, s *stats.Stats) ([]agents.EntityResolveItem, [][]float32, error) {
	if len(entities) == 0 {
		return nil, nil, nil
	}

	texts := make([]string, len(entities))
	for i, e := range entities {
		texts[i] = fmt.Sprintf("%s: %s", e.Name, e.Description)
	}
	embeddings, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, err
	}
	if s != nil {
		s.IncEmbeddingCall()
	}

	items := make([]agents.EntityResolveItem, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entities {
		i, e := i, e
		g.Go(func() error {
			hits, err := store.SearchHybrid(gctx, graph.LabelEntity, texts[i], embeddings[i], cfg.EntityMatchesPerEntity, graph.SearchOptions{})
			if err != nil {
				return err
			}
			matches := make([]agents.EntityCandidateMatch, 0, len(hits))
			for _, h := range hits {
				ent, found, err := store.GetEntityByID(gctx, h.ID)
				if err != nil {
					return err
				}
				if !found {
					continue
				}
				matches = append(matches, agents.EntityCandidateMatch{
					ID: ent.ID, Name: ent.Name, Type: string(ent.Type),
					Description: ent.Description, Similarity: h.Score,
				})
			}
			items[i] = agents.EntityResolveItem{
				Name: e.Name, Type: e.Type, Description: e.Description,
				IsWellKnown: e.IsWellKnown, Matches: matches,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return items, embeddings, nil
}
