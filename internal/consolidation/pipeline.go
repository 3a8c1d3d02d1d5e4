package consolidation

import (
	"context"
	"strings"
	"time"

	"github.com/aziham/memento/internal/agentrunner"
	"github.com/aziham/memento/internal/agents"
	"github.com/aziham/memento/internal/embedding"
	"github.com/aziham/memento/internal/errs"
	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/retrieval"
	"github.com/aziham/memento/internal/stats"
	"github.com/aziham/memento/internal/tracing"
	"golang.org/x/sync/errgroup"
)

// Pipeline runs one note through consolidation: branch A (context
// retrieval) and branch B (entity/memory extraction) run in parallel,
// their outputs join at memory-resolver, then the result commits in a
// single atomic write.
type Pipeline struct {
	Store     graph.Store
	Embedder  embedding.Embedder
	Runner    *agentrunner.Runner
	Retrieval retrieval.Config
	Config    Config
}

// Run consolidates one note. A note with no extractable memories, or one
// whose every extracted memory is a duplicate (SKIP), writes nothing and
// reports Output.Skipped with a reason.
func (p *Pipeline) Run(ctx context.Context, note Input, s *stats.Stats) (Output, error) {
	noteEmbedding, err := p.Embedder.Embed(ctx, note.Content)
	if err != nil {
		return Output{}, err
	}
	if s != nil {
		s.IncEmbeddingCall()
	}

	user, found, err := p.Store.GetUser(ctx)
	if err != nil {
		return Output{}, err
	}
	var knownUserName *string
	userDescription := ""
	if found {
		knownUserName = &user.Name
		userDescription = user.Description
	}

	var existing []agents.ExistingMemoryRef
	var branchBRes branchBResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ctx, span := tracing.StartPhase(gctx, "consolidation.branchA")
		defer span.End()
		var err error
		existing, err = branchA(ctx, p.Store, p.Embedder, p.Runner, note, noteEmbedding, p.Config, p.Retrieval, s)
		return err
	})
	g.Go(func() error {
		ctx, span := tracing.StartPhase(gctx, "consolidation.branchB")
		defer span.End()
		var err error
		branchBRes, err = branchB(ctx, p.Store, p.Embedder, p.Runner, note, knownUserName, userDescription, p.Config, s)
		return err
	})
	if err := g.Wait(); err != nil {
		return Output{}, err
	}

	if len(branchBRes.memories) == 0 {
		return Output{Skipped: true, SkipReason: skipReasonNoMemories}, nil
	}

	decisions, err := agentrunner.Run(ctx, p.Runner, agents.MemoryResolver, agents.MemoryResolverInput{
		Extracted: branchBRes.memories,
		Existing:  existing,
	}, s, agentrunner.CallOptions{})
	if err != nil {
		return Output{}, err
	}
	if err := agents.AlignDecisions(branchBRes.memories, decisions.Decisions); err != nil {
		return Output{}, errs.New(errs.KindAgentAlignment, "memory-resolver", err)
	}

	allSkipped := true
	for _, d := range decisions.Decisions {
		if d.Decision != "SKIP" {
			allSkipped = false
			break
		}
	}
	if allSkipped {
		return Output{Skipped: true, SkipReason: skipReasonAllSkipped}, nil
	}

	return p.commit(ctx, note, knownUserName, branchBRes, decisions.Decisions, s)
}

// commit runs the atomic write transaction: ensure the user node, apply
// any description update, create the note, upsert every resolved entity,
// write each surviving memory with its ABOUT/EXTRACTED_FROM/INVALIDATES
// edges, and record MENTIONS for every entity the note touched.
func (p *Pipeline) commit(ctx context.Context, note Input, knownUserName *string, bb branchBResult, decisions []agents.MemoryDecision, s *stats.Stats) (Output, error) {
	ctx, span := tracing.StartPhase(ctx, "consolidation.commit")
	defer span.End()

	memoryContents := make([]string, 0, len(bb.memories))
	for i, extracted := range bb.memories {
		if decisions[i].Decision == "SKIP" {
			continue
		}
		memoryContents = append(memoryContents, extracted.Content)
	}
	var memoryEmbeddings [][]float32
	if len(memoryContents) > 0 {
		var err error
		memoryEmbeddings, err = p.Embedder.EmbedBatch(ctx, memoryContents)
		if err != nil {
			return Output{}, err
		}
		if s != nil {
			s.IncEmbeddingCall()
		}
	}
	embeddingByContent := make(map[string][]float32, len(memoryContents))
	for i, content := range memoryContents {
		embeddingByContent[content] = memoryEmbeddings[i]
	}

	var out Output
	err := p.Store.ExecuteTransaction(ctx, func(ctx context.Context, tx graph.Tx) error {
		if bb.userReferenced {
			defaultName := "User"
			if knownUserName != nil {
				defaultName = *knownUserName
			}
			if bb.userUpdate.DetectedName != nil && *bb.userUpdate.DetectedName != "" {
				defaultName = *bb.userUpdate.DetectedName
			}
			if _, err := tx.GetOrCreateUser(ctx, defaultName, nil); err != nil {
				return err
			}

			var name *string
			if bb.userUpdate.DetectedName != nil && (knownUserName == nil || !strings.EqualFold(*bb.userUpdate.DetectedName, *knownUserName)) {
				name = bb.userUpdate.DetectedName
			}
			var desc *string
			if bb.userUpdate.ShouldUpdate && bb.userUpdate.MergedDescription != nil {
				desc = bb.userUpdate.MergedDescription
			}
			if name != nil || desc != nil {
				if err := tx.UpdateUser(ctx, name, desc, nil); err != nil {
					return err
				}
				out.UserDescriptionUpdated = bb.userUpdate.ShouldUpdate
			}
			if s != nil {
				s.IncGraphWrite()
			}
		}

		noteRecord, err := tx.CreateNote(ctx, note.Content, note.Timestamp)
		if err != nil {
			return err
		}
		if s != nil {
			s.IncGraphWrite()
		}

		entityIDByName := make(map[string]string, len(bb.entities))
		for _, re := range bb.entities {
			if knownUserName != nil && strings.EqualFold(re.name, *knownUserName) {
				continue
			}
			var entityID string
			switch re.decision {
			case "CREATE":
				created, _, err := tx.CreateOrMergeEntity(ctx, re.name, graph.EntityType(re.typ), re.description, re.embedding, re.isWellKnown)
				if err != nil {
					return err
				}
				entityID = created.ID
			case "MATCH":
				entityID = re.matchedID
				if re.updateDescription {
					var desc *string
					if re.mergedDescription != "" {
						desc = &re.mergedDescription
					}
					if err := tx.UpdateEntity(ctx, entityID, desc, re.embedding); err != nil {
						return err
					}
				}
			}
			if s != nil {
				s.IncGraphWrite()
			}
			if entityID != "" {
				entityIDByName[re.name] = entityID
				out.Entities = append(out.Entities, CreatedEntity{ID: entityID, Name: re.name, Decision: re.decision})
				if err := tx.CreateMentions(ctx, noteRecord.ID, entityID); err != nil {
					return err
				}
				if s != nil {
					s.IncGraphWrite()
				}
			}
		}

		for i, extracted := range bb.memories {
			decision := decisions[i]
			if decision.Decision == "SKIP" {
				continue
			}

			validAt := note.Timestamp
			if extracted.ValidAt != nil {
				if parsed, err := time.Parse(time.RFC3339, *extracted.ValidAt); err == nil {
					validAt = parsed
				}
			}

			mem, err := tx.CreateMemory(ctx, extracted.Content, embeddingByContent[extracted.Content], &validAt)
			if err != nil {
				return err
			}
			if s != nil {
				s.IncGraphWrite()
			}
			if err := tx.CreateExtractedFrom(ctx, mem.ID, noteRecord.ID); err != nil {
				return err
			}

			for _, about := range extracted.AboutEntities {
				if (knownUserName != nil && strings.EqualFold(about, *knownUserName)) || strings.EqualFold(about, graph.UserID) {
					if err := tx.CreateAboutUser(ctx, mem.ID); err != nil {
						return err
					}
					continue
				}
				entityID, ok := entityIDByName[about]
				if !ok {
					continue
				}
				if err := tx.CreateAbout(ctx, mem.ID, entityID); err != nil {
					return err
				}
			}
			if s != nil {
				s.IncGraphWrite()
			}

			if decision.Decision == "INVALIDATE" {
				for _, target := range decision.Targets {
					if err := tx.CreateInvalidates(ctx, mem.ID, target.ExistingMemoryID, target.Reason, validAt); err != nil {
						return err
					}
					if s != nil {
						s.IncGraphWrite()
					}
				}
			}

			out.Memories = append(out.Memories, CreatedMemory{ID: mem.ID, Content: extracted.Content, Decision: decision.Decision})
		}

		return nil
	})
	if err != nil {
		return Output{}, err
	}
	return out, nil
}
