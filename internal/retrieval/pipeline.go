package retrieval

import (
	"context"
	"time"

	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/stats"
	"github.com/aziham/memento/internal/tracing"
)

// Store is the subset of graph.Store the retrieval pipeline depends on.
type Store interface {
	graph.Reader
	graph.Search
	graph.Algorithms
	graph.BulkReads
}

// Pipeline runs the full LAND -> ANCHOR -> EXPAND -> DISTILL -> TRACE
// retrieval flow.
type Pipeline struct {
	Store  Store
	Config Config
}

// Run executes the pipeline for a query and its embedding. An empty LAND
// result short-circuits every later phase.
func (p *Pipeline) Run(ctx context.Context, query string, queryEmbedding []float32, s *stats.Stats) (Output, error) {
	start := time.Now()

	ctx, span := tracing.StartPhase(ctx, "LAND")
	landResults, err := land(ctx, p.Store, query, queryEmbedding, p.Config)
	span.End()
	if err != nil {
		return Output{}, err
	}
	if s != nil {
		s.IncGraphRead()
	}

	if len(landResults) == 0 {
		return Output{
			Query:    query,
			Entities: []EntityResult{},
			Memories: []MemoryResult{},
			Meta:     Meta{TotalCandidates: 0, DurationMs: time.Since(start).Milliseconds()},
		}, nil
	}

	landResults, err = hydrateEmbeddings(ctx, p.Store, landResults)
	if err != nil {
		return Output{}, err
	}

	ctx, span = tracing.StartPhase(ctx, "ANCHOR")
	anchorWeights, err := anchor(ctx, p.Store, landResults, queryEmbedding, p.Config)
	span.End()
	if err != nil {
		return Output{}, err
	}

	ctx, span = tracing.StartPhase(ctx, "EXPAND")
	expandResults, err := expand(ctx, p.Store, anchorWeights, queryEmbedding, p.Config)
	span.End()
	if err != nil {
		return Output{}, err
	}

	_, span = tracing.StartPhase(ctx, "DISTILL")
	distilled := distill(landResults, expandResults, p.Config)
	span.End()

	ctx, span = tracing.StartPhase(ctx, "TRACE")
	out, err := traceEnrich(ctx, p.Store, distilled, p.Config)
	span.End()
	if err != nil {
		return Output{}, err
	}
	if s != nil {
		s.IncGraphRead()
	}

	out.Query = query
	out.Meta = Meta{
		TotalCandidates: len(landResults) + len(expandResults),
		DurationMs:      time.Since(start).Milliseconds(),
	}
	return out, nil
}
