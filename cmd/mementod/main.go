// Command mementod is the engine's CLI entrypoint: it wires config, the
// composed graph store, the embedding client, and an LLM backend together,
// then dispatches to a consolidate or retrieve subcommand.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/aziham/memento/internal/agentrunner"
	"github.com/aziham/memento/internal/config"
	"github.com/aziham/memento/internal/consolidation"
	"github.com/aziham/memento/internal/embedding"
	"github.com/aziham/memento/internal/format"
	"github.com/aziham/memento/internal/graph"
	"github.com/aziham/memento/internal/graph/hybridstore"
	"github.com/aziham/memento/internal/graph/postgres"
	"github.com/aziham/memento/internal/graph/qdrant"
	"github.com/aziham/memento/internal/llm"
	"github.com/aziham/memento/internal/llm/anthropic"
	"github.com/aziham/memento/internal/llm/openai"
	"github.com/aziham/memento/internal/logging"
	"github.com/aziham/memento/internal/retrieval"
	"github.com/aziham/memento/internal/stats"
	"github.com/aziham/memento/internal/tracing"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the engine config file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-config path] <consolidate|retrieve> [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Log.Path, cfg.Log.Level)

	ctx := context.Background()
	shutdown, err := tracing.Init(ctx, cfg.OTel)
	if err != nil {
		log.Warn().Err(err).Msg("tracing init failed, continuing without spans")
	} else {
		defer func() { _ = shutdown(ctx) }()
	}

	store, embedder, runner, err := wire(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire engine dependencies")
	}

	cmd := flag.Arg(0)
	args := flag.Args()[1:]
	switch cmd {
	case "consolidate":
		runConsolidate(ctx, store, embedder, runner, cfg, args)
	case "retrieve":
		runRetrieve(ctx, store, embedder, cfg, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func wire(ctx context.Context, cfg *config.Config) (graph.Store, embedding.Embedder, *agentrunner.Runner, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.ConnectionString)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	pg, err := postgres.New(ctx, pool)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing postgres store: %w", err)
	}

	vec, err := qdrant.New(ctx, qdrant.Config{
		Host: cfg.Qdrant.Host, Port: cfg.Qdrant.Port, APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS, Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing qdrant index: %w", err)
	}
	store := hybridstore.New(pg, vec, hybridstore.DefaultFusionConfig)

	embedder, err := embedding.New(embedding.Config{
		APIKey: cfg.Embedding.APIKey, BaseURL: cfg.Embedding.BaseURL,
		Model: cfg.Embedding.Model, Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing embedding client: %w", err)
	}
	var finalEmbedder embedding.Embedder = embedder
	if cfg.Embedding.CacheAddr != "" {
		cached, err := embedding.NewCachedEmbedder(embedder, cfg.Embedding.Model, embedding.RedisConfig{
			Addr: cfg.Embedding.CacheAddr, Password: cfg.Embedding.CachePass,
			DB: cfg.Embedding.CacheDB, TTL: cfg.Embedding.CacheTTL,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initializing embedding cache: %w", err)
		}
		finalEmbedder = cached
	}

	var provider llm.StructuredProvider
	switch cfg.LLM.Backend {
	case "anthropic":
		provider, err = anthropic.New(anthropic.Config{
			APIKey: cfg.LLM.APIKey, BaseURL: cfg.LLM.BaseURL, Model: cfg.LLM.Model, MaxTokens: cfg.LLM.MaxTokens,
		})
	default:
		provider, err = openai.New(openai.Config{APIKey: cfg.LLM.APIKey, BaseURL: cfg.LLM.BaseURL, Model: cfg.LLM.Model})
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing llm backend %q: %w", cfg.LLM.Backend, err)
	}

	return store, finalEmbedder, agentrunner.New(provider), nil
}

// runConsolidate reads note content from the -content flag, or from stdin
// when -content is omitted, and commits it.
func runConsolidate(ctx context.Context, store graph.Store, embedder embedding.Embedder, runner *agentrunner.Runner, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("consolidate", flag.ExitOnError)
	content := fs.String("content", "", "note content (reads stdin if omitted)")
	_ = fs.Parse(args)

	note := *content
	if note == "" {
		data, err := readAll(os.Stdin)
		if err != nil {
			log.Fatal().Err(err).Msg("reading note content from stdin")
		}
		note = data
	}
	if note == "" {
		log.Fatal().Msg("consolidate: no note content provided")
	}

	pipeline := &consolidation.Pipeline{
		Store: store, Embedder: embedder, Runner: runner,
		Retrieval: cfg.Retrieval, Config: cfg.Consolidation,
	}
	s := &stats.Stats{}
	out, err := pipeline.Run(ctx, consolidation.Input{Content: note, Timestamp: time.Now()}, s)
	if err != nil {
		log.Fatal().Err(err).Msg("consolidation failed")
	}

	if out.Skipped {
		fmt.Printf("skipped: %s\n", out.SkipReason)
		return
	}
	fmt.Printf("entities: %d, memories: %d, user description updated: %v\n", len(out.Entities), len(out.Memories), out.UserDescriptionUpdated)
	for _, e := range out.Entities {
		fmt.Printf("  entity [%s] %s (%s)\n", e.Decision, e.Name, e.ID)
	}
	for _, m := range out.Memories {
		fmt.Printf("  memory [%s] %s\n", m.Decision, m.Content)
	}
	snap := s.Snapshot()
	log.Info().Int64("llm_calls", snap.LLMCalls).Int64("embedding_calls", snap.EmbeddingCalls).
		Int64("graph_writes", snap.GraphWrites).Msg("consolidation stats")
}

// runRetrieve runs the retrieval pipeline for a query and prints the
// formatted context block.
func runRetrieve(ctx context.Context, store graph.Store, embedder embedding.Embedder, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	query := fs.String("query", "", "retrieval query (required)")
	_ = fs.Parse(args)

	if *query == "" {
		log.Fatal().Msg("retrieve: -query is required")
	}

	queryEmbedding, err := embedder.Embed(ctx, *query)
	if err != nil {
		log.Fatal().Err(err).Msg("embedding query")
	}

	pipeline := &retrieval.Pipeline{Store: store, Config: cfg.Retrieval}
	s := &stats.Stats{}
	out, err := pipeline.Run(ctx, *query, queryEmbedding, s)
	if err != nil {
		log.Fatal().Err(err).Msg("retrieval failed")
	}

	today := time.Now().Format("2006-01-02")
	fmt.Println(format.Render(out, today))

	snap := s.Snapshot()
	log.Info().Int64("graph_reads", snap.GraphReads).Int64("embedding_calls", snap.EmbeddingCalls).
		Int64("duration_ms", out.Meta.DurationMs).Msg("retrieval stats")
}

func readAll(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var b []byte
	for scanner.Scan() {
		b = append(b, scanner.Bytes()...)
		b = append(b, '\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return string(b), nil
}
