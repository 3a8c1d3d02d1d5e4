// Package config loads the engine's YAML configuration file, with
// .env-sourced secrets layered on top, and applies defaults for every
// tunable the retrieval and consolidation pipelines depend on.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig configures the Postgres connection backing the relational
// half of the graph store.
type DatabaseConfig struct {
	ConnectionString string `yaml:"connection_string"`
}

// QdrantConfig configures the vector-index half of the graph store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key,omitempty"`
	UseTLS     bool   `yaml:"use_tls,omitempty"`
}

// EmbeddingConfig configures the embedding client and its optional Redis
// cache.
type EmbeddingConfig struct {
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	APIKey     string        `yaml:"api_key,omitempty"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	CacheAddr  string        `yaml:"cache_addr,omitempty"`
	CachePass  string        `yaml:"cache_password,omitempty"`
	CacheDB    int           `yaml:"cache_db,omitempty"`
	CacheTTL   time.Duration `yaml:"cache_ttl,omitempty"`
}

// LLMConfig configures the structured-completion backend used by the
// consolidation agents.
type LLMConfig struct {
	Backend   string  `yaml:"backend"` // "openai" | "anthropic"
	Model     string  `yaml:"model,omitempty"`
	APIKey    string  `yaml:"api_key,omitempty"`
	BaseURL   string  `yaml:"base_url,omitempty"`
	MaxTokens int64   `yaml:"max_tokens,omitempty"`
}

// RetrievalConfig tunes the LAND -> ANCHOR -> EXPAND -> DISTILL -> TRACE
// pipeline.
type RetrievalConfig struct {
	LandCandidates      int     `yaml:"land_candidates"`
	AnchorMinMemories    int     `yaml:"anchor_min_memories"`
	PPRDamping          float64 `yaml:"ppr_damping"`
	PPRIterations       int     `yaml:"ppr_iterations"`
	SemanticPPRAlpha    float64 `yaml:"semantic_ppr_alpha"`
	FusionVectorWeight  float64 `yaml:"fusion_vector_weight"`
	FusionFulltextWeight float64 `yaml:"fusion_fulltext_weight"`
	FusionThreshold     int     `yaml:"fusion_threshold"`
	FusionQualityFloor  float64 `yaml:"fusion_quality_floor"`
	DistillTopK         int     `yaml:"distill_top_k"`
	InvalidationDepth   int     `yaml:"invalidation_depth"`
}

// ConsolidationConfig tunes the consolidation pipeline's two branches.
type ConsolidationConfig struct {
	ContextTopK         int `yaml:"context_top_k"`
	HydeResultsPerDoc   int `yaml:"hyde_results_per_doc"`
	EntityMatchesPerEntity int `yaml:"entity_matches_per_entity"`
	HydeTemperature     float64 `yaml:"hyde_temperature"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	Insecure    bool   `yaml:"insecure,omitempty"`
	ServiceName string `yaml:"service_name"`
}

// LogConfig controls the process-wide zerolog logger.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path,omitempty"` // empty = stdout
}

// Config is the full engine configuration.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Qdrant        QdrantConfig        `yaml:"qdrant"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	LLM           LLMConfig           `yaml:"llm"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Consolidation ConsolidationConfig `yaml:"consolidation"`
	OTel          TelemetryConfig     `yaml:"otel"`
	Log           LogConfig           `yaml:"log"`
}

// Load reads .env (if present, for secrets) then the YAML file at path,
// applying defaults for every omitted tunable.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("config: .env present but unreadable")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyDefaults(&cfg)
	resolveSecretsFromEnv(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.CacheTTL == 0 {
		cfg.Embedding.CacheTTL = 24 * time.Hour
	}
	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = "openai"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2048
	}

	r := &cfg.Retrieval
	if r.LandCandidates == 0 {
		r.LandCandidates = 100
	}
	if r.AnchorMinMemories == 0 {
		r.AnchorMinMemories = 1
	}
	if r.PPRDamping == 0 {
		r.PPRDamping = 0.75
	}
	if r.PPRIterations == 0 {
		r.PPRIterations = 25
	}
	if r.SemanticPPRAlpha == 0 {
		r.SemanticPPRAlpha = 0.5
	}
	if r.FusionVectorWeight == 0 && r.FusionFulltextWeight == 0 {
		r.FusionVectorWeight = 0.7
		r.FusionFulltextWeight = 0.3
	}
	if r.FusionThreshold == 0 {
		r.FusionThreshold = 30 // 0.3 * land_candidates default
	}
	if r.FusionQualityFloor == 0 {
		r.FusionQualityFloor = 0.3
	}
	if r.DistillTopK == 0 {
		r.DistillTopK = 10
	}
	if r.InvalidationDepth == 0 {
		r.InvalidationDepth = 2
	}

	c := &cfg.Consolidation
	if c.ContextTopK == 0 {
		c.ContextTopK = 15
	}
	if c.HydeResultsPerDoc == 0 {
		c.HydeResultsPerDoc = 10
	}
	if c.EntityMatchesPerEntity == 0 {
		c.EntityMatchesPerEntity = 5
	}
	if c.HydeTemperature == 0 {
		c.HydeTemperature = 0.7
	}

	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "memento"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// resolveSecretsFromEnv lets secrets come from the environment (typically
// populated by .env) when the YAML file omits them, so credentials never
// need to live in the checked-in config.
func resolveSecretsFromEnv(cfg *Config) {
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Backend {
		case "anthropic":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Qdrant.APIKey == "" {
		cfg.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")
	}
}
