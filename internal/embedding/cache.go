package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aziham/memento/internal/logging"
)

// CachedEmbedder wraps an Embedder with a Redis cache keyed by a hash of
// (model, text). Re-embedding the same note or entity description (common
// during re-consolidation of edited content) becomes a cache hit instead of
// a paid API call.
type CachedEmbedder struct {
	inner  Embedder
	client redis.UniversalClient
	model  string
	ttl    time.Duration
}

// RedisConfig describes how to reach the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewCachedEmbedder(inner Embedder, model string, cfg RedisConfig) (*CachedEmbedder, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("embedding cache: redis ping: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedEmbedder{inner: inner, client: client, model: model, ttl: ttl}, nil
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	log := logging.FromContext(ctx)
	key := "embedding:" + contentHash(c.model, text)

	if val, err := c.client.Get(ctx, key).Result(); err == nil {
		var vec []float32
		if jsonErr := json.Unmarshal([]byte(val), &vec); jsonErr == nil {
			return vec, nil
		}
	} else if err != redis.Nil {
		log.Debug().Err(err).Str("key", key).Msg("embedding_cache_get_error")
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, vec)
	return vec, nil
}

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	log := logging.FromContext(ctx)
	out := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := "embedding:" + contentHash(c.model, text)
		val, err := c.client.Get(ctx, key).Result()
		if err != nil {
			if err != redis.Nil {
				log.Debug().Err(err).Str("key", key).Msg("embedding_cache_get_error")
			}
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
			continue
		}
		var vec []float32
		if jsonErr := json.Unmarshal([]byte(val), &vec); jsonErr != nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
			continue
		}
		out[i] = vec
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	fetched, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = fetched[j]
		c.set(ctx, "embedding:"+contentHash(c.model, texts[idx]), fetched[j])
	}
	return out, nil
}

func (c *CachedEmbedder) set(ctx context.Context, key string, vec []float32) {
	log := logging.FromContext(ctx)
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("embedding_cache_set_error")
	}
}

func (c *CachedEmbedder) Close() error {
	return c.client.Close()
}

var _ Embedder = (*CachedEmbedder)(nil)
