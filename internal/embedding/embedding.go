// Package embedding turns text into fixed-dimension vectors for storage and
// nearest-neighbor search. Embedder is the narrow contract the rest of the
// engine depends on; Client is the OpenAI-backed implementation and
// CachedEmbedder wraps any Embedder with a Redis content-hash cache.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
)

// Embedder turns text into vectors. Implementations must fail on empty
// input rather than silently returning a zero vector, since a memory or
// entity with no embedding would be invisible to vector search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Client is an OpenAI-backed Embedder.
type Client struct {
	sdk        sdk.Client
	model      string
	dimensions int
}

// Config describes how to reach the embeddings endpoint.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// DefaultModel and DefaultDimensions match OpenAI's text-embedding-3-small.
const (
	DefaultModel      = "text-embedding-3-small"
	DefaultDimensions = 1536
)

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding: api key must not be empty")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model, dimensions: dims}, nil
}

func (c *Client) Dimensions() int { return c.dimensions }

// Embed returns the embedding for a single piece of text. Returns an error
// if text is blank: a blank embedding input has no meaningful vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embedding: text must not be empty")
	}
	resp, err := c.sdk.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model:      sdk.EmbeddingModel(c.model),
		Dimensions: param.NewOpt(int64(c.dimensions)),
		Input: sdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response")
	}
	return normalize(float64ToFloat32(resp.Data[0].Embedding)), nil
}

// EmbedBatch embeds many texts in a single request. Order of the result
// matches the order of texts, not the order the API happens to return.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding: batch contains empty text")
		}
	}
	resp, err := c.sdk.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model:      sdk.EmbeddingModel(c.model),
		Dimensions: param.NewOpt(int64(c.dimensions)),
		Input: sdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: embed batch: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}
	out := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if int(e.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding: unexpected index %d", e.Index)
		}
		out[e.Index] = normalize(float64ToFloat32(e.Embedding))
	}
	return out, nil
}

func float64ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// normalize L2-normalizes v in place equivalents (returns a new slice),
// guaranteeing cosine similarity and dot-product agree downstream.
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// contentHash returns a stable cache key for a piece of text.
func contentHash(model string, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(h[:])
}
