// Package openai embeds text through an OpenAI-compatible /embeddings
// endpoint (OpenAI, Ollama, LM Studio and similar servers).
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"documentor/internal/embedding"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "text-embedding-3-small"
	defaultBatchSize   = 64
	defaultConcurrency = 4
	defaultMaxRetries  = 5
)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Dimensions  int
	BatchSize   int
	Concurrency int
	MaxRetries  int
}

// Client is an embeddings client for any OpenAI-compatible server.
type Client struct {
	client      *openai.Client
	model       string
	dimensions  int
	batchSize   int
	concurrency int
	maxRetries  int
	dimension   atomic.Int64
}

// NewClient creates an embeddings client. The API key is read from the
// environment variable named by cfg.APIKeyEnv; local servers such as Ollama
// accept an empty key, so a missing key is only an error for the default
// OpenAI endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" && cfg.BaseURL == defaultBaseURL {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}

	clientCfg := openai.DefaultConfig(key)
	clientCfg.BaseURL = cfg.BaseURL

	c := &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		maxRetries:  cfg.MaxRetries,
	}
	c.dimension.Store(int64(cfg.Dimensions))
	return c, nil
}

func (c *Client) Name() string { return "openai:" + c.model }

// Dimension returns the configured dimension, or the one observed on the
// first response when none was configured.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch splits texts into batches and embeds them concurrently. The
// result is ordered like texts.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := c.embed(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	}

	var (
		resp openai.EmbeddingResponse
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = c.client.CreateEmbeddings(ctx, req)
		if err == nil || attempt >= c.maxRetries || !retryable(err) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay(attempt)):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) || out[item.Index] != nil {
			return nil, fmt.Errorf("openai embeddings: unexpected index %d", item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for i, x := range item.Embedding {
			vec[i] = float32(x)
		}
		out[item.Index] = embedding.Normalize(vec)
	}

	dim, err := embedding.CheckDimensions(out, c.Dimension())
	if err != nil {
		return nil, err
	}
	c.dimension.CompareAndSwap(0, int64(dim))
	return out, nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
