// Package ollama provides Ollama-backed embedding and generation clients.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ClaimSightAI/claimsight-mvp/pkg/fn"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/resilience"
)

// DefaultEmbedRetry bounds how long a transient embedding failure is retried
// before giving up.
var DefaultEmbedRetry = fn.RetryOpts{
	MaxAttempts: 3,
	InitialWait: 200 * time.Millisecond,
	MaxWait:     2 * time.Second,
	Jitter:      true,
}

// EmbedClient turns text into embedding vectors via Ollama's HTTP API.
// Requests are rate-limited so a large invoice batch cannot saturate the
// model server, and transient failures are retried with backoff.
type EmbedClient struct {
	baseURL string
	model   string
	client  *http.Client
	limiter *resilience.Limiter
	retry   fn.RetryOpts
}

// NewEmbedClient creates an Ollama embedding client. A nil limiter gets a
// default of 20 requests per second.
func NewEmbedClient(baseURL, model string, limiter *resilience.Limiter) *EmbedClient {
	if limiter == nil {
		limiter = resilience.NewLimiter(resilience.LimiterOpts{Rate: 20, Burst: 20})
	}
	return &EmbedClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		limiter: limiter,
		retry:   DefaultEmbedRetry,
	}
}

type embedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding vector for text, retrying transient failures.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result := fn.Retry(ctx, c.retry, func(ctx context.Context) fn.Result[[]float32] {
		return fn.FromPair(c.embed(ctx, text))
	})
	return result.Unwrap()
}

func (c *EmbedClient) embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, _ := json.Marshal(embedReq{Model: c.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("ollama embed: status %d", resp.StatusCode)
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedBatch embeds each text in order. The first failure aborts the batch.
func (c *EmbedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}
