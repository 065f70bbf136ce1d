package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ClaimSightAI/claimsight-mvp/pkg/resilience"
)

// GenerateClient produces completions via Ollama's HTTP API. Calls go
// through a circuit breaker so a struggling model server sheds load
// instead of stacking up slow requests.
type GenerateClient struct {
	baseURL string
	model   string
	client  *http.Client
	breaker *resilience.Breaker
}

// NewGenerateClient creates an Ollama generation client. A nil breaker gets
// the package defaults.
func NewGenerateClient(baseURL, model string, breaker *resilience.Breaker) *GenerateClient {
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.DefaultBreakerOpts)
	}
	return &GenerateClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		breaker: breaker,
	}
}

type generateReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResp struct {
	Response string `json:"response"`
}

// Generate returns the model's completion for prompt.
func (c *GenerateClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		text, err := c.generate(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

func (c *GenerateClient) generate(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(generateReq{Model: c.model, Prompt: prompt})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("ollama generate: status %d", resp.StatusCode)
	}

	var result generateResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ollama generate decode: %w", err)
	}
	return result.Response, nil
}
