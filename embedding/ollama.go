package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/hupe1980/vecscan/distance"
)

// OllamaConfig holds Ollama-specific configuration.
type OllamaConfig struct {
	// BaseURL is the Ollama API endpoint.
	BaseURL string `json:"base_url" yaml:"baseUrl"`
	// Model is the embedding model (the store's modelId).
	Model string `json:"model" yaml:"model"`
	// Timeout for HTTP requests.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// RequestsPerSecond limits outgoing requests. Zero means unlimited.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requestsPerSecond"`
}

// DefaultOllamaConfig returns a default Ollama configuration.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL: "http://localhost:11434",
		Model:   "nomic-embed-text",
		Timeout: 30 * time.Second,
	}
}

// Validate validates the configuration.
func (c OllamaConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("ollama: base URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("ollama: model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("ollama: timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("ollama: requests per second must not be negative")
	}
	return nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Ollama embeds text with an Ollama server's /api/embed endpoint.
type Ollama struct {
	config   OllamaConfig
	client   *http.Client
	endpoint string
	limiter  *rate.Limiter
}

// NewOllama creates an Ollama provider.
func NewOllama(config OllamaConfig) (*Ollama, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base URL: %w", err)
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Ollama{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		endpoint: base.JoinPath("api", "embed").String(),
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

// Model returns the configured model.
func (o *Ollama) Model() string {
	return o.config.Model
}

// Embed implements Provider. The returned vector is L2-normalized.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := gojson.Marshal(embedRequest{Model: o.config.Model, Input: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embedResponse
	if err := gojson.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding for model %q", o.config.Model)
	}

	vec := out.Embeddings[0]
	if !distance.NormalizeL2InPlace(vec) {
		return nil, ErrZeroVector
	}
	return vec, nil
}
