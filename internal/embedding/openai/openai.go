package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	retry "github.com/sethvargo/go-retry"

	"flirtbot/internal/domain"
	"flirtbot/internal/embedding"
)

// Defaults target a local Ollama serving all-minilm (all-MiniLM-L6-v2).
const (
	// DefaultBaseURL is Ollama's OpenAI-compatible endpoint.
	DefaultBaseURL = "http://localhost:11434/v1"
	// DefaultModel produces 384-dimensional sentence embeddings.
	DefaultModel = "all-minilm"
	// DefaultBatchSize is the number of texts sent per request.
	DefaultBatchSize = 32
)

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
// It also understands Ollama's native response shapes.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	maxRetries uint64
	retryBase  time.Duration
	dimension  atomic.Int64
	client     *http.Client
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL string
	// APIKeyEnv names the environment variable holding the API key. Local servers may leave it unset.
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	BatchSize  int
	MaxRetries int
	RetryBase  time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("openai: negative max retries %d", cfg.MaxRetries)
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		maxRetries: uint64(cfg.MaxRetries),
		retryBase:  cfg.RetryBase,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Prepare is not required for remote embedding. The dimension is recorded on first Encode.
func (c *Client) Prepare(_ []string) error { return nil }

// Dimension returns the dimensionality seen so far, or 0 before the first call.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Encode embeds texts in batches. Blank texts are rejected before any request is sent.
func (c *Client) Encode(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("openai: input %d: %w", i, embedding.ErrEmptyText)
		}
	}
	out := make([]domain.Embedding, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([]domain.Embedding, error) {
	body, err := json.Marshal(struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}{Input: batch, Model: c.model})
	if err != nil {
		return nil, err
	}
	url := c.baseURL + "/embeddings"

	var vecs []domain.Embedding
	b := retry.WithMaxRetries(c.maxRetries, retry.WithCappedDuration(5*time.Second, retry.NewExponential(c.retryBase)))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if err := waitRetryAfter(ctx, resp.Header.Get("Retry-After")); err != nil {
				return err
			}
			return retry.RetryableError(fmt.Errorf("openai embeddings failed: %s", resp.Status))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("openai embeddings failed: %s", resp.Status)
		}
		if readErr != nil {
			return retry.RetryableError(readErr)
		}
		vecs, err = decode(payload, len(batch))
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, v := range vecs {
		if err := c.checkDimension(len(v)); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (c *Client) checkDimension(n int) error {
	if n == 0 {
		return fmt.Errorf("openai: empty embedding returned")
	}
	if c.dimension.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if want := c.dimension.Load(); want != int64(n) {
		return fmt.Errorf("openai: embedding dimension %d, want %d", n, want)
	}
	return nil
}

// decode accepts the OpenAI shape {"data":[{"index":i,"embedding":[...]}]},
// Ollama /api/embed {"embeddings":[[...]]} and the legacy {"embedding":[...]}.
func decode(payload []byte, want int) ([]domain.Embedding, error) {
	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Embeddings [][]float32 `json:"embeddings"`
		Embedding  []float32   `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	var vecs []domain.Embedding
	switch {
	case len(out.Data) > 0:
		sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
		for _, d := range out.Data {
			vecs = append(vecs, d.Embedding)
		}
	case len(out.Embeddings) > 0:
		for _, e := range out.Embeddings {
			vecs = append(vecs, e)
		}
	case len(out.Embedding) > 0:
		vecs = []domain.Embedding{out.Embedding}
	}
	if len(vecs) != want {
		return nil, fmt.Errorf("openai: got %d embeddings for %d inputs", len(vecs), want)
	}
	return vecs, nil
}

func waitRetryAfter(ctx context.Context, header string) error {
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(secs) * time.Second)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
