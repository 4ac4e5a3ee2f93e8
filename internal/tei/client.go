// Package tei is a small client for a Text Embeddings Inference server,
// covering the /embed and /rerank endpoints.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls a TEI server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	batchSize  int
	backoff    func(attempt int) time.Duration
}

// DefaultBatchSize matches TEI's default --max-client-batch-size.
const DefaultBatchSize = 32

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends a bearer token with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets the attempt budget for transient failures.
func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBatchSize sets how many inputs go in one request. Larger calls are
// split and the results reassembled in input order.
func WithBatchSize(n int) Option {
	return func(c *Client) { c.batchSize = n }
}

// WithBackoff overrides the delay between attempts.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(c *Client) { c.backoff = fn }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxRetries: MaxRetries,
		batchSize:  DefaultBatchSize,
		backoff:    Backoff,
	}
	for _, o := range opts {
		o(c)
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	if c.batchSize < 1 {
		c.batchSize = DefaultBatchSize
	}
	return c
}

type embedRequest struct {
	Inputs    []string `json:"inputs"`
	Truncate  bool     `json:"truncate"`
	Normalize bool     `json:"normalize"`
}

// Embed returns one vector per input, in input order.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += c.batchSize {
		batch := inputs[start:min(start+c.batchSize, len(inputs))]
		var vectors [][]float32
		err := c.post(ctx, "/embed", embedRequest{Inputs: batch, Truncate: true, Normalize: true}, &vectors)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(vectors), len(batch))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

type rerankRequest struct {
	Query    string   `json:"query"`
	Texts    []string `json:"texts"`
	Truncate bool     `json:"truncate"`
	RawScore bool     `json:"raw_scores"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Rerank scores every text against query. Results are returned in text
// order regardless of the order the server ranks them in.
func (c *Client) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		batch := texts[start:min(start+c.batchSize, len(texts))]
		var results []rerankResult
		err := c.post(ctx, "/rerank", rerankRequest{Query: query, Texts: batch, Truncate: true, RawScore: true}, &results)
		if err != nil {
			return nil, err
		}
		seen := make([]bool, len(batch))
		for _, r := range results {
			if r.Index < 0 || r.Index >= len(batch) || seen[r.Index] {
				return nil, fmt.Errorf("rerank: bad index %d", r.Index)
			}
			seen[r.Index] = true
			scores[start+r.Index] = r.Score
		}
		if len(results) != len(batch) {
			return nil, fmt.Errorf("rerank: got %d scores for %d texts", len(results), len(batch))
		}
	}
	return scores, nil
}

// post sends body to path and decodes the JSON response into out, retrying
// transient failures.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := range c.maxRetries {
		lastErr = c.do(ctx, path, payload, out)
		if lastErr == nil || !IsRetryable(lastErr) || attempt == c.maxRetries-1 {
			break
		}
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, path string, payload []byte, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("tei %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tei %s status %d: %s", path, resp.StatusCode, truncate(string(respBody), 200))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
