// Package generator wraps the remote text-generation service: one wire
// contract, four prompt kinds, automatic retry with linear backoff.
// Structured payloads (quiz, syllabus) come back as JSON-encoded strings;
// parsing and validation belong to the caller because the service's
// structured-output guarantee is probabilistic, not contractual.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Kind identifies the prompt type sent to the generation service.
type Kind int

const (
	KindStudyBuddy Kind = iota
	KindSyllabusStructure
	KindNotes
	KindQuiz
)

func (k Kind) String() string {
	switch k {
	case KindStudyBuddy:
		return "study_buddy"
	case KindSyllabusStructure:
		return "syllabus_structure"
	case KindNotes:
		return "notes_generation"
	case KindQuiz:
		return "quiz_generation"
	default:
		return "unknown"
	}
}

// Client is the interface the rest of the system depends on.
type Client interface {
	Generate(ctx context.Context, content string, kind Kind) (string, error)
}

const (
	defaultRetries   = 2
	defaultBaseDelay = time.Second
)

// HTTPClient calls the generation service over HTTP. Transport failures,
// non-2xx statuses and empty response bodies are retried up to the configured
// bound with linearly increasing delay (attempt index × base delay). No state
// is kept between calls.
type HTTPClient struct {
	url       string
	client    *http.Client
	retries   int
	baseDelay time.Duration
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int) Option {
	return func(c *HTTPClient) {
		c.retries = n
	}
}

// WithBaseDelay sets the backoff unit between attempts.
func WithBaseDelay(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.baseDelay = d
	}
}

// NewHTTPClient creates a gateway client for the generation service endpoint.
func NewHTTPClient(url string, opts ...Option) (*HTTPClient, error) {
	if url == "" {
		return nil, fmt.Errorf("generator service URL is required")
	}
	c := &HTTPClient{
		url:       url,
		client:    &http.Client{Timeout: 90 * time.Second},
		retries:   defaultRetries,
		baseDelay: defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type generateRequest struct {
	Content    string `json:"content"`
	PromptType string `json:"promptType"`
}

type generateResponse struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// Generate performs the remote call, retrying transient failures. It returns
// the raw content string; structured kinds still need ParseQuiz/ParseSyllabus.
func (c *HTTPClient) Generate(ctx context.Context, content string, kind Kind) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.baseDelay
			slog.Debug("retrying generation",
				"kind", kind.String(),
				"attempt", attempt+1,
				"delay", delay,
			)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("generation canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		out, err := c.generateOnce(ctx, content, kind)
		if err == nil {
			return out, nil
		}
		lastErr = err
		slog.Warn("generation attempt failed",
			"kind", kind.String(),
			"attempt", attempt+1,
			"error", err,
		)
		if ctx.Err() != nil {
			return "", fmt.Errorf("generation canceled: %w", ctx.Err())
		}
	}

	return "", fmt.Errorf("%s generation failed after %d attempts: %w", kind, c.retries+1, lastErr)
}

func (c *HTTPClient) generateOnce(ctx context.Context, content string, kind Kind) (string, error) {
	body, err := json.Marshal(generateRequest{
		Content:    content,
		PromptType: kind.String(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure generateResponse
		if json.Unmarshal(respBody, &failure) == nil && failure.Error != "" {
			return "", fmt.Errorf("generation service error (status %d): %s", resp.StatusCode, failure.Error)
		}
		return "", fmt.Errorf("generation service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var success generateResponse
	if err := json.Unmarshal(respBody, &success); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	out := strings.TrimSpace(success.Content)
	if out == "" {
		return "", fmt.Errorf("generation service returned empty content")
	}
	return out, nil
}
