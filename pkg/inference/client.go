// Package inference talks to a local Ollama-compatible server to produce
// raw scene text for a prompt.
//
// The client owns transport-level resilience: bounded attempts with
// exponential backoff for connection failures, per-attempt timeouts, and
// HTTP 5xx responses, while 4xx responses fail fast as configuration
// errors. Every attempt's exchange, failed ones included, is written to
// the configured audit log.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/ports"
)

const (
	// DefaultEndpoint is the conventional local Ollama address.
	DefaultEndpoint = "http://localhost:11434"
	// DefaultModel is the reasoning model the prompts are written for.
	DefaultModel = "deepseek-r1:32b"
	// DefaultTimeout bounds a single generation attempt. Local reasoning
	// models routinely think for a minute or two.
	DefaultTimeout = 120 * time.Second
	// DefaultMaxAttempts bounds transport retries per Generate call.
	DefaultMaxAttempts = 3
)

// Client implements ports.Generator against the Ollama /api/generate API.
// A Client is intended for one driver at a time; the generation loop holds
// exactly one request in flight by construction.
type Client struct {
	endpoint    string
	model       string
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	options     *generateOptions
	newBackOff  func() backoff.BackOff
	audit       ports.AuditLog
	logger      *slog.Logger
}

// generateRequest is the non-streaming Ollama generation payload.
type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *generateOptions `json:"options,omitempty"`
}

// generateOptions carries sampling parameters through to the model.
type generateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// generateResponse is the subset of the Ollama reply the client uses.
type generateResponse struct {
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
	EvalCount  int    `json:"eval_count,omitempty"`
}

// New creates a client with the default local endpoint and model.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint:    DefaultEndpoint,
		model:       DefaultModel,
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		newBackOff:  defaultBackOff,
		audit:       ports.NopAudit{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return b
}

// Generate sends the prompt and returns the raw model response.
//
// Transient failures (connection errors, per-attempt timeouts, 5xx) are
// retried up to the attempt budget with exponential backoff; exhaustion
// surfaces as domain.ErrInferenceUnavailable. A 4xx response surfaces
// immediately as domain.ErrInferenceRejected. Cancellation of ctx aborts
// the in-flight request and the retry loop.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	bo := c.newBackOff()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		raw, err := c.generateOnce(ctx, prompt)
		if err == nil {
			c.recordAudit(ctx, prompt, raw)
			c.logger.Debug("inference attempt succeeded",
				"attempt", attempt, "duration", time.Since(start))
			return raw, nil
		}

		c.recordAudit(ctx, prompt, "ERROR: "+err.Error())

		if errors.Is(err, domain.ErrInferenceRejected) {
			c.logger.Error("inference request rejected", "err", err)
			return "", err
		}
		if ctx.Err() != nil {
			// The attempt died because the caller gave up, not because
			// the server is unhealthy.
			return "", ctx.Err()
		}
		lastErr = err

		if attempt == c.maxAttempts {
			break
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		c.logger.Warn("inference attempt failed, retrying",
			"attempt", attempt, "backoff", wait, "err", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}

	return "", fmt.Errorf("%w: %d attempts failed, last error: %v",
		domain.ErrInferenceUnavailable, c.maxAttempts, lastErr)
}

// generateOnce performs a single request/response exchange.
func (c *Client) generateOnce(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: c.options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(c.endpoint, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint %q: %v", domain.ErrInferenceRejected, c.endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection refused, DNS failure, attempt timeout: transient.
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("server error: %s: %s", resp.Status, snippet(body))
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("%w: %s: %s", domain.ErrInferenceRejected, resp.Status, snippet(body))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !out.Done {
		return "", fmt.Errorf("server returned an incomplete generation")
	}

	c.logger.Debug("generation finished",
		"done_reason", out.DoneReason, "eval_count", out.EvalCount)

	return out.Response, nil
}

func (c *Client) recordAudit(ctx context.Context, prompt, response string) {
	if err := c.audit.Record(ctx, prompt, response); err != nil {
		c.logger.Warn("failed to record audit entry", "err", err)
	}
}

// snippet keeps server error bodies readable in wrapped errors.
func snippet(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
