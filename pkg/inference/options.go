package inference

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/aretw0/storychain/pkg/ports"
)

// Option defines a functional option for configuring the Client.
type Option func(*Client)

// WithEndpoint sets the inference server base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithModel sets the model identifier sent with every request.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds each generation attempt. Zero disables the
// per-attempt timeout and leaves cancellation to the caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxAttempts sets the transport retry budget per Generate call.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackOff replaces the backoff policy. The factory is invoked once
// per Generate call so retry intervals always start fresh.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(c *Client) {
		if factory != nil {
			c.newBackOff = factory
		}
	}
}

// WithAuditLog records every prompt/response exchange to the given log.
func WithAuditLog(audit ports.AuditLog) Option {
	return func(c *Client) {
		if audit != nil {
			c.audit = audit
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(c *Client) {
		if c.options == nil {
			c.options = &generateOptions{}
		}
		c.options.Temperature = temperature
	}
}

// WithNumPredict caps the number of tokens generated per scene.
func WithNumPredict(n int) Option {
	return func(c *Client) {
		if c.options == nil {
			c.options = &generateOptions{}
		}
		c.options.NumPredict = n
	}
}
