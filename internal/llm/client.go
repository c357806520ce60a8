package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/discord-kg/pipeline/internal/types"
)

// maxRetryDelay caps exponential backoff so late attempts do not stall a run.
const maxRetryDelay = 30 * time.Second

// Client wraps a Provider with retry, backoff, and usage tracking. It is the
// handle workflow nodes call; they never talk to a Provider directly.
type Client struct {
	provider   Provider
	tracker    *Tracker
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger used for retry warnings.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxRetries overrides the retry budget. Zero means no retries, a single
// attempt only.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay overrides the base backoff delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// NewClient creates a retrying client around the given provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:   provider,
		tracker:    NewTracker(provider.Name(), provider.Model()),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider { return c.provider }

// Tracker returns the usage tracker accumulating this client's calls.
func (c *Client) Tracker() *Tracker { return c.tracker }

// Complete runs one completion with retries. A transient provider failure is
// retried with exponential backoff up to the retry budget; an error carrying
// no retryable hint ends the attempts immediately. Either way, once attempts
// stop Complete returns a degraded response with empty-array content and the
// last error recorded on it rather than a Go error, so a single bad batch
// never aborts the whole run. The returned error is non-nil only for context
// cancellation.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		resp, err := c.provider.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			c.tracker.Record(resp)
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if !retryable(err) {
			c.logger.Warn("completion failed, not retrying",
				"provider", c.provider.Name(),
				"error", err)
			break
		}
		c.logger.Warn("completion attempt failed",
			"provider", c.provider.Name(),
			"attempt", attempt+1,
			"max_attempts", c.maxRetries+1,
			"error", err)
	}

	c.logger.Error("completion gave up",
		"provider", c.provider.Name(),
		"error", lastErr)

	resp := &Response{
		Content:  "[]",
		Model:    c.provider.Model(),
		Provider: c.provider.Name(),
		Err:      lastErr.Error(),
	}
	c.tracker.Record(resp)
	return resp, nil
}

// retryable decides whether a failed attempt is worth repeating. Structured
// errors carry an explicit hint; plain errors from provider SDKs are treated
// as transient.
func retryable(err error) bool {
	if types.CodeOf(err) == "" {
		return true
	}
	return types.IsRetryable(err)
}

// backoff returns the delay before retry n (0-based): retryDelay * 2^n,
// capped at maxRetryDelay.
func (c *Client) backoff(n int) time.Duration {
	d := c.retryDelay
	for i := 0; i < n; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}

// sleep waits for d or until the context is canceled.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
