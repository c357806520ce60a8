// Package llm defines the provider abstraction for chat completion backends,
// along with retry, pricing, and usage tracking shared by all providers.
package llm

import (
	"context"
)

// Provider defines the interface that all completion backends must implement.
// It provides a unified abstraction over different LLM services (OpenAI,
// Anthropic, a scripted mock for tests).
type Provider interface {
	// Name returns the provider name (e.g. "openai", "anthropic", "mock").
	Name() string

	// Model returns the model identifier this provider is configured with.
	Model() string

	// Complete sends a single system+user completion request and returns the
	// full response. This is a blocking call.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*Response, error)
}

// Response is the normalized result of one completion call. Token counts and
// cost are filled in by the provider; Err is set instead of returning a Go
// error when the workflow should keep going with a degraded result.
type Response struct {
	Content      string  `json:"content"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Cost         float64 `json:"cost"`
	Model        string  `json:"model"`
	Provider     string  `json:"provider"`
	Err          string  `json:"error,omitempty"`
	Reasoning    string  `json:"reasoning,omitempty"`
}

// Success reports whether the completion produced a usable result.
func (r *Response) Success() bool {
	return r != nil && r.Err == ""
}
