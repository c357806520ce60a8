package providers

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/discord-kg/pipeline/internal/llm"
	"github.com/discord-kg/pipeline/internal/types"
)

// AnthropicProvider implements llm.Provider for Anthropic Claude models.
type AnthropicProvider struct {
	client  *anthropic.LLM
	config  llm.Config
	pricing *llm.PricingConfig
}

// NewAnthropicProvider creates an Anthropic provider from a validated config.
func NewAnthropicProvider(cfg llm.Config, pricing *llm.PricingConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, types.NewError(types.LLM_CREDENTIALS_MISSING, "no API key for anthropic: set ANTHROPIC_API_KEY")
	}

	client, err := anthropic.New(
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, types.WrapError(types.LLM_INIT_FAILED, "failed to initialize anthropic client", err)
	}

	return &AnthropicProvider{client: client, config: cfg, pricing: pricing}, nil
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return llm.ProviderAnthropic.String()
}

// Model returns the configured model identifier.
func (p *AnthropicProvider) Model() string {
	return p.config.Model
}

// Complete sends a completion request and prices the reported token usage.
func (p *AnthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*llm.Response, error) {
	resp, err := p.client.GenerateContent(ctx,
		buildMessages(systemPrompt, userPrompt),
		llms.WithTemperature(p.config.Temperature),
		llms.WithMaxTokens(p.config.MaxTokens),
	)
	if err != nil {
		return nil, types.WrapRetryableError(types.LLM_CALL_FAILED, "anthropic completion failed", err)
	}

	choice := firstChoice(resp)
	if choice == nil {
		return nil, types.NewError(types.LLM_RESPONSE_INVALID, "anthropic returned no choices")
	}

	inputTokens, outputTokens := tokenUsage(choice, systemPrompt+userPrompt)
	return &llm.Response{
		Content:      choice.Content,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		Cost:         p.pricing.CostOf(p.Name(), p.config.Model, inputTokens, outputTokens),
		Model:        p.config.Model,
		Provider:     p.Name(),
	}, nil
}
