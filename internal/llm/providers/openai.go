package providers

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/discord-kg/pipeline/internal/llm"
	"github.com/discord-kg/pipeline/internal/types"
)

// OpenAIProvider implements llm.Provider for OpenAI chat models.
type OpenAIProvider struct {
	client  *openai.LLM
	config  llm.Config
	pricing *llm.PricingConfig
}

// NewOpenAIProvider creates an OpenAI provider from a validated config.
func NewOpenAIProvider(cfg llm.Config, pricing *llm.PricingConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, types.NewError(types.LLM_CREDENTIALS_MISSING, "no API key for openai: set OPENAI_API_KEY")
	}

	client, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, types.WrapError(types.LLM_INIT_FAILED, "failed to initialize openai client", err)
	}

	return &OpenAIProvider{client: client, config: cfg, pricing: pricing}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return llm.ProviderOpenAI.String()
}

// Model returns the configured model identifier.
func (p *OpenAIProvider) Model() string {
	return p.config.Model
}

// Complete sends a completion request and prices the reported token usage.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*llm.Response, error) {
	resp, err := p.client.GenerateContent(ctx,
		buildMessages(systemPrompt, userPrompt),
		llms.WithTemperature(p.config.Temperature),
		llms.WithMaxTokens(p.config.MaxTokens),
	)
	if err != nil {
		return nil, types.WrapRetryableError(types.LLM_CALL_FAILED, "openai completion failed", err)
	}

	choice := firstChoice(resp)
	if choice == nil {
		return nil, types.NewError(types.LLM_RESPONSE_INVALID, "openai returned no choices")
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
