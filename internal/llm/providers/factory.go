package providers

import (
	"fmt"

	"github.com/discord-kg/pipeline/internal/llm"
	"github.com/discord-kg/pipeline/internal/types"
)

// NewProvider creates a provider from the configuration. The switch is the
// single place backends are registered.
func NewProvider(cfg llm.Config, pricing *llm.PricingConfig) (llm.Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case llm.ProviderOpenAI:
		return NewOpenAIProvider(cfg, pricing)

	case llm.ProviderAnthropic:
		return NewAnthropicProvider(cfg, pricing)

	case llm.ProviderMock:
		return NewMockProvider("[]"), nil

	default:
		return nil, types.NewError(
			types.LLM_PROVIDER_UNKNOWN,
			fmt.Sprintf("unknown provider type: %s", cfg.Provider),
		)
	}
}
