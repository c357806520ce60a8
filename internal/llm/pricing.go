package llm

import (
	"strings"
	"sync"
)

// ModelPricing contains pricing for a specific model. Prices are in USD per
// 1000 tokens.
type ModelPricing struct {
	InputPer1K  float64 `mapstructure:"input_per_1k" yaml:"input_per_1k"`
	OutputPer1K float64 `mapstructure:"output_per_1k" yaml:"output_per_1k"`
}

// Cost calculates the cost of a call from its token counts.
func (m ModelPricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000.0*m.InputPer1K +
		float64(outputTokens)/1000.0*m.OutputPer1K
}

// tierRule resolves pricing for models without an exact table entry. The
// first rule whose substring appears in the model name wins; Substring ""
// is the provider's catch-all.
type tierRule struct {
	Substring string
	Pricing   ModelPricing
}

// PricingConfig maps provider -> model -> pricing, with per-provider tier
// fallback rules for unknown model variants.
type PricingConfig struct {
	mu      sync.RWMutex
	pricing map[string]map[string]ModelPricing
	tiers   map[string][]tierRule
}

// DefaultPricing returns a PricingConfig populated with known model prices.
func DefaultPricing() *PricingConfig {
	p := &PricingConfig{
		pricing: make(map[string]map[string]ModelPricing),
		tiers:   make(map[string][]tierRule),
	}

	p.pricing["openai"] = map[string]ModelPricing{
		"gpt-3.5-turbo":      {InputPer1K: 0.0015, OutputPer1K: 0.002},
		"gpt-3.5-turbo-0125": {InputPer1K: 0.0015, OutputPer1K: 0.002},
		"gpt-4":              {InputPer1K: 0.01, OutputPer1K: 0.03},
		"gpt-4-turbo":        {InputPer1K: 0.01, OutputPer1K: 0.03},
		"gpt-4o":             {InputPer1K: 0.01, OutputPer1K: 0.03},
	}
	p.tiers["openai"] = []tierRule{
		{Substring: "gpt-3.5", Pricing: ModelPricing{InputPer1K: 0.0015, OutputPer1K: 0.002}},
		{Substring: "", Pricing: ModelPricing{InputPer1K: 0.01, OutputPer1K: 0.03}},
	}

	p.pricing["anthropic"] = map[string]ModelPricing{
		"claude-3-haiku-20240307":  {InputPer1K: 0.00025, OutputPer1K: 0.00125},
		"claude-3-haiku":           {InputPer1K: 0.00025, OutputPer1K: 0.00125},
		"claude-3-sonnet-20240229": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-5-sonnet":        {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-opus-20240229":   {InputPer1K: 0.015, OutputPer1K: 0.075},
	}
	p.tiers["anthropic"] = []tierRule{
		{Substring: "haiku", Pricing: ModelPricing{InputPer1K: 0.00025, OutputPer1K: 0.00125}},
		{Substring: "", Pricing: ModelPricing{InputPer1K: 0.003, OutputPer1K: 0.015}},
	}

	// The mock provider is free.
	p.pricing["mock"] = map[string]ModelPricing{}
	p.tiers["mock"] = []tierRule{
		{Substring: "", Pricing: ModelPricing{}},
	}

	return p
}

// SetModelPricing sets pricing for a specific provider and model, overriding
// both the table and tier fallback for that model.
func (p *PricingConfig) SetModelPricing(provider, model string, pricing ModelPricing) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pricing[provider] == nil {
		p.pricing[provider] = make(map[string]ModelPricing)
	}
	p.pricing[provider][model] = pricing
}

// Lookup resolves pricing for a provider/model pair. Exact table entries win;
// otherwise the provider's tier rules match on model-name substrings. The
// boolean is false only when the provider is entirely unknown.
func (p *PricingConfig) Lookup(provider, model string) (ModelPricing, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if models, ok := p.pricing[provider]; ok {
		if pricing, ok := models[model]; ok {
			return pricing, true
		}
	}

	rules, ok := p.tiers[provider]
	if !ok {
		return ModelPricing{}, false
	}
	for _, rule := range rules {
		if rule.Substring == "" || strings.Contains(model, rule.Substring) {
			return rule.Pricing, true
		}
	}
	return ModelPricing{}, false
}

// CostOf calculates the cost of a call, returning 0 for unknown providers.
func (p *PricingConfig) CostOf(provider, model string, inputTokens, outputTokens int) float64 {
	pricing, ok := p.Lookup(provider, model)
	if !ok {
		return 0
	}
	return pricing.Cost(inputTokens, outputTokens)
}
