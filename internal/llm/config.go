package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/discord-kg/pipeline/internal/types"
)

// ProviderType identifies a supported completion backend. The set is closed;
// adding a backend means adding a constant here and a case to the factory.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderMock      ProviderType = "mock"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}

// IsValid checks if the provider type is one of the supported backends.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
		return true
	default:
		return false
	}
}

// ParseProviderType converts a string to a ProviderType, case-insensitively.
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", types.NewError(
			types.LLM_PROVIDER_UNKNOWN,
			fmt.Sprintf("unknown provider: %s", s),
		)
	}
	return p, nil
}

// Default models used when neither the config nor the environment names one.
const (
	DefaultOpenAIModel    = "gpt-3.5-turbo"
	DefaultAnthropicModel = "claude-3-haiku-20240307"
)

// Completion defaults shared by all providers.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 2000
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = time.Second
)

// Config holds the settings for constructing a provider and its retry
// wrapper.
type Config struct {
	Provider    ProviderType  `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// envAPIKey maps each provider to the environment variable holding its
// credential.
var envAPIKey = map[ProviderType]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// envModel maps each provider to the environment variable that can override
// its default model.
var envModel = map[ProviderType]string{
	ProviderOpenAI:    "OPENAI_MODEL",
	ProviderAnthropic: "ANTHROPIC_MODEL",
}

// ApplyDefaults resolves the model and credential from the environment and
// fills zero-valued fields with defaults. The mock provider needs no
// credential.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		if env := envModel[c.Provider]; env != "" {
			c.Model = os.Getenv(env)
		}
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.Model = DefaultOpenAIModel
		case ProviderAnthropic:
			c.Model = DefaultAnthropicModel
		}
	}
	if c.APIKey == "" {
		if env := envAPIKey[c.Provider]; env != "" {
			c.APIKey = os.Getenv(env)
		}
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// Validate checks the config after defaults have been applied. Missing
// credentials are fatal at construction time, never mid-run.
func (c *Config) Validate() error {
	if !c.Provider.IsValid() {
		return types.NewError(
			types.LLM_PROVIDER_UNKNOWN,
			fmt.Sprintf("unknown provider: %s", c.Provider),
		)
	}
	if env, needsKey := envAPIKey[c.Provider]; needsKey && c.APIKey == "" {
		return types.NewError(
			types.LLM_CREDENTIALS_MISSING,
			fmt.Sprintf("no API key for %s: set %s", c.Provider, env),
		)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return types.NewError(
			types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("temperature out of range: %g", c.Temperature),
		)
	}
	if c.MaxTokens <= 0 {
		return types.NewError(
			types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("max_tokens must be positive: %d", c.MaxTokens),
		)
	}
	return nil
}
