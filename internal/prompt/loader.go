package prompt

import (
	"os"

	"github.com/spf13/viper"

	"github.com/discord-kg/pipeline/internal/types"
)

// rawConfig mirrors the on-disk YAML layout. The confidence scores and
// predicate vocabularies live under a separate config block so that prompt
// text and tuning knobs can be edited independently.
type rawConfig struct {
	System struct {
		Content string `mapstructure:"content"`
	} `mapstructure:"system"`
	Templates map[string]struct {
		Description string `mapstructure:"description"`
		Instruction string `mapstructure:"instruction"`
	} `mapstructure:"templates"`
	Config struct {
		ConfidenceScores map[string]float64  `mapstructure:"confidence_scores"`
		Predicates       map[string][]string `mapstructure:"predicates"`
	} `mapstructure:"config"`
}

// Load reads a prompt configuration from a YAML file and validates it.
// Loading is fail-fast: a missing file, parse error, or incomplete template
// set returns an error immediately.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, types.WrapError(types.CONFIG_NOT_FOUND, "prompt config not found: "+path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to read prompt config", err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to parse prompt config", err)
	}

	cfg := fromRaw(raw)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromRaw(raw rawConfig) *Config {
	cfg := &Config{
		SystemPrompt: raw.System.Content,
		Templates:    make(map[string]Template, len(raw.Templates)),
	}
	for name, t := range raw.Templates {
		cfg.Templates[name] = Template{
			Description:        t.Description,
			Instruction:        t.Instruction,
			Confidence:         raw.Config.ConfidenceScores[name],
			ExpectedPredicates: raw.Config.Predicates[name],
		}
	}
	return cfg
}
