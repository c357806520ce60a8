package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discord-kg/pipeline/internal/kg"
	"github.com/discord-kg/pipeline/internal/types"
)

func validConfig() *Config {
	templates := map[string]Template{
		TemplateQALinking: {Instruction: "link {q_text} to {a_text}", Confidence: 0.85},
	}
	for _, t := range []kg.MessageType{kg.TypeQuestion, kg.TypeStrategy, kg.TypeAnalysis, kg.TypeAnswer} {
		templates[t.String()] = Template{
			Instruction: "extract from {message_text}",
			Confidence:  0.8,
		}
	}
	return &Config{
		SystemPrompt: "You are a knowledge extraction system.",
		Templates:    templates,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("empty system prompt fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.SystemPrompt = "   "
		err := cfg.Validate()
		require.Error(t, err)
		assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
	})

	t.Run("missing required template fails", func(t *testing.T) {
		cfg := validConfig()
		delete(cfg.Templates, kg.TypeStrategy.String())
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strategy")
	})

	t.Run("empty instruction fails", func(t *testing.T) {
		cfg := validConfig()
		tmpl := cfg.Templates[TemplateQALinking]
		tmpl.Instruction = ""
		cfg.Templates[TemplateQALinking] = tmpl
		assert.Error(t, cfg.Validate())
	})

	t.Run("confidence out of range fails", func(t *testing.T) {
		cfg := validConfig()
		tmpl := cfg.Templates[kg.TypeQuestion.String()]
		tmpl.Confidence = 1.5
		cfg.Templates[kg.TypeQuestion.String()] = tmpl
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "confidence")
	})
}

func TestConfidenceFor(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, 0.8, cfg.ConfidenceFor(kg.TypeQuestion.String()))
	assert.Equal(t, DefaultConfidence, cfg.ConfidenceFor("unknown_type"))

	tmpl := cfg.Templates[kg.TypeAnswer.String()]
	tmpl.Confidence = 0
	cfg.Templates[kg.TypeAnswer.String()] = tmpl
	assert.Equal(t, DefaultConfidence, cfg.ConfidenceFor(kg.TypeAnswer.String()))
}

func TestTemplateFormat(t *testing.T) {
	tmpl := Template{Instruction: "extract from:\n{message_text}\nend"}
	out := tmpl.Format(map[string]string{"message_text": "Author: alice, Text: hi"})
	assert.Equal(t, "extract from:\nAuthor: alice, Text: hi\nend", out)

	t.Run("unknown placeholders are left intact", func(t *testing.T) {
		tmpl := Template{Instruction: "a {missing} b"}
		assert.Equal(t, "a {missing} b", tmpl.Format(map[string]string{"other": "x"}))
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default config", func(t *testing.T) {
		cfg, err := Load(filepath.Join("..", "..", "config", "prompts.yaml"))
		require.NoError(t, err)
		assert.NotEmpty(t, cfg.SystemPrompt)
		// The shipped config carries a template for every message type so
		// each non-empty bucket can reach extraction.
		for _, typ := range kg.AllMessageTypes() {
			tmpl, err := cfg.Template(typ.String())
			require.NoError(t, err)
			assert.Contains(t, tmpl.Instruction, "{message_text}")
		}
		qa, err := cfg.Template(TemplateQALinking)
		require.NoError(t, err)
		assert.Contains(t, qa.Instruction, "{q_text}")
		assert.Contains(t, qa.Instruction, "{a_text}")
		assert.Equal(t, 0.8, cfg.ConfidenceFor("question"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Equal(t, types.CONFIG_NOT_FOUND, types.CodeOf(err))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("system: [unclosed"), 0o644))
		_, err := Load(path)
		require.Error(t, err)
		assert.Equal(t, types.CONFIG_PARSE_FAILED, types.CodeOf(err))
	})

	t.Run("incomplete template set", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "partial.yaml")
		content := `
system:
  content: extractor
templates:
  question:
    instruction: "extract {message_text}"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := Load(path)
		require.Error(t, err)
		assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
	})
}

func TestFormatBatch(t *testing.T) {
	messages := []kg.Message{
		{MessageID: "m1", Author: "alice", Text: "raw", CleanText: "what is DCA?"},
		{MessageID: "m2", Author: "bob", Text: "  spaced  "},
	}
	out := FormatBatch(messages)
	assert.Equal(t, "Author: alice, Text: what is DCA?\nAuthor: bob, Text: spaced", out)
}

func TestQAPrompt(t *testing.T) {
	cfg := validConfig()
	questions := []kg.Message{{MessageID: "q1", Author: "alice", CleanText: "how to hedge?"}}
	answers := []kg.Message{{MessageID: "a1", Author: "bob", CleanText: "use puts"}}

	out, err := cfg.QAPrompt(questions, answers)
	require.NoError(t, err)
	assert.Contains(t, out, "Q0: q1 - alice: how to hedge?")
	assert.Contains(t, out, "A0: a1 - bob: use puts")
}
