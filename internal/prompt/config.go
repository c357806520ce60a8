// Package prompt loads and validates the declarative prompt/template
// configuration that maps each message type to its extraction instruction,
// confidence score, and expected predicate vocabulary.
package prompt

import (
	"fmt"
	"strings"

	"github.com/discord-kg/pipeline/internal/kg"
	"github.com/discord-kg/pipeline/internal/types"
)

// TemplateQALinking is the pseudo-type key for the Q&A linking prompt. It is
// required alongside the per-message-type templates.
const TemplateQALinking = "qa_linking"

// DefaultConfidence is used when a template has no configured confidence
// score.
const DefaultConfidence = 0.75

// Template is a single prompt template definition. Instruction is a plain
// string template; placeholders use {name} syntax.
type Template struct {
	Description        string
	Instruction        string
	Confidence         float64
	ExpectedPredicates []string
}

// Format substitutes {placeholder} variables into the instruction.
// Unreferenced variables are ignored; unresolved placeholders are left
// intact for the caller to detect.
func (t Template) Format(vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(t.Instruction)
}

// Config holds the system prompt plus all templates and their per-type
// settings. It is loaded once at startup and treated as immutable.
type Config struct {
	SystemPrompt string
	Templates    map[string]Template
}

// requiredTemplates lists every template key that must exist with a
// non-empty instruction before a run is allowed to start. This is the
// baseline set only: any message type may carry a template, and the
// workflow extracts every type that has one.
func requiredTemplates() []string {
	return []string{
		kg.TypeQuestion.String(),
		kg.TypeStrategy.String(),
		kg.TypeAnalysis.String(),
		kg.TypeAnswer.String(),
		TemplateQALinking,
	}
}

// Validate performs fail-fast validation. Any error here aborts the run
// before a single message is processed.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SystemPrompt) == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "system prompt is empty")
	}

	for _, name := range requiredTemplates() {
		tmpl, ok := c.Templates[name]
		if !ok {
			return types.NewError(
				types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("missing required template: %s", name),
			)
		}
		if strings.TrimSpace(tmpl.Instruction) == "" {
			return types.NewError(
				types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("template %s has empty instruction", name),
			)
		}
	}

	for name, tmpl := range c.Templates {
		if tmpl.Confidence < 0.0 || tmpl.Confidence > 1.0 {
			return types.NewError(
				types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("invalid confidence score for %s: %g", name, tmpl.Confidence),
			)
		}
	}

	return nil
}

// Template returns the template for the given key (a message type name or
// qa_linking).
func (c *Config) Template(name string) (Template, error) {
	tmpl, ok := c.Templates[name]
	if !ok {
		return Template{}, types.NewError(
			types.CONFIG_NOT_FOUND,
			fmt.Sprintf("no template found for %s", name),
		)
	}
	return tmpl, nil
}

// ConfidenceFor returns the configured confidence score for a template key,
// or DefaultConfidence when none is set.
func (c *Config) ConfidenceFor(name string) float64 {
	tmpl, ok := c.Templates[name]
	if !ok || tmpl.Confidence == 0 {
		return DefaultConfidence
	}
	return tmpl.Confidence
}
