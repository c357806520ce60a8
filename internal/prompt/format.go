package prompt

import (
	"fmt"
	"strings"

	"github.com/discord-kg/pipeline/internal/kg"
)

// FormatBatch renders a batch of messages as one "Author: X, Text: Y" line
// per message, the shape the extraction instructions expect.
func FormatBatch(messages []kg.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("Author: %s, Text: %s", m.Author, m.Content()))
	}
	return strings.Join(lines, "\n")
}

// ExtractionPrompt builds the user prompt for one extraction batch of the
// given message type.
func (c *Config) ExtractionPrompt(msgType kg.MessageType, batch []kg.Message) (string, error) {
	tmpl, err := c.Template(msgType.String())
	if err != nil {
		return "", err
	}
	return tmpl.Format(map[string]string{
		"message_text": FormatBatch(batch),
	}), nil
}

// QAPrompt builds the user prompt for one Q&A linking batch. Questions and
// answers are numbered so the model can reference them by id.
func (c *Config) QAPrompt(questions, answers []kg.Message) (string, error) {
	tmpl, err := c.Template(TemplateQALinking)
	if err != nil {
		return "", err
	}

	qLines := make([]string, 0, len(questions))
	for i, q := range questions {
		qLines = append(qLines, fmt.Sprintf("Q%d: %s - %s: %s", i, q.MessageID, q.Author, q.Content()))
	}
	aLines := make([]string, 0, len(answers))
	for i, a := range answers {
		aLines = append(aLines, fmt.Sprintf("A%d: %s - %s: %s", i, a.MessageID, a.Author, a.Content()))
	}

	return tmpl.Format(map[string]string{
		"q_text": strings.Join(qLines, "\n"),
		"a_text": strings.Join(aLines, "\n"),
	}), nil
}
