// Package providers contains the concrete completion backends behind the
// llm.Provider interface: OpenAI and Anthropic via langchaingo, and a
// scripted mock for tests.
package providers

import (
	"github.com/tmc/langchaingo/llms"
)

// buildMessages converts a system+user prompt pair into langchaingo message
// content.
func buildMessages(systemPrompt, userPrompt string) []llms.MessageContent {
	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt)},
		},
	}
}

// tokenUsage pulls token counts out of a response choice's GenerationInfo.
// Key names differ per backend: OpenAI reports PromptTokens/CompletionTokens,
// Anthropic reports InputTokens/OutputTokens. When the backend reports
// nothing, counts are estimated from text length at roughly 4 characters per
// token.
func tokenUsage(choice *llms.ContentChoice, promptText string) (inputTokens, outputTokens int) {
	if choice != nil && choice.GenerationInfo != nil {
		inputTokens = intFromInfo(choice.GenerationInfo, "PromptTokens", "InputTokens")
		outputTokens = intFromInfo(choice.GenerationInfo, "CompletionTokens", "OutputTokens")
	}
	if inputTokens == 0 && outputTokens == 0 {
		inputTokens = estimateTokens(promptText)
		if choice != nil {
			outputTokens = estimateTokens(choice.Content)
		}
	}
	return inputTokens, outputTokens
}

// intFromInfo returns the first of the named keys present in the generation
// info map, coercing the numeric types langchaingo backends use.
func intFromInfo(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

// estimateTokens approximates a token count from text length.
func estimateTokens(text string) int {
	return len(text) / 4
}

// firstChoice returns the first content choice of a response, or nil.
func firstChoice(resp *llms.ContentResponse) *llms.ContentChoice {
	if resp == nil || len(resp.Choices) == 0 {
		return nil
	}
	return resp.Choices[0]
}
