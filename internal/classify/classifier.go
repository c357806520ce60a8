// Package classify implements the deterministic, rule-based message
// classifier. Classification never calls an LLM: every message gets exactly
// one type via an ordered first-match rule set with a length-based fallback.
package classify

import (
	"regexp"
	"strings"

	"github.com/discord-kg/pipeline/internal/kg"
)

// Rule priority is fixed: performance > alert > question > strategy >
// analysis > fallback. First match wins.
var (
	questionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(what|how|why|when|where|which|who|can|could|should|would|is|are|will)\b.*\?`),
		regexp.MustCompile(`(?i)\b(help|advice|suggestions?|recommendations?|thoughts?|opinions?)\b`),
		regexp.MustCompile(`(?i)\b(anyone|anybody)\s+(know|tried|using)\b`),
	}

	strategyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(strategy|approach|plan|setup|position|trade)\b`),
		regexp.MustCompile(`(?i)\b(buy|sell|long|short|calls?|puts?|spread)\b`),
		regexp.MustCompile(`(?i)\b(bullish|bearish|neutral|momentum)\b`),
	}

	analysisPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(analysis|outlook|forecast|prediction|expect)\b`),
		regexp.MustCompile(`(?i)\b(support|resistance|trend|pattern|chart)\b`),
		regexp.MustCompile(`(?i)\b(technical|fundamental|sentiment)\b`),
	}

	alertPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(alert|warning|notice|announcement)\b`),
		regexp.MustCompile(`(?i)\b(fomc|fed|cpi|inflation|earnings|meeting)\b`),
		regexp.MustCompile(`(?i)\b(volatility|expected|caution|watch)\b`),
	}

	percentPattern = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?\s*%`)
	returnKeywords = regexp.MustCompile(`(?i)\b(profit|loss|gain|return|made|lost|performance)\b`)

	// answerMinLength is the fallback heuristic threshold: longer messages
	// that don't end in a question mark are treated as answers.
	answerMinLength = 50
)

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Classify assigns exactly one MessageType to the given cleaned text.
// The result is deterministic for identical input.
func Classify(text string) kg.MessageType {
	lower := strings.ToLower(text)

	switch {
	case percentPattern.MatchString(lower) && returnKeywords.MatchString(lower):
		return kg.TypePerformance
	case matchesAny(alertPatterns, lower):
		return kg.TypeAlert
	case matchesAny(questionPatterns, lower):
		return kg.TypeQuestion
	case matchesAny(strategyPatterns, lower):
		return kg.TypeStrategy
	case matchesAny(analysisPatterns, lower):
		return kg.TypeAnalysis
	case len(lower) > answerMinLength && !strings.HasSuffix(lower, "?"):
		return kg.TypeAnswer
	default:
		return kg.TypeDiscussion
	}
}

// Bucketize assigns a type to each message and groups messages by that type.
// Every message lands in exactly one bucket.
func Bucketize(messages []kg.Message) map[kg.MessageType][]kg.Message {
	buckets := make(map[kg.MessageType][]kg.Message)

	for _, msg := range messages {
		msg.Type = Classify(msg.Content())
		buckets[msg.Type] = append(buckets[msg.Type], msg)
	}

	return buckets
}

// Counts summarizes bucket sizes per message type.
func Counts(buckets map[kg.MessageType][]kg.Message) map[string]int {
	counts := make(map[string]int, len(buckets))
	for t, msgs := range buckets {
		counts[t.String()] = len(msgs)
	}
	return counts
}
