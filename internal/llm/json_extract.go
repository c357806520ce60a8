package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// codeBlockPattern matches fenced markdown code blocks with an optional
// language tag.
var codeBlockPattern = regexp.MustCompile("(?s)```(\\w*)\\s*\\n(.+?)\\n```")

// ExtractJSON pulls a JSON value out of a model response that may wrap it in
// prose or markdown. Fenced ```json blocks are tried first, then the first
// raw object or array found by bracket matching.
func ExtractJSON(response string) (string, error) {
	if s, ok := fromCodeBlock(response); ok {
		return s, nil
	}
	if s, ok := fromRawText(response); ok {
		return s, nil
	}
	return "", fmt.Errorf("no valid JSON found in response")
}

// ExtractJSONAs extracts JSON and unmarshals it into T.
func ExtractJSONAs[T any](response string) (T, error) {
	var result T
	s, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// fromCodeBlock scans fenced code blocks for a JSON value. Blocks tagged with
// a non-json language are skipped.
func fromCodeBlock(response string) (string, bool) {
	for _, match := range codeBlockPattern.FindAllStringSubmatch(response, -1) {
		lang := strings.ToLower(match[1])
		if lang != "" && lang != "json" {
			continue
		}
		content := strings.TrimSpace(match[2])
		if (strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")) && validJSON(content) {
			return content, true
		}
	}
	return "", false
}

// fromRawText finds the first { or [ and matches brackets to the end of the
// value, respecting string literals and escapes.
func fromRawText(response string) (string, bool) {
	start, close := -1, byte(0)
	if i := strings.IndexAny(response, "{["); i >= 0 {
		start = i
		if response[i] == '{' {
			close = '}'
		} else {
			close = ']'
		}
	}
	if start < 0 {
		return "", false
	}

	s := response[start:]
	open := s[0]
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				candidate := s[:i+1]
				if validJSON(candidate) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}

func validJSON(s string) bool {
	var raw json.RawMessage
	return json.Unmarshal([]byte(s), &raw) == nil
}
