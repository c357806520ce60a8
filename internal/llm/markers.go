package llm

import "strings"

// Markers the Q&A linking prompt asks the model to emit around its JSON
// payload and before its free-text explanation.
const (
	jsonStartMarker = "JSON_START"
	jsonEndMarker   = "JSON_END"
	reasoningMarker = "REASONING:"
)

// SplitMarkedResponse separates a marked model response into its JSON payload
// and trailing reasoning. When the markers are absent the whole response is
// returned as the payload with empty reasoning, so older prompt formats still
// parse.
func SplitMarkedResponse(content string) (payload, reasoning string) {
	start := strings.Index(content, jsonStartMarker)
	end := strings.Index(content, jsonEndMarker)
	if start == -1 || end == -1 || end < start {
		return strings.TrimSpace(content), ""
	}

	payload = strings.TrimSpace(content[start+len(jsonStartMarker) : end])

	if r := strings.Index(content, reasoningMarker); r != -1 {
		reasoning = strings.TrimSpace(content[r+len(reasoningMarker):])
	}
	return payload, reasoning
}
