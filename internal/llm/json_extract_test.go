package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Run("json code block", func(t *testing.T) {
		response := "Here are the triples:\n```json\n[{\"subject\": \"alice\"}]\n```\nDone."
		got, err := ExtractJSON(response)
		require.NoError(t, err)
		assert.Equal(t, `[{"subject": "alice"}]`, got)
	})

	t.Run("untagged code block", func(t *testing.T) {
		response := "```\n{\"a\": 1}\n```"
		got, err := ExtractJSON(response)
		require.NoError(t, err)
		assert.Equal(t, `{"a": 1}`, got)
	})

	t.Run("skips non-json code blocks", func(t *testing.T) {
		response := "```python\nprint('hi')\n```\nresult: [1, 2]"
		got, err := ExtractJSON(response)
		require.NoError(t, err)
		assert.Equal(t, "[1, 2]", got)
	})

	t.Run("raw array in prose", func(t *testing.T) {
		response := `The extracted triples are [{"subject": "bob", "predicate": "asks_about", "object": "DCA"}] as requested.`
		got, err := ExtractJSON(response)
		require.NoError(t, err)
		assert.Contains(t, got, `"predicate": "asks_about"`)
	})

	t.Run("nested brackets", func(t *testing.T) {
		response := `{"outer": {"inner": [1, {"deep": true}]}}`
		got, err := ExtractJSON(response)
		require.NoError(t, err)
		assert.Equal(t, response, got)
	})

	t.Run("brackets inside strings", func(t *testing.T) {
		response := `[{"text": "a ] tricky \" value"}]`
		got, err := ExtractJSON(response)
		require.NoError(t, err)
		assert.Equal(t, response, got)
	})

	t.Run("no json at all", func(t *testing.T) {
		_, err := ExtractJSON("I could not find any triples in these messages.")
		assert.Error(t, err)
	})

	t.Run("unterminated json", func(t *testing.T) {
		_, err := ExtractJSON(`[{"subject": "truncated`)
		assert.Error(t, err)
	})
}

func TestExtractJSONAs(t *testing.T) {
	type triple struct {
		Subject   string `json:"subject"`
		Predicate string `json:"predicate"`
		Object    string `json:"object"`
	}

	response := "```json\n[{\"subject\": \"alice\", \"predicate\": \"asks_about\", \"object\": \"hedging\"}]\n```"
	triples, err := ExtractJSONAs[[]triple](response)
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "alice", triples[0].Subject)

	t.Run("type mismatch", func(t *testing.T) {
		_, err := ExtractJSONAs[[]triple](`{"not": "an array"}`)
		assert.Error(t, err)
	})
}

func TestSplitMarkedResponse(t *testing.T) {
	t.Run("markers with reasoning", func(t *testing.T) {
		content := "Some preamble\nJSON_START\n[{\"question_id\": \"q1\", \"answer_id\": \"a1\"}]\nJSON_END\nREASONING: a1 directly addresses q1's topic"
		payload, reasoning := SplitMarkedResponse(content)
		assert.Equal(t, `[{"question_id": "q1", "answer_id": "a1"}]`, payload)
		assert.Equal(t, "a1 directly addresses q1's topic", reasoning)
	})

	t.Run("markers without reasoning", func(t *testing.T) {
		payload, reasoning := SplitMarkedResponse("JSON_START\n[]\nJSON_END")
		assert.Equal(t, "[]", payload)
		assert.Empty(t, reasoning)
	})

	t.Run("missing markers falls back to whole content", func(t *testing.T) {
		payload, reasoning := SplitMarkedResponse(`  [{"question_id": "q1"}]  `)
		assert.Equal(t, `[{"question_id": "q1"}]`, payload)
		assert.Empty(t, reasoning)
	})

	t.Run("end marker before start marker", func(t *testing.T) {
		payload, _ := SplitMarkedResponse("JSON_END oops JSON_START")
		assert.Equal(t, "JSON_END oops JSON_START", payload)
	})
}
