package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discord-kg/pipeline/internal/kg"
)

func TestParseMessageTypes(t *testing.T) {
	t.Run("valid types", func(t *testing.T) {
		parsed, err := parseMessageTypes([]string{"question", " Answer ", "STRATEGY"})
		require.NoError(t, err)
		assert.Equal(t, []kg.MessageType{kg.TypeQuestion, kg.TypeAnswer, kg.TypeStrategy}, parsed)
	})

	t.Run("empty input", func(t *testing.T) {
		parsed, err := parseMessageTypes(nil)
		require.NoError(t, err)
		assert.Nil(t, parsed)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := parseMessageTypes([]string{"question", "rant"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rant")
	})
}
