package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discord-kg/pipeline/internal/kg"
)

func TestDecodeTriples(t *testing.T) {
	t.Run("object form", func(t *testing.T) {
		raws, err := decodeTriples(`[{"subject":"SPY","predicate":"has_support","object":"450","author":"alice"}]`)
		require.NoError(t, err)
		require.Len(t, raws, 1)
		assert.Equal(t, "SPY", raws[0].Subject)
		assert.Equal(t, "has_support", raws[0].Predicate)
		assert.Equal(t, "450", raws[0].Object)
		assert.Equal(t, "alice", raws[0].Author)
	})

	t.Run("positional array form", func(t *testing.T) {
		raws, err := decodeTriples(`[["SPY","has_support","450","alice"],["QQQ","trending","up"]]`)
		require.NoError(t, err)
		require.Len(t, raws, 2)
		assert.Equal(t, "alice", raws[0].Author)
		assert.Equal(t, "QQQ", raws[1].Subject)
		assert.Empty(t, raws[1].Author)
	})

	t.Run("array wrapped in prose and markdown", func(t *testing.T) {
		raws, err := decodeTriples("Here you go:\n```json\n[{\"subject\":\"SPY\",\"predicate\":\"has_support\",\"object\":\"450\"}]\n```")
		require.NoError(t, err)
		require.Len(t, raws, 1)
		assert.Equal(t, "SPY", raws[0].Subject)
	})

	t.Run("empty array", func(t *testing.T) {
		raws, err := decodeTriples(`[]`)
		require.NoError(t, err)
		assert.Empty(t, raws)
	})

	t.Run("short array element rejected", func(t *testing.T) {
		_, err := decodeTriples(`[["SPY","has_support"]]`)
		assert.Error(t, err)
	})

	t.Run("non array rejected", func(t *testing.T) {
		_, err := decodeTriples(`{"subject":"SPY"}`)
		assert.Error(t, err)
	})
}

func TestAttributeTriples(t *testing.T) {
	batch := []kg.Message{
		msg("m1", "alice", "SPY looking strong"),
		msg("m2", "bob", "QQQ breaking out"),
	}

	t.Run("exact author match", func(t *testing.T) {
		triples, dropped := attributeTriples([]rawTriple{
			{Subject: "QQQ", Predicate: "breaking", Object: "out", Author: "bob"},
		}, batch, 0.8)
		assert.Zero(t, dropped)
		require.Len(t, triples, 1)
		assert.Equal(t, "m2", triples[0].MessageID)
		assert.Equal(t, "2024-01-15T10:00:00Z", triples[0].Timestamp)
		assert.Equal(t, 0.8, triples[0].Confidence)
		assert.Equal(t, kg.MethodLLM, triples[0].ExtractionMethod)
	})

	t.Run("subject naming an author attributes to that author's message", func(t *testing.T) {
		triples, dropped := attributeTriples([]rawTriple{
			{Subject: "bob", Predicate: "watches", Object: "QQQ"},
		}, batch, 0.8)
		assert.Zero(t, dropped)
		require.Len(t, triples, 1)
		assert.Equal(t, "m2", triples[0].MessageID)
	})

	t.Run("author field wins over subject when both name authors", func(t *testing.T) {
		triples, dropped := attributeTriples([]rawTriple{
			{Subject: "bob", Predicate: "agrees_with", Object: "alice", Author: "alice"},
		}, batch, 0.8)
		assert.Zero(t, dropped)
		require.Len(t, triples, 1)
		assert.Equal(t, "m1", triples[0].MessageID)
	})

	t.Run("unknown author falls back to unclaimed messages in order", func(t *testing.T) {
		triples, dropped := attributeTriples([]rawTriple{
			{Subject: "a", Predicate: "p", Object: "one"},
			{Subject: "b", Predicate: "p", Object: "two", Author: "nobody"},
		}, batch, 0.8)
		assert.Zero(t, dropped)
		require.Len(t, triples, 2)
		assert.Equal(t, "m1", triples[0].MessageID)
		assert.Equal(t, "m2", triples[1].MessageID)
	})

	t.Run("drops triples once fallbacks are exhausted", func(t *testing.T) {
		raws := []rawTriple{
			{Subject: "a", Predicate: "p", Object: "one"},
			{Subject: "b", Predicate: "p", Object: "two"},
			{Subject: "c", Predicate: "p", Object: "three"},
		}
		triples, dropped := attributeTriples(raws, batch, 0.8)
		assert.Len(t, triples, 2)
		assert.Equal(t, 1, dropped)
	})
}
