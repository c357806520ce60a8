package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineError(t *testing.T) {
	t.Run("formats code and message", func(t *testing.T) {
		err := NewError(INPUT_INVALID, "empty export")
		assert.Equal(t, "[INPUT_INVALID] empty export", err.Error())
	})

	t.Run("formats wrapped cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := WrapError(OUTPUT_WRITE_FAILED, "writing triples", cause)
		assert.Equal(t, "[OUTPUT_WRITE_FAILED] writing triples: disk full", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("matches by code through wrapping", func(t *testing.T) {
		inner := NewError(LLM_CALL_FAILED, "timeout")
		outer := fmt.Errorf("batch 3: %w", inner)
		assert.ErrorIs(t, outer, NewError(LLM_CALL_FAILED, "different message"))
		assert.NotErrorIs(t, outer, NewError(LLM_INIT_FAILED, "timeout"))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, STORE_QUERY_FAILED, CodeOf(NewError(STORE_QUERY_FAILED, "x")))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRetryableError(LLM_RATE_LIMITED, "slow down")))
	assert.False(t, IsRetryable(NewError(LLM_CALL_FAILED, "bad key")))
	assert.False(t, IsRetryable(errors.New("plain")))

	wrapped := fmt.Errorf("attempt 2: %w", NewRetryableError(LLM_RATE_LIMITED, "slow down"))
	assert.True(t, IsRetryable(wrapped))

	cause := errors.New("connection reset")
	werr := WrapRetryableError(LLM_CALL_FAILED, "completion failed", cause)
	assert.True(t, IsRetryable(werr))
	assert.ErrorIs(t, werr, cause)
}
