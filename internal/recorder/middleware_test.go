package recorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discord-kg/pipeline/internal/llm/providers"
)

func TestRecordingProvider(t *testing.T) {
	rec := newTestRecorder(t)
	mock := providers.NewMockProvider(`[{"subject":"a","predicate":"p","object":"o"}]`)

	wrapped := WithRecording(mock, rec, CallContext{SessionID: "sess-9", ExperimentID: "exp-1"})
	wrapped.SetContext("extract_question", "extract", "seg-1", "question", 8, 8)

	resp, err := wrapped.Complete(context.Background(), "sys prompt", "user prompt")
	require.NoError(t, err)
	require.True(t, resp.Success())
	rec.Flush()

	records, err := rec.Query(context.Background(), Filter{SessionID: "sess-9"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "exp-1", got.ExperimentID)
	assert.Equal(t, "extract_question", got.WorkflowStep)
	assert.Equal(t, "question", got.TemplateType)
	assert.Equal(t, "mock", got.Provider)
	assert.Equal(t, "mock-model", got.Model)
	assert.Equal(t, "sys prompt", got.SystemPrompt)
	assert.Equal(t, "user prompt", got.UserPrompt)
	assert.Equal(t, resp.Content, got.RawResponse)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, 8, got.MessageCount)
	assert.Equal(t, resp.TotalTokens, got.TotalTokens)
}

func TestRecordingProviderRecordsFailures(t *testing.T) {
	rec := newTestRecorder(t)
	mock := providers.NewMockProvider() // no responses configured

	wrapped := WithRecording(mock, rec, CallContext{SessionID: "sess-f"})
	_, err := wrapped.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	rec.Flush()

	records, qerr := rec.Query(context.Background(), Filter{SessionID: "sess-f"})
	require.NoError(t, qerr)
	require.Len(t, records, 1)
	assert.Equal(t, StatusError, records[0].Status)
	assert.NotEmpty(t, records[0].ErrorMessage)
}

func TestRecordingProviderAnnotations(t *testing.T) {
	rec := newTestRecorder(t)
	mock := providers.NewMockProvider("JSON_START\n[]\nJSON_END\nREASONING: nothing matched")

	wrapped := WithRecording(mock, rec, CallContext{SessionID: "sess-a"})
	wrapped.SetContext("qa_link", "qa_link", "", "qa_linking", 5, 5)

	_, err := wrapped.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)

	wrapped.AnnotateReasoning("nothing matched")
	wrapped.AnnotateTripleCount(0)

	records, err := rec.Query(context.Background(), Filter{SessionID: "sess-a"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "nothing matched", records[0].Reasoning)
}

func TestRecordingProviderStats(t *testing.T) {
	mock := providers.NewMockProvider("[]")
	mock.FailAt(1, assert.AnError)
	wrapped := WithRecording(mock, NopRecorder{}, CallContext{})

	assert.Zero(t, wrapped.Stats().TotalCalls)

	_, err := wrapped.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	_, err = wrapped.Complete(context.Background(), "sys", "user")
	require.Error(t, err)

	stats := wrapped.Stats()
	assert.Equal(t, 2, stats.TotalCalls)
	assert.Equal(t, 1, stats.Successes)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 0.5, stats.SuccessRate)
}

func TestRecordingProviderPreservesIdentity(t *testing.T) {
	mock := providers.NewMockProvider("[]")
	wrapped := WithRecording(mock, NopRecorder{}, CallContext{})

	assert.Equal(t, "mock", wrapped.Name())
	assert.Equal(t, "mock-model", wrapped.Model())
}
