package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calls.db")
	rec, err := NewSQLiteRecorder(DefaultSQLiteConfig(path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return rec
}

func recordOne(t *testing.T, rec *SQLiteRecorder, cc CallContext, completion Completion) string {
	t.Helper()
	id := rec.StartCall(cc)
	require.NotEmpty(t, id)
	rec.EndCall(id, completion)
	rec.Flush()
	return id
}

func TestSQLiteRecorderRoundTrip(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := context.Background()

	cc := CallContext{
		SessionID:    "sess-1",
		WorkflowStep: "extract_question",
		Node:         "extract",
		SegmentID:    "seg-1",
		TemplateType: "question",
		Provider:     "mock",
		Model:        "mock-model",
		SystemPrompt: "sys",
		UserPrompt:   "user",
		MessageCount: 10,
		BatchSize:    10,
	}
	completion := Completion{
		RawResponse: `[{"subject":"a"}]`,
		TripleCount: 1,
		Status:      StatusSuccess,
		InputTokens: 100, OutputTokens: 50, TotalTokens: 150,
		CostUSD: 0.0021,
	}
	id := recordOne(t, rec, cc, completion)

	records, err := rec.Query(ctx, Filter{SessionID: "sess-1"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, id, got.CallID)
	assert.Equal(t, "extract_question", got.WorkflowStep)
	assert.Equal(t, "question", got.TemplateType)
	assert.Equal(t, 150, got.TotalTokens)
	assert.Equal(t, 0.0021, got.CostUSD)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.False(t, got.RequestTimestamp.IsZero())
	assert.GreaterOrEqual(t, got.DurationMS, int64(0))
}

func TestSQLiteRecorderUnknownEndCall(t *testing.T) {
	rec := newTestRecorder(t)
	rec.EndCall("no-such-call", Completion{Status: StatusSuccess})
	rec.Flush()

	records, err := rec.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteRecorderUpdateReasoning(t *testing.T) {
	rec := newTestRecorder(t)
	id := recordOne(t, rec, CallContext{WorkflowStep: "qa_link", Provider: "mock", Model: "m"}, Completion{Status: StatusSuccess})

	rec.UpdateReasoning(id, "a1 matches q1")
	rec.UpdateTripleCount(id, 3)

	records, err := rec.Query(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a1 matches q1", records[0].Reasoning)
	assert.Equal(t, 3, records[0].TripleCount)
}

func TestSQLiteRecorderQueryFilters(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := context.Background()

	recordOne(t, rec, CallContext{WorkflowStep: "extract_question", Provider: "openai", Model: "gpt-3.5-turbo"}, Completion{Status: StatusSuccess})
	recordOne(t, rec, CallContext{WorkflowStep: "extract_answer", Provider: "openai", Model: "gpt-3.5-turbo"}, Completion{Status: StatusError, ErrorMessage: "boom"})
	recordOne(t, rec, CallContext{WorkflowStep: "qa_link", Provider: "anthropic", Model: "claude-3-haiku"}, Completion{Status: StatusSuccess})

	records, err := rec.Query(ctx, Filter{Provider: "openai"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = rec.Query(ctx, Filter{Status: StatusError})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "boom", records[0].ErrorMessage)

	records, err = rec.Query(ctx, Filter{WorkflowStep: "qa_link", Provider: "anthropic"})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = rec.Query(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = rec.Query(ctx, Filter{Since: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteRecorderSummary(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		recordOne(t, rec,
			CallContext{WorkflowStep: "extract_question", Provider: "openai", Model: "gpt-3.5-turbo", MessageCount: 10},
			Completion{Status: StatusSuccess, TotalTokens: 100, CostUSD: 0.001, TripleCount: 5})
	}
	recordOne(t, rec,
		CallContext{WorkflowStep: "qa_link", Provider: "anthropic", Model: "claude-3-haiku", MessageCount: 5},
		Completion{Status: StatusSuccess, TotalTokens: 50, CostUSD: 0.0001, TripleCount: 2})

	summary, err := rec.Summary(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, summary, 2)

	byProvider := map[string]SummaryRow{}
	for _, row := range summary {
		byProvider[row.Provider] = row
	}
	openai := byProvider["openai"]
	assert.Equal(t, 3, openai.TotalCalls)
	assert.Equal(t, 300, openai.TotalTokens)
	assert.InDelta(t, 0.003, openai.TotalCostUSD, 1e-9)
	assert.Equal(t, 30, openai.TotalMessages)
	assert.Equal(t, 15, openai.TotalTriples)
}

func TestSQLiteRecorderPrune(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := context.Background()

	recordOne(t, rec, CallContext{WorkflowStep: "extract_question", Provider: "mock", Model: "m"}, Completion{Status: StatusSuccess})

	// Fresh records survive a prune.
	deleted, err := rec.Prune(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	// Backdate the record past the retention window.
	old := time.Now().UTC().AddDate(0, 0, -10).Format(timeLayout)
	_, err = rec.db.Exec(`UPDATE llm_calls SET request_timestamp = ?`, old)
	require.NoError(t, err)

	deleted, err = rec.Prune(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	records, err := rec.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteRecorderReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")

	rec, err := NewSQLiteRecorder(DefaultSQLiteConfig(path), nil)
	require.NoError(t, err)
	recordOne(t, rec, CallContext{WorkflowStep: "extract_question", Provider: "mock", Model: "m"}, Completion{Status: StatusSuccess})
	require.NoError(t, rec.Close())

	rec, err = NewSQLiteRecorder(DefaultSQLiteConfig(path), nil)
	require.NoError(t, err)
	defer rec.Close()

	records, err := rec.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
