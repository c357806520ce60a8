package recorder

import (
	"context"
	"sync"

	"github.com/discord-kg/pipeline/internal/llm"
)

// RecordingProvider wraps an llm.Provider so that every completion is
// audited. It is composed explicitly around the provider at wiring time;
// code holding a plain Provider never knows recording is on.
type RecordingProvider struct {
	inner llm.Provider
	rec   Recorder

	mu sync.Mutex
	cc CallContext

	lastCallID string
	calls      int
	successes  int
}

// CallStats summarizes the calls a RecordingProvider has audited so far.
type CallStats struct {
	TotalCalls  int     `json:"total_recorded_calls"`
	Successes   int     `json:"successes"`
	Failures    int     `json:"failures"`
	SuccessRate float64 `json:"success_rate"`
}

// WithRecording wraps a provider with call auditing against the given
// recorder. The base context carries run-level fields (session id,
// experiment id); per-node fields are set via SetContext before each batch.
func WithRecording(inner llm.Provider, rec Recorder, base CallContext) *RecordingProvider {
	base.Provider = inner.Name()
	base.Model = inner.Model()
	return &RecordingProvider{inner: inner, rec: rec, cc: base}
}

// Name returns the wrapped provider's name.
func (r *RecordingProvider) Name() string { return r.inner.Name() }

// Model returns the wrapped provider's model.
func (r *RecordingProvider) Model() string { return r.inner.Model() }

// SetContext updates the workflow fields recorded with subsequent calls.
// Run-level fields and the provider identity are preserved.
func (r *RecordingProvider) SetContext(step, node, segmentID, templateType string, messageCount, batchSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cc.WorkflowStep = step
	r.cc.Node = node
	r.cc.SegmentID = segmentID
	r.cc.TemplateType = templateType
	r.cc.MessageCount = messageCount
	r.cc.BatchSize = batchSize
}

// AnnotateReasoning back-fills parsed reasoning onto the most recent call.
// Reasoning is parsed out of the response after the call has already been
// recorded, so it arrives as an update.
func (r *RecordingProvider) AnnotateReasoning(reasoning string) {
	r.mu.Lock()
	callID := r.lastCallID
	r.mu.Unlock()
	r.rec.UpdateReasoning(callID, reasoning)
}

// AnnotateTripleCount back-fills the parsed triple count onto the most
// recent call.
func (r *RecordingProvider) AnnotateTripleCount(count int) {
	r.mu.Lock()
	callID := r.lastCallID
	r.mu.Unlock()
	r.rec.UpdateTripleCount(callID, count)
}

// Complete forwards to the wrapped provider, recording the full round trip.
func (r *RecordingProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*llm.Response, error) {
	r.mu.Lock()
	cc := r.cc
	r.mu.Unlock()
	cc.SystemPrompt = systemPrompt
	cc.UserPrompt = userPrompt

	callID := r.rec.StartCall(cc)
	r.mu.Lock()
	r.lastCallID = callID
	r.mu.Unlock()

	resp, err := r.inner.Complete(ctx, systemPrompt, userPrompt)

	completion := Completion{Status: StatusSuccess}
	switch {
	case err != nil:
		completion.Status = StatusError
		completion.ErrorMessage = err.Error()
	case !resp.Success():
		completion.Status = StatusError
		completion.ErrorMessage = resp.Err
		completion.RawResponse = resp.Content
	default:
		completion.RawResponse = resp.Content
		completion.Reasoning = resp.Reasoning
		completion.InputTokens = resp.InputTokens
		completion.OutputTokens = resp.OutputTokens
		completion.TotalTokens = resp.TotalTokens
		completion.CostUSD = resp.Cost
	}
	r.rec.EndCall(callID, completion)

	r.mu.Lock()
	r.calls++
	if completion.Status == StatusSuccess {
		r.successes++
	}
	r.mu.Unlock()

	return resp, err
}

// Stats returns what has been recorded so far. The success rate counts
// provider-level failures and degraded responses alike as failures.
func (r *RecordingProvider) Stats() CallStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := CallStats{
		TotalCalls: r.calls,
		Successes:  r.successes,
		Failures:   r.calls - r.successes,
	}
	if stats.TotalCalls > 0 {
		stats.SuccessRate = float64(stats.Successes) / float64(stats.TotalCalls)
	}
	return stats
}
