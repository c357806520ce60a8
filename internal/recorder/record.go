// Package recorder captures every LLM call made during a pipeline run into a
// SQLite audit store for later cost analysis and prompt evaluation.
package recorder

import (
	"time"
)

// Call statuses stored in the response_status column.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// CallContext is the information known before a call is made: where in the
// workflow it originates and what is being sent.
type CallContext struct {
	SessionID    string `json:"session_id"`
	ExperimentID string `json:"experiment_id"`
	WorkflowStep string `json:"workflow_step"`
	Node         string `json:"node"`
	SegmentID    string `json:"segment_id"`
	TemplateType string `json:"template_type"`
	Provider     string `json:"provider"`
	Model        string `json:"model_name"`
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
	MessageCount int    `json:"message_count"`
	BatchSize    int    `json:"batch_size"`
}

// Completion is the information known after a call returns: the response,
// its token accounting, and how parsing went.
type Completion struct {
	RawResponse  string  `json:"raw_response"`
	Reasoning    string  `json:"reasoning"`
	TripleCount  int     `json:"triple_count"`
	Status       string  `json:"response_status"`
	ErrorMessage string  `json:"error_message"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	RetryAttempt int     `json:"retry_attempt"`
}

// CallRecord is one fully recorded LLM call as stored in the llm_calls
// table.
type CallRecord struct {
	CallID string `json:"call_id"`
	CallContext
	Completion
	RequestTimestamp  time.Time `json:"request_timestamp"`
	ResponseTimestamp time.Time `json:"response_timestamp"`
	DurationMS        int64     `json:"duration_ms"`
}
