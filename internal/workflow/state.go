// Package workflow orchestrates the extraction pipeline as an explicit state
// machine: preprocess, classify, one extraction pass per message type, Q&A
// linking, aggregation, and cost tracking. All state lives in a single
// struct that every node reads and mutates in turn.
package workflow

import (
	"time"

	"github.com/discord-kg/pipeline/internal/kg"
)

// Status of one workflow node.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// ProcessingMetrics accumulates per-node and run-wide counters.
type ProcessingMetrics struct {
	MessagesProcessed int     `json:"messages_processed"`
	TriplesExtracted  int     `json:"triples_extracted"`
	APICalls          int     `json:"api_calls"`
	TotalTokens       int     `json:"total_tokens"`
	TotalCost         float64 `json:"total_cost"`
	ProcessingTimeMS  int64   `json:"processing_time_ms"`
	ErrorCount        int     `json:"error_count"`
}

// Add accumulates another metrics value into this one.
func (m *ProcessingMetrics) Add(other ProcessingMetrics) {
	m.MessagesProcessed += other.MessagesProcessed
	m.TriplesExtracted += other.TriplesExtracted
	m.APICalls += other.APICalls
	m.TotalTokens += other.TotalTokens
	m.TotalCost += other.TotalCost
	m.ProcessingTimeMS += other.ProcessingTimeMS
	m.ErrorCount += other.ErrorCount
}

// NodeResult records how one node run went.
type NodeResult struct {
	Status    Status            `json:"status"`
	Data      map[string]int    `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metrics   ProcessingMetrics `json:"metrics"`
	Timestamp time.Time         `json:"timestamp"`
}

// State is the single mutable value threaded through the workflow. Nodes
// run sequentially, so no locking.
type State struct {
	// Input
	RawMessages []kg.Message
	SegmentID   string
	BatchSize   int

	// ExtractTypes is the resolved set of types to extract, in priority
	// order: the configured allowlist intersected with the types that have
	// a prompt template. Resolved once before the loop starts.
	ExtractTypes []kg.MessageType

	// Processing state
	CurrentStep string
	Processed   []kg.Message
	Segments    map[string][]kg.Message
	Classified  map[kg.MessageType][]kg.Message

	// Results
	Extracted  []kg.Triple
	QALinks    []kg.Triple
	Aggregated []kg.Triple

	// Node results
	PreprocessResult  *NodeResult
	ClassifyResult    *NodeResult
	ExtractionResults map[kg.MessageType]*NodeResult
	QALinkResult      *NodeResult
	AggregateResult   *NodeResult

	// Tracking
	Metrics     ProcessingMetrics
	CostSummary *CostSummary
	ErrorLog    []string

	// Control flow
	SkipQALinking bool
}

// NewState creates the initial workflow state for one run.
func NewState(messages []kg.Message, segmentID string, batchSize int) *State {
	return &State{
		RawMessages:       messages,
		SegmentID:         segmentID,
		BatchSize:         batchSize,
		Classified:        make(map[kg.MessageType][]kg.Message),
		Segments:          make(map[string][]kg.Message),
		ExtractionResults: make(map[kg.MessageType]*NodeResult),
	}
}

// logError appends a step-tagged message to the run's error log.
func (s *State) logError(step, msg string) {
	s.ErrorLog = append(s.ErrorLog, step+": "+msg)
}

// hasQuestionsAndAnswers gates Q&A linking: both sides must exist.
func (s *State) hasQuestionsAndAnswers() bool {
	return len(s.Classified[kg.TypeQuestion]) > 0 && len(s.Classified[kg.TypeAnswer]) > 0
}

// completedResult builds a completed NodeResult with counters.
func completedResult(data map[string]int, metrics ProcessingMetrics) *NodeResult {
	return &NodeResult{
		Status:    StatusCompleted,
		Data:      data,
		Metrics:   metrics,
		Timestamp: time.Now(),
	}
}

// failedResult builds a failed NodeResult carrying the error message.
func failedResult(err string, elapsed time.Duration) *NodeResult {
	return &NodeResult{
		Status:    StatusFailed,
		Error:     err,
		Metrics:   ProcessingMetrics{ProcessingTimeMS: elapsed.Milliseconds(), ErrorCount: 1},
		Timestamp: time.Now(),
	}
}

// skippedResult builds a skipped NodeResult with counters.
func skippedResult(data map[string]int) *NodeResult {
	return &NodeResult{
		Status:    StatusSkipped,
		Data:      data,
		Timestamp: time.Now(),
	}
}
