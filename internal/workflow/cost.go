package workflow

import (
	"context"
	"math"
	"time"

	"github.com/discord-kg/pipeline/internal/llm"
	"github.com/discord-kg/pipeline/internal/recorder"
)

// ExtractionSummary is the cost report line for one message type.
type ExtractionSummary struct {
	Status   string  `json:"status"`
	Triples  int     `json:"triples"`
	CostUSD  float64 `json:"cost"`
	APICalls int     `json:"api_calls"`
}

// QALinkingSummary is the cost report line for the Q&A linking step.
type QALinkingSummary struct {
	Status       string  `json:"status"`
	LinksCreated int     `json:"links_created"`
	CostUSD      float64 `json:"cost"`
}

// CostSummary is the run-wide cost and throughput report.
type CostSummary struct {
	TotalMessagesProcessed int     `json:"total_messages_processed"`
	TotalTriplesExtracted  int     `json:"total_triples_extracted"`
	TotalAPICalls          int     `json:"total_api_calls"`
	TotalTokens            int     `json:"total_tokens"`
	TotalCostUSD           float64 `json:"total_cost_usd"`
	TotalProcessingTimeMS  int64   `json:"total_processing_time_ms"`
	TotalErrors            int     `json:"total_errors"`

	CostPerMessage    float64 `json:"cost_per_message"`
	CostPerTriple     float64 `json:"cost_per_triple"`
	TokensPerMessage  float64 `json:"tokens_per_message"`
	TriplesPerMessage float64 `json:"triples_per_message"`

	Provider  string `json:"llm_provider"`
	Model     string `json:"llm_model"`
	BatchSize int    `json:"batch_size"`

	ExtractionResults map[string]ExtractionSummary `json:"extraction_results"`
	QALinking         *QALinkingSummary            `json:"qa_linking"`
	Recording         *recorder.CallStats          `json:"recording,omitempty"`
	Errors            []string                     `json:"errors,omitempty"`
	Timestamp         string                       `json:"timestamp"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// costTrack assembles the final cost summary from the accumulated run
// metrics and per-node results. It makes no provider calls.
func (r *Runner) costTrack(ctx context.Context, state *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := state.Metrics
	summary := &CostSummary{
		TotalMessagesProcessed: m.MessagesProcessed,
		TotalTriplesExtracted:  m.TriplesExtracted,
		TotalAPICalls:          m.APICalls,
		TotalTokens:            m.TotalTokens,
		TotalCostUSD:           llm.Round4(m.TotalCost),
		TotalProcessingTimeMS:  m.ProcessingTimeMS,
		TotalErrors:            m.ErrorCount,
		Provider:               r.client.Provider().Name(),
		Model:                  r.client.Provider().Model(),
		BatchSize:              state.BatchSize,
		ExtractionResults:      make(map[string]ExtractionSummary, len(state.ExtractionResults)),
		Errors:                 state.ErrorLog,
		Timestamp:              time.Now().UTC().Format(time.RFC3339),
	}

	if m.MessagesProcessed > 0 {
		summary.CostPerMessage = llm.Round6(m.TotalCost / float64(m.MessagesProcessed))
		summary.TokensPerMessage = round2(float64(m.TotalTokens) / float64(m.MessagesProcessed))
		summary.TriplesPerMessage = round2(float64(m.TriplesExtracted) / float64(m.MessagesProcessed))
	}
	if m.TriplesExtracted > 0 {
		summary.CostPerTriple = llm.Round4(m.TotalCost / float64(m.TriplesExtracted))
	}

	for typ, res := range state.ExtractionResults {
		summary.ExtractionResults[typ.String()] = ExtractionSummary{
			Status:   string(res.Status),
			Triples:  res.Metrics.TriplesExtracted,
			CostUSD:  llm.Round4(res.Metrics.TotalCost),
			APICalls: res.Metrics.APICalls,
		}
	}
	// Types that have messages but never reached an extraction node, because
	// the allowlist or a missing template excluded them, still show up so
	// the report accounts for every classified message.
	for typ, msgs := range state.Classified {
		if len(msgs) == 0 {
			continue
		}
		if _, ok := state.ExtractionResults[typ]; !ok {
			summary.ExtractionResults[typ.String()] = ExtractionSummary{
				Status: string(StatusSkipped),
			}
		}
	}

	// The qa_linking block is always present; a run that never linked
	// reports it as skipped.
	summary.QALinking = &QALinkingSummary{Status: string(StatusSkipped)}
	if res := state.QALinkResult; res != nil {
		summary.QALinking = &QALinkingSummary{
			Status:       string(res.Status),
			LinksCreated: res.Metrics.TriplesExtracted,
			CostUSD:      llm.Round4(res.Metrics.TotalCost),
		}
	}

	if r.recording != nil {
		stats := r.recording.Stats()
		summary.Recording = &stats
	}

	state.CostSummary = summary
	return nil
}
