package workflow

import (
	"context"
	"time"

	"github.com/discord-kg/pipeline/internal/kg"
	"github.com/discord-kg/pipeline/internal/llm"
)

// extract runs LLM triple extraction over every classified message of the
// given type, one provider call per batch. Provider failures degrade to an
// empty batch and an error log entry; only context cancellation aborts.
func (r *Runner) extract(ctx context.Context, state *State, typ kg.MessageType) error {
	start := time.Now()
	step := "extract_" + typ.String()

	messages := state.Classified[typ]
	if len(messages) == 0 {
		state.ExtractionResults[typ] = skippedResult(map[string]int{
			"message_count":     0,
			"triples_extracted": 0,
		})
		return nil
	}

	confidence := r.prompts.ConfidenceFor(typ.String())
	tracker := r.client.Tracker()
	callsBefore := tracker.Requests()
	tokensBefore := tracker.TotalTokens()
	costBefore := tracker.TotalCost()

	var (
		triples  []kg.Triple
		batches  int
		failures int
	)
	for i := 0; i < len(messages); i += state.BatchSize {
		batch := messages[i:min(i+state.BatchSize, len(messages))]

		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		userPrompt, err := r.prompts.ExtractionPrompt(typ, batch)
		if err != nil {
			// Triples from earlier batches are already paid for; keep them
			// even though the node as a whole failed.
			state.Extracted = append(state.Extracted, triples...)
			state.logError(step, err.Error())
			result := failedResult(err.Error(), time.Since(start))
			result.Metrics.TriplesExtracted = len(triples)
			result.Metrics.APICalls = tracker.Requests() - callsBefore
			result.Metrics.TotalTokens = tracker.TotalTokens() - tokensBefore
			result.Metrics.TotalCost = tracker.TotalCost() - costBefore
			state.ExtractionResults[typ] = result
			state.Metrics.Add(result.Metrics)
			return nil
		}

		if r.recording != nil {
			r.recording.SetContext(step, "extraction", state.SegmentID, typ.String(), len(batch), state.BatchSize)
		}

		resp, err := r.client.Complete(ctx, r.prompts.SystemPrompt, userPrompt)
		if err != nil {
			return err
		}
		batches++
		if !resp.Success() {
			failures++
			state.logError(step, resp.Err)
		}

		raws, err := decodeTriples(resp.Content)
		if err != nil {
			failures++
			state.logError(step, err.Error())
			continue
		}

		parsed, dropped := attributeTriples(raws, batch, confidence)
		if dropped > 0 {
			r.logger.Debug("dropped unattributable triples", "step", step, "count", dropped)
		}
		if r.recording != nil {
			r.recording.AnnotateTripleCount(len(parsed))
		}
		triples = append(triples, parsed...)
	}
	state.Extracted = append(state.Extracted, triples...)

	metrics := ProcessingMetrics{
		MessagesProcessed: len(messages),
		TriplesExtracted:  len(triples),
		APICalls:          tracker.Requests() - callsBefore,
		TotalTokens:       tracker.TotalTokens() - tokensBefore,
		TotalCost:         tracker.TotalCost() - costBefore,
		ProcessingTimeMS:  time.Since(start).Milliseconds(),
		ErrorCount:        failures,
	}
	state.ExtractionResults[typ] = completedResult(map[string]int{
		"message_count":     len(messages),
		"triples_extracted": len(triples),
		"batches_processed": batches,
	}, metrics)

	runMetrics := metrics
	runMetrics.MessagesProcessed = 0
	state.Metrics.Add(runMetrics)

	r.logger.Info("extraction complete",
		"type", typ.String(),
		"messages", len(messages),
		"triples", len(triples),
		"batches", batches,
		"cost_usd", llm.Round4(metrics.TotalCost))
	return nil
}
