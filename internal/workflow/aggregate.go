package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/discord-kg/pipeline/internal/kg"
)

// clampedConfidence is assigned when a triple arrives with a confidence
// outside [0, 1].
const clampedConfidence = 0.5

// aggregate merges extraction and Q&A link triples, deduplicates them on the
// normalized subject|predicate|object key (first occurrence wins), then
// validates each survivor.
func (r *Runner) aggregate(ctx context.Context, state *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	combined := make([]kg.Triple, 0, len(state.Extracted)+len(state.QALinks))
	combined = append(combined, state.Extracted...)
	combined = append(combined, state.QALinks...)

	seen := make(map[string]bool, len(combined))
	deduped := combined[:0:0]
	for _, t := range combined {
		key := t.DedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, t)
	}

	var invalid int
	validated := deduped[:0:0]
	for _, t := range deduped {
		t.Subject = strings.TrimSpace(t.Subject)
		t.Predicate = strings.TrimSpace(t.Predicate)
		t.Object = strings.TrimSpace(t.Object)

		if t.Subject == "" || t.Predicate == "" || t.Object == "" {
			invalid++
			continue
		}
		if len(t.Object) < 2 {
			invalid++
			continue
		}
		if t.Confidence < 0 || t.Confidence > 1 {
			t.Confidence = clampedConfidence
		}
		validated = append(validated, t)
	}
	state.Aggregated = validated

	metrics := ProcessingMetrics{
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
	state.AggregateResult = completedResult(map[string]int{
		"total_triples":        len(combined),
		"deduplicated_triples": len(deduped),
		"validated_triples":    len(validated),
		"validation_errors":    invalid,
	}, metrics)
	state.Metrics.Add(metrics)

	r.logger.Info("aggregation complete",
		"total", len(combined),
		"deduplicated", len(deduped),
		"validated", len(validated),
		"dropped", invalid)
	return nil
}
