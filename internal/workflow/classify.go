package workflow

import (
	"context"
	"time"

	"github.com/discord-kg/pipeline/internal/classify"
)

// classify buckets every preprocessed message by type using the rule-based
// classifier. Each message lands in exactly one bucket.
func (r *Runner) classify(ctx context.Context, state *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	state.Classified = classify.Bucketize(state.Processed)

	metrics := ProcessingMetrics{
		MessagesProcessed: len(state.Processed),
		ProcessingTimeMS:  time.Since(start).Milliseconds(),
	}
	state.ClassifyResult = completedResult(classify.Counts(state.Classified), metrics)

	// Run-wide message count is owned by preprocessing; only time flows up.
	state.Metrics.ProcessingTimeMS += metrics.ProcessingTimeMS

	r.logger.Debug("classification complete",
		"messages", len(state.Processed),
		"types", len(state.Classified))
	return nil
}
