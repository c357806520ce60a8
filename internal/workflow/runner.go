package workflow

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/discord-kg/pipeline/internal/kg"
	"github.com/discord-kg/pipeline/internal/llm"
	"github.com/discord-kg/pipeline/internal/prompt"
	"github.com/discord-kg/pipeline/internal/recorder"
)

// Defaults for run tuning knobs.
const (
	DefaultBatchSize      = 20
	DefaultQABatchSize    = 5
	DefaultRateLimitDelay = 100 * time.Millisecond
)

// Runner executes the extraction workflow. One Runner can serve multiple
// sequential runs; it is not safe for concurrent runs.
type Runner struct {
	client    *llm.Client
	prompts   *prompt.Config
	recording *recorder.RecordingProvider
	limiter   *rate.Limiter
	logger    *slog.Logger
	tracer    trace.Tracer

	batchSize     int
	extractTypes  []kg.MessageType
	skipQALinking bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer used to span each run and node.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithBatchSize sets how many messages go into one extraction prompt.
func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithExtractTypes restricts extraction to the given types. Types without a
// prompt template are ignored either way.
func WithExtractTypes(types []kg.MessageType) Option {
	return func(r *Runner) { r.extractTypes = types }
}

// WithSkipQALinking disables the Q&A linking stage.
func WithSkipQALinking(skip bool) Option {
	return func(r *Runner) { r.skipQALinking = skip }
}

// WithRateLimitDelay sets the pause between provider batches.
func WithRateLimitDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithRecordingProvider hands the runner the recording wrapper so nodes can
// stamp workflow context onto call records. The same wrapper must be the one
// inside the client.
func WithRecordingProvider(rp *recorder.RecordingProvider) Option {
	return func(r *Runner) { r.recording = rp }
}

// NewRunner creates a workflow runner around a completion client and a
// validated prompt configuration.
func NewRunner(client *llm.Client, prompts *prompt.Config, opts ...Option) *Runner {
	r := &Runner{
		client:    client,
		prompts:   prompts,
		limiter:   rate.NewLimiter(rate.Every(DefaultRateLimitDelay), 1),
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer("workflow"),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome is the result of one workflow run.
type Outcome struct {
	Status      string             `json:"status"`
	Triples     []kg.Triple        `json:"-"`
	CostSummary *CostSummary       `json:"cost_summary,omitempty"`
	Processing  *ProcessingSummary `json:"processing,omitempty"`
	Errors      []string           `json:"errors,omitempty"`
}

// ProcessingSummary collects the per-node results of a run.
type ProcessingSummary struct {
	Preprocess  *NodeResult            `json:"preprocess,omitempty"`
	Classify    *NodeResult            `json:"classify,omitempty"`
	Extraction  map[string]*NodeResult `json:"extraction,omitempty"`
	QALinking   *NodeResult            `json:"qa_linking,omitempty"`
	Aggregation *NodeResult            `json:"aggregation,omitempty"`
	Metrics     ProcessingMetrics      `json:"metrics"`
}

// resolveExtractTypes computes the types the run will extract: the allowlist
// (or every type when unset) filtered to types with a prompt template, in
// priority order.
func (r *Runner) resolveExtractTypes() []kg.MessageType {
	allowed := map[kg.MessageType]bool{}
	for _, t := range r.extractTypes {
		allowed[t] = true
	}

	var resolved []kg.MessageType
	for _, t := range kg.AllMessageTypes() {
		if len(r.extractTypes) > 0 && !allowed[t] {
			continue
		}
		if _, err := r.prompts.Template(t.String()); err != nil {
			continue
		}
		resolved = append(resolved, t)
	}
	return resolved
}

// Run executes the workflow over the given messages. Node failures are
// absorbed into the outcome; the returned error is non-nil only when the run
// is aborted (context cancellation).
func (r *Runner) Run(ctx context.Context, messages []kg.Message, segmentID string) (*Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(attribute.Int("messages", len(messages))))
	defer span.End()

	state := NewState(messages, segmentID, r.batchSize)
	state.SkipQALinking = r.skipQALinking
	state.ExtractTypes = r.resolveExtractTypes()

	r.logger.Info("starting workflow run",
		"messages", len(messages),
		"segment_id", segmentID,
		"batch_size", r.batchSize)

	for stage := nextStage(state); stage.Kind != StageEnd; stage = nextStage(state) {
		if err := r.runStage(ctx, state, stage); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	outcome := &Outcome{
		Status:      "success",
		Triples:     state.Aggregated,
		CostSummary: state.CostSummary,
		Errors:      state.ErrorLog,
		Processing: &ProcessingSummary{
			Preprocess:  state.PreprocessResult,
			Classify:    state.ClassifyResult,
			Extraction:  extractionResultsByName(state),
			QALinking:   state.QALinkResult,
			Aggregation: state.AggregateResult,
			Metrics:     state.Metrics,
		},
	}

	r.logger.Info("workflow run finished",
		"triples", len(outcome.Triples),
		"api_calls", state.Metrics.APICalls,
		"cost_usd", llm.Round4(state.Metrics.TotalCost),
		"errors", len(state.ErrorLog))
	return outcome, nil
}

func (r *Runner) runStage(ctx context.Context, state *State, stage Stage) error {
	ctx, span := r.tracer.Start(ctx, "workflow."+stage.Name())
	defer span.End()

	state.CurrentStep = stage.Name()

	switch stage.Kind {
	case StagePreprocess:
		return r.preprocess(ctx, state)
	case StageClassify:
		return r.classify(ctx, state)
	case StageExtract:
		return r.extract(ctx, state, stage.Type)
	case StageQALink:
		return r.qaLink(ctx, state)
	case StageAggregate:
		return r.aggregate(ctx, state)
	case StageCostTrack:
		return r.costTrack(ctx, state)
	}
	return nil
}

func extractionResultsByName(state *State) map[string]*NodeResult {
	if len(state.ExtractionResults) == 0 {
		return nil
	}
	results := make(map[string]*NodeResult, len(state.ExtractionResults))
	for typ, res := range state.ExtractionResults {
		results[typ.String()] = res
	}
	return results
}
