package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/discord-kg/pipeline/internal/kg"
	"github.com/discord-kg/pipeline/internal/llm"
	"github.com/discord-kg/pipeline/internal/llm/providers"
	"github.com/discord-kg/pipeline/internal/pipeline"
	"github.com/discord-kg/pipeline/internal/prompt"
	"github.com/discord-kg/pipeline/internal/recorder"
	"github.com/discord-kg/pipeline/internal/types"
	"github.com/discord-kg/pipeline/internal/workflow"
)

var extractCmd = &cobra.Command{
	Use:   "extract INPUT",
	Short: "Extract knowledge graph triples from a Discord export",
	Long: `Run the full extraction workflow over a JSONL Discord export file.

Triples are written as JSONL next to cost and processing summary files.
With --record every LLM call is stored in a SQLite database for replay
and cost analysis.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var (
	extractOutput        string
	extractProvider      string
	extractModel         string
	extractBatchSize     int
	extractPrompts       string
	extractTypes         []string
	extractSkipQALinking bool
	extractSegment       string
	extractRateDelay     time.Duration
	extractRecord        bool
	extractRecordDB      string
	extractExperiment    string
)

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractOutput, "output", "o", "", "Output triples file (default: INPUT base + _triples.jsonl)")
	f.StringVar(&extractProvider, "provider", "openai", "LLM provider (openai, anthropic, mock)")
	f.StringVar(&extractModel, "model", "", "Model name (default: provider default)")
	f.IntVar(&extractBatchSize, "batch-size", workflow.DefaultBatchSize, "Messages per extraction prompt")
	f.StringVar(&extractPrompts, "prompts", "config/prompts.yaml", "Prompt configuration file")
	f.StringSliceVar(&extractTypes, "types", nil, "Message types to extract (default: every type with a template)")
	f.BoolVar(&extractSkipQALinking, "skip-qa-linking", false, "Skip the question/answer linking step")
	f.StringVar(&extractSegment, "segment", "", "Segment id for this run (default: input file name)")
	f.DurationVar(&extractRateDelay, "rate-limit-delay", workflow.DefaultRateLimitDelay, "Pause between provider batches")
	f.BoolVar(&extractRecord, "record", false, "Record every LLM call to SQLite")
	f.StringVar(&extractRecordDB, "record-db", "llm_calls.db", "Call record database path")
	f.StringVar(&extractExperiment, "experiment", "", "Experiment id to tag recorded calls with")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	inputPath := args[0]
	outputPath := extractOutput
	if outputPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outputPath = base + "_triples.jsonl"
	}

	promptCfg, err := prompt.Load(extractPrompts)
	if err != nil {
		return err
	}

	providerType, err := llm.ParseProviderType(extractProvider)
	if err != nil {
		return err
	}
	provider, err := providers.NewProvider(llm.Config{
		Provider: providerType,
		Model:    extractModel,
	}, llm.DefaultPricing())
	if err != nil {
		return err
	}

	allowTypes, err := parseMessageTypes(extractTypes)
	if err != nil {
		return err
	}

	runnerOpts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithBatchSize(extractBatchSize),
		workflow.WithExtractTypes(allowTypes),
		workflow.WithSkipQALinking(extractSkipQALinking),
		workflow.WithRateLimitDelay(extractRateDelay),
	}

	var completer llm.Provider = provider
	if extractRecord {
		rec, err := recorder.NewSQLiteRecorder(recorder.DefaultSQLiteConfig(extractRecordDB), logger)
		if err != nil {
			return err
		}
		defer rec.Close()

		experiment := extractExperiment
		if experiment == "" {
			experiment = "extraction_" + time.Now().UTC().Format("20060102_150405")
		}
		rp := recorder.WithRecording(provider, rec, recorder.CallContext{
			SessionID:    types.NewID().String(),
			ExperimentID: experiment,
		})
		completer = rp
		runnerOpts = append(runnerOpts, workflow.WithRecordingProvider(rp))
		logger.Info("recording llm calls", "db", extractRecordDB, "experiment", experiment)
	}

	client := llm.NewClient(completer, llm.WithClientLogger(logger))
	runner := workflow.NewRunner(client, promptCfg, runnerOpts...)

	outcome, err := pipeline.RunFile(ctx, runner, inputPath, outputPath, extractSegment, logger)
	if err != nil {
		return err
	}

	printOutcome(cmd, outputPath, outcome)
	return nil
}

func parseMessageTypes(raw []string) ([]kg.MessageType, error) {
	var parsed []kg.MessageType
	for _, s := range raw {
		t := kg.MessageType(strings.ToLower(strings.TrimSpace(s)))
		if !t.IsValid() {
			return nil, types.NewError(types.INPUT_INVALID, fmt.Sprintf("unknown message type %q", s))
		}
		parsed = append(parsed, t)
	}
	return parsed, nil
}

func printOutcome(cmd *cobra.Command, outputPath string, outcome *workflow.Outcome) {
	bold := color.New(color.Bold).SprintFunc()
	cmd.Printf("%s %s\n", bold("Triples:"), outputPath)
	cmd.Printf("  extracted: %d\n", len(outcome.Triples))

	if cost := outcome.CostSummary; cost != nil {
		cmd.Printf("%s %s / %s\n", bold("Provider:"), cost.Provider, cost.Model)
		cmd.Printf("  api calls: %d  tokens: %d  cost: $%.4f\n",
			cost.TotalAPICalls, cost.TotalTokens, cost.TotalCostUSD)
		cmd.Printf("  messages: %d  time: %dms\n",
			cost.TotalMessagesProcessed, cost.TotalProcessingTimeMS)
		if rec := cost.Recording; rec != nil {
			cmd.Printf("  recorded calls: %d  success rate: %.0f%%\n",
				rec.TotalCalls, rec.SuccessRate*100)
		}
	}
	if n := len(outcome.Errors); n > 0 {
		warn := color.New(color.FgYellow).SprintFunc()
		cmd.Printf("%s %d error(s) logged during the run\n", warn("Warning:"), n)
	}
}
