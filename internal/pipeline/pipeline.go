// Package pipeline is the file-level entry point: it reads a Discord export,
// runs the extraction workflow over it, and writes the triples plus the cost
// and processing summaries next to them.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/discord-kg/pipeline/internal/kg"
	"github.com/discord-kg/pipeline/internal/types"
	"github.com/discord-kg/pipeline/internal/workflow"
)

// RunFile processes one JSONL export file end to end. Triples go to
// outputPath as JSONL; the cost and processing summaries land beside it as
// <base>_cost_summary.json and <base>_processing_summary.json.
func RunFile(ctx context.Context, runner *workflow.Runner, inputPath, outputPath, segmentID string, logger *slog.Logger) (*workflow.Outcome, error) {
	if logger == nil {
		logger = slog.Default()
	}

	messages, err := kg.ReadMessagesFile(inputPath)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, types.NewError(types.INPUT_INVALID,
			fmt.Sprintf("input file %s contains no messages", inputPath))
	}
	if segmentID == "" {
		segmentID = segmentFromPath(inputPath)
	}

	// Field-level problems are warnings here; preprocessing drops and counts
	// them. Malformed JSON was already fatal in ReadMessagesFile.
	var invalid int
	for _, m := range messages {
		if err := m.Validate(); err != nil {
			invalid++
			logger.Debug("invalid message in export", "error", err)
		}
	}
	if invalid > 0 {
		logger.Warn("export contains messages missing required fields",
			"invalid", invalid, "total", len(messages))
	}

	logger.Info("processing export file",
		"input", inputPath,
		"messages", len(messages),
		"segment_id", segmentID)

	outcome, err := runner.Run(ctx, messages, segmentID)
	if err != nil {
		return nil, err
	}

	if err := kg.WriteTriplesFile(outputPath, outcome.Triples); err != nil {
		return outcome, err
	}

	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	if outcome.CostSummary != nil {
		if err := writeJSON(base+"_cost_summary.json", outcome.CostSummary); err != nil {
			return outcome, err
		}
	}
	if outcome.Processing != nil {
		if err := writeJSON(base+"_processing_summary.json", outcome.Processing); err != nil {
			return outcome, err
		}
	}

	logger.Info("export file processed",
		"output", outputPath,
		"triples", len(outcome.Triples),
		"errors", len(outcome.Errors))
	return outcome, nil
}

// segmentFromPath derives a default segment id from the input file name.
func segmentFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return types.WrapError(types.OUTPUT_WRITE_FAILED, "failed to encode summary", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return types.WrapError(types.OUTPUT_WRITE_FAILED, fmt.Sprintf("summary file %s", path), err)
	}
	return nil
}
