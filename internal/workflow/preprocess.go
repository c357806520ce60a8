package workflow

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// minContentLength is the shortest cleaned text worth keeping. Shorter
// messages ("ok", "lol") carry no extractable knowledge and are dropped
// without counting as errors.
const minContentLength = 5

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanText normalizes a message body: prefer the pre-cleaned form, fall back
// to the raw text, then collapse whitespace runs to single spaces.
func cleanText(raw, pre string) string {
	text := strings.TrimSpace(pre)
	if text == "" {
		text = strings.TrimSpace(raw)
	}
	return whitespaceRun.ReplaceAllString(text, " ")
}

// preprocess validates and normalizes the raw messages. Messages missing a
// required field are dropped and logged; messages too short to matter are
// dropped silently. Survivors get cleaned text and a segment assignment.
func (r *Runner) preprocess(ctx context.Context, state *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	var invalid, short int
	valid := state.RawMessages[:0:0]
	for _, msg := range state.RawMessages {
		if err := msg.Validate(); err != nil {
			invalid++
			state.logError("preprocess", err.Error())
			continue
		}

		msg.CleanText = cleanText(msg.Text, msg.CleanText)
		if len(msg.CleanText) < minContentLength {
			short++
			continue
		}

		if msg.SegmentID == "" {
			msg.SegmentID = state.SegmentID
		}
		valid = append(valid, msg)
		state.Segments[msg.SegmentID] = append(state.Segments[msg.SegmentID], msg)
	}
	state.Processed = valid

	metrics := ProcessingMetrics{
		MessagesProcessed: len(valid),
		ProcessingTimeMS:  time.Since(start).Milliseconds(),
		ErrorCount:        invalid,
	}
	state.PreprocessResult = completedResult(map[string]int{
		"message_count":   len(valid),
		"segment_count":   len(state.Segments),
		"dropped_invalid": invalid,
		"dropped_short":   short,
	}, metrics)
	state.Metrics.Add(metrics)

	r.logger.Debug("preprocessing complete",
		"valid", len(valid),
		"dropped_invalid", invalid,
		"dropped_short", short,
		"segments", len(state.Segments))
	return nil
}
