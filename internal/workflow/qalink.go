package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/discord-kg/pipeline/internal/kg"
	"github.com/discord-kg/pipeline/internal/llm"
)

// rawLink is one question/answer pairing as returned by the model. IDs are
// the message ids echoed from the prompt.
type rawLink struct {
	QuestionID string  `json:"question_id"`
	AnswerID   string  `json:"answer_id"`
	Predicate  string  `json:"predicate"`
	Confidence float64 `json:"confidence"`
}

// qaLink asks the model to pair questions with the answers that resolve them.
// Questions go out in batches of DefaultQABatchSize, each call covering one
// batch against the full answer set. When linking is disabled or one side is
// missing the node records a skipped result instead of calling the provider.
// Only "answered_by" links survive; anything else the model invents is
// dropped.
func (r *Runner) qaLink(ctx context.Context, state *State) error {
	start := time.Now()

	questions := state.Classified[kg.TypeQuestion]
	answers := state.Classified[kg.TypeAnswer]

	if state.SkipQALinking || !state.hasQuestionsAndAnswers() {
		state.QALinkResult = skippedResult(map[string]int{
			"links_created":       0,
			"questions_processed": 0,
			"answers_considered":  len(answers),
		})
		r.logger.Info("qa linking skipped",
			"disabled", state.SkipQALinking,
			"questions", len(questions),
			"answers", len(answers))
		return nil
	}

	tracker := r.client.Tracker()
	callsBefore := tracker.Requests()
	tokensBefore := tracker.TotalTokens()
	costBefore := tracker.TotalCost()

	var (
		links    []kg.Triple
		batches  int
		failures int
	)
	for i := 0; i < len(questions); i += DefaultQABatchSize {
		qBatch := questions[i:min(i+DefaultQABatchSize, len(questions))]

		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		userPrompt, err := r.prompts.QAPrompt(qBatch, answers)
		if err != nil {
			state.logError("qa_linking", err.Error())
			state.QALinkResult = failedResult(err.Error(), time.Since(start))
			return nil
		}

		if r.recording != nil {
			r.recording.SetContext("qa_linking", "qa_linking", state.SegmentID, "qa_linking",
				len(qBatch)+len(answers), DefaultQABatchSize)
		}

		resp, err := r.client.Complete(ctx, r.prompts.SystemPrompt, userPrompt)
		if err != nil {
			return err
		}
		batches++
		if !resp.Success() {
			failures++
			state.logError("qa_linking", resp.Err)
		}

		payload, reasoning := llm.SplitMarkedResponse(resp.Content)
		if r.recording != nil && reasoning != "" {
			r.recording.AnnotateReasoning(reasoning)
		}

		parsed, perr := r.parseLinks(payload, qBatch, answers, state)
		if perr != nil {
			failures++
			state.logError("qa_linking", perr.Error())
		}
		if r.recording != nil {
			r.recording.AnnotateTripleCount(len(parsed))
		}
		links = append(links, parsed...)
	}
	state.QALinks = links

	metrics := ProcessingMetrics{
		TriplesExtracted: len(links),
		APICalls:         tracker.Requests() - callsBefore,
		TotalTokens:      tracker.TotalTokens() - tokensBefore,
		TotalCost:        tracker.TotalCost() - costBefore,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		ErrorCount:       failures,
	}
	state.QALinkResult = completedResult(map[string]int{
		"links_created":       len(links),
		"questions_processed": len(questions),
		"batches_processed":   batches,
		"answers_considered":  len(answers),
	}, metrics)
	state.Metrics.Add(metrics)

	r.logger.Info("qa linking complete",
		"questions", len(questions),
		"answers", len(answers),
		"batches", batches,
		"links", len(links))
	return nil
}

// parseLinks decodes and validates the model's pairings. A link must
// reference a real question and answer from the prompt, with either the
// "answered_by" predicate or none at all.
func (r *Runner) parseLinks(payload string, questions, answers []kg.Message, state *State) ([]kg.Triple, error) {
	raws, err := llm.ExtractJSONAs[[]rawLink](payload)
	if err != nil {
		return nil, fmt.Errorf("parsing qa links: %w", err)
	}

	questionIDs := make(map[string]bool, len(questions))
	for _, q := range questions {
		questionIDs[q.MessageID] = true
	}
	answerIDs := make(map[string]bool, len(answers))
	for _, a := range answers {
		answerIDs[a.MessageID] = true
	}

	segmentID := state.SegmentID
	if segmentID == "" {
		segmentID = "qa_links"
	}
	now := time.Now().UTC().Format(time.RFC3339)
	confidence := r.prompts.ConfidenceFor("qa_linking")

	var links []kg.Triple
	for _, raw := range raws {
		if raw.Predicate != "" && raw.Predicate != kg.PredicateAnsweredBy {
			continue
		}
		if !questionIDs[raw.QuestionID] || !answerIDs[raw.AnswerID] {
			r.logger.Debug("qa link references unknown message",
				"question_id", raw.QuestionID, "answer_id", raw.AnswerID)
			continue
		}

		linkConfidence := confidence
		if raw.Confidence > 0 && raw.Confidence <= 1 {
			linkConfidence = raw.Confidence
		}
		links = append(links, kg.Triple{
			Subject:          raw.QuestionID,
			Predicate:        kg.PredicateAnsweredBy,
			Object:           raw.AnswerID,
			MessageID:        kg.QALinkID(raw.QuestionID, raw.AnswerID),
			SegmentID:        segmentID,
			Timestamp:        now,
			Confidence:       linkConfidence,
			ExtractionMethod: kg.MethodQALinking,
		})
	}
	return links, nil
}
