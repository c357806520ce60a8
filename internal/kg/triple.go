package kg

import (
	"fmt"
	"strings"
)

// ExtractionMethod identifies how a triple was produced.
type ExtractionMethod string

const (
	MethodLLM       ExtractionMethod = "llm"
	MethodQALinking ExtractionMethod = "llm_qa_linking"
	MethodRuleBased ExtractionMethod = "rule_based"
)

// PredicateAnsweredBy is the only predicate accepted from the Q&A linking
// step; links with any other predicate are discarded.
const PredicateAnsweredBy = "answered_by"

// Triple is a subject-predicate-object statement extracted from a message,
// carrying provenance and a confidence score.
type Triple struct {
	Subject          string           `json:"subject"`
	Predicate        string           `json:"predicate"`
	Object           string           `json:"object"`
	MessageID        string           `json:"message_id"`
	SegmentID        string           `json:"segment_id"`
	Timestamp        string           `json:"timestamp"`
	Confidence       float64          `json:"confidence"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
}

// DedupeKey returns the normalized key used for deduplication: the three
// content fields lowercased and joined with '|'. Near-duplicate phrasings
// produce distinct keys; only exact matches collapse.
func (t Triple) DedupeKey() string {
	return strings.ToLower(strings.TrimSpace(
		t.Subject + "|" + t.Predicate + "|" + t.Object,
	))
}

// QALinkID synthesizes the composite message id recorded on Q&A link triples.
func QALinkID(questionSubject, answerObject string) string {
	return fmt.Sprintf("%s_link_%s", questionSubject, answerObject)
}
