package workflow

import (
	"github.com/discord-kg/pipeline/internal/kg"
)

// StageKind identifies a workflow stage.
type StageKind string

const (
	StagePreprocess StageKind = "preprocess"
	StageClassify   StageKind = "classify"
	StageExtract    StageKind = "extract"
	StageQALink     StageKind = "qa_link"
	StageAggregate  StageKind = "aggregate"
	StageCostTrack  StageKind = "cost_track"
	StageEnd        StageKind = "end"
)

// Stage is one step of the run. Extraction stages carry the message type
// they extract.
type Stage struct {
	Kind StageKind
	Type kg.MessageType
}

// Name returns the stage name used in logs and call records.
func (s Stage) Name() string {
	if s.Kind == StageExtract {
		return "extract_" + s.Type.String()
	}
	return string(s.Kind)
}

// nextStage decides the next stage purely from state. The progression is
// preprocess, classify, one extraction stage per eligible type in priority
// order, Q&A linking, aggregation, cost tracking, end. A stage is visited at
// most once: having any result (completed, failed, or skipped) marks it
// processed. The Q&A node itself decides whether to skip, so every run
// carries a qa_linking result.
func nextStage(s *State) Stage {
	if s.PreprocessResult == nil {
		return Stage{Kind: StagePreprocess}
	}
	if s.ClassifyResult == nil {
		return Stage{Kind: StageClassify}
	}

	for _, typ := range s.ExtractTypes {
		if len(s.Classified[typ]) == 0 {
			continue
		}
		if _, done := s.ExtractionResults[typ]; !done {
			return Stage{Kind: StageExtract, Type: typ}
		}
	}

	if s.QALinkResult == nil {
		return Stage{Kind: StageQALink}
	}

	if s.AggregateResult == nil {
		return Stage{Kind: StageAggregate}
	}
	if s.CostSummary == nil {
		return Stage{Kind: StageCostTrack}
	}
	return Stage{Kind: StageEnd}
}
