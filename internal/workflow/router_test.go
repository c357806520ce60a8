package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/discord-kg/pipeline/internal/kg"
)

func msg(id, author, text string) kg.Message {
	return kg.Message{
		MessageID: id,
		Author:    author,
		Timestamp: "2024-01-15T10:00:00Z",
		Text:      text,
	}
}

func TestNextStage(t *testing.T) {
	done := &NodeResult{Status: StatusCompleted}

	t.Run("fresh state starts with preprocessing", func(t *testing.T) {
		s := NewState(nil, "seg", 20)
		assert.Equal(t, StagePreprocess, nextStage(s).Kind)
	})

	t.Run("preprocessed state moves to classification", func(t *testing.T) {
		s := NewState(nil, "seg", 20)
		s.PreprocessResult = done
		assert.Equal(t, StageClassify, nextStage(s).Kind)
	})

	t.Run("extraction visits types in priority order", func(t *testing.T) {
		s := NewState(nil, "seg", 20)
		s.PreprocessResult = done
		s.ClassifyResult = done
		s.ExtractTypes = []kg.MessageType{kg.TypeQuestion, kg.TypeStrategy, kg.TypeAnswer}
		s.Classified[kg.TypeStrategy] = []kg.Message{msg("m1", "alice", "buy calls")}
		s.Classified[kg.TypeAnswer] = []kg.Message{msg("m2", "bob", "sell puts")}

		stage := nextStage(s)
		assert.Equal(t, StageExtract, stage.Kind)
		assert.Equal(t, kg.TypeStrategy, stage.Type)
		assert.Equal(t, "extract_strategy", stage.Name())

		s.ExtractionResults[kg.TypeStrategy] = done
		stage = nextStage(s)
		assert.Equal(t, StageExtract, stage.Kind)
		assert.Equal(t, kg.TypeAnswer, stage.Type)
	})

	t.Run("empty buckets are never visited", func(t *testing.T) {
		s := NewState(nil, "seg", 20)
		s.PreprocessResult = done
		s.ClassifyResult = done
		s.ExtractTypes = kg.AllMessageTypes()
		s.QALinkResult = done

		stage := nextStage(s)
		assert.Equal(t, StageAggregate, stage.Kind)
	})

	t.Run("qa linking always follows extraction", func(t *testing.T) {
		s := NewState(nil, "seg", 20)
		s.PreprocessResult = done
		s.ClassifyResult = done
		s.ExtractTypes = []kg.MessageType{kg.TypeQuestion}
		s.Classified[kg.TypeQuestion] = []kg.Message{msg("m1", "alice", "what now?")}
		s.ExtractionResults[kg.TypeQuestion] = done

		// The node is always visited; it records a skipped result itself
		// when linking is disabled or one side is missing.
		assert.Equal(t, StageQALink, nextStage(s).Kind)

		s.SkipQALinking = true
		s.QALinkResult = nil
		assert.Equal(t, StageQALink, nextStage(s).Kind)
	})

	t.Run("qa linking runs at most once", func(t *testing.T) {
		s := NewState(nil, "seg", 20)
		s.PreprocessResult = done
		s.ClassifyResult = done
		s.Classified[kg.TypeQuestion] = []kg.Message{msg("m1", "alice", "what now?")}
		s.Classified[kg.TypeAnswer] = []kg.Message{msg("m2", "bob", "hold")}
		s.QALinkResult = done

		assert.Equal(t, StageAggregate, nextStage(s).Kind)
	})

	t.Run("terminal chain runs aggregate then cost then end", func(t *testing.T) {
		s := NewState(nil, "seg", 20)
		s.PreprocessResult = done
		s.ClassifyResult = done
		s.QALinkResult = done

		assert.Equal(t, StageAggregate, nextStage(s).Kind)
		s.AggregateResult = done
		assert.Equal(t, StageCostTrack, nextStage(s).Kind)
		s.CostSummary = &CostSummary{}
		assert.Equal(t, StageEnd, nextStage(s).Kind)
	})
}
