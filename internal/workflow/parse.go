package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/discord-kg/pipeline/internal/kg"
	"github.com/discord-kg/pipeline/internal/llm"
)

// rawTriple is one subject-predicate-object statement as returned by the
// model, before attribution. Models are asked for objects with named keys but
// positional [s, p, o, author] arrays show up often enough to accept too.
type rawTriple struct {
	Subject   string
	Predicate string
	Object    string
	Author    string
}

func (rt *rawTriple) UnmarshalJSON(data []byte) error {
	var obj struct {
		Subject   string `json:"subject"`
		Predicate string `json:"predicate"`
		Object    string `json:"object"`
		Author    string `json:"author"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		rt.Subject = obj.Subject
		rt.Predicate = obj.Predicate
		rt.Object = obj.Object
		rt.Author = obj.Author
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("triple is neither an object nor a string array")
	}
	if len(arr) < 3 {
		return fmt.Errorf("triple array has %d elements, want at least 3", len(arr))
	}
	rt.Subject = arr[0]
	rt.Predicate = arr[1]
	rt.Object = arr[2]
	if len(arr) > 3 {
		rt.Author = arr[3]
	}
	return nil
}

// decodeTriples pulls the JSON array out of an extraction response (which
// may wrap it in prose or markdown) and parses it into raw triples.
func decodeTriples(response string) ([]rawTriple, error) {
	raws, err := llm.ExtractJSONAs[[]rawTriple](response)
	if err != nil {
		return nil, fmt.Errorf("parsing triple array: %w", err)
	}
	return raws, nil
}

// attributeTriples maps each raw triple back to a message in the batch it was
// extracted from. A triple naming a batch author exactly, in its author field
// or as its subject, attributes to that author's first message. Anything else
// falls back to the first batch message not yet claimed by a fallback, and is
// dropped once the batch is exhausted.
func attributeTriples(raws []rawTriple, batch []kg.Message, confidence float64) (triples []kg.Triple, dropped int) {
	byAuthor := make(map[string]kg.Message, len(batch))
	for _, m := range batch {
		if _, ok := byAuthor[m.Author]; !ok {
			byAuthor[m.Author] = m
		}
	}

	fallback := 0
	for _, rt := range raws {
		src, ok := byAuthor[rt.Author]
		if !ok {
			src, ok = byAuthor[rt.Subject]
		}
		if !ok {
			if fallback >= len(batch) {
				dropped++
				continue
			}
			src = batch[fallback]
			fallback++
		}
		triples = append(triples, kg.Triple{
			Subject:          rt.Subject,
			Predicate:        rt.Predicate,
			Object:           rt.Object,
			MessageID:        src.MessageID,
			SegmentID:        src.SegmentID,
			Timestamp:        src.Timestamp,
			Confidence:       confidence,
			ExtractionMethod: kg.MethodLLM,
		})
	}
	return triples, dropped
}
