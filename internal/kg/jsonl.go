package kg

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/discord-kg/pipeline/internal/types"
)

// ReadMessages reads newline-delimited JSON messages from r, one object per
// line. Blank lines are skipped; a malformed line is a hard error carrying
// its line number.
func ReadMessages(r io.Reader) ([]Message, error) {
	var messages []Message

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, types.WrapError(
				types.INPUT_PARSE_FAILED,
				fmt.Sprintf("invalid JSON on line %d", lineNum),
				err,
			)
		}
		messages = append(messages, msg)
	}

	if err := scanner.Err(); err != nil {
		return nil, types.WrapError(types.INPUT_PARSE_FAILED, "failed to read input", err)
	}

	return messages, nil
}

// ReadMessagesFile reads newline-delimited JSON messages from a file path.
func ReadMessagesFile(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.WrapError(types.INPUT_NOT_FOUND, fmt.Sprintf("input file %s", path), err)
	}
	defer f.Close()

	return ReadMessages(f)
}

// WriteTriples writes triples to w as newline-delimited JSON, one flat object
// per line.
func WriteTriples(w io.Writer, triples []Triple) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for _, t := range triples {
		if err := enc.Encode(t); err != nil {
			return types.WrapError(types.OUTPUT_WRITE_FAILED, "failed to encode triple", err)
		}
	}

	return bw.Flush()
}

// WriteTriplesFile writes triples as JSONL to a file path, creating or
// truncating it.
func WriteTriplesFile(path string, triples []Triple) error {
	f, err := os.Create(path)
	if err != nil {
		return types.WrapError(types.OUTPUT_WRITE_FAILED, fmt.Sprintf("output file %s", path), err)
	}
	defer f.Close()

	return WriteTriples(f, triples)
}

// ReadTriples reads newline-delimited JSON triples from r. Used by tests and
// downstream consumers of the pipeline output.
func ReadTriples(r io.Reader) ([]Triple, error) {
	var triples []Triple

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var t Triple
		if err := json.Unmarshal([]byte(line), &t); err != nil {
			return nil, types.WrapError(
				types.INPUT_PARSE_FAILED,
				fmt.Sprintf("invalid JSON on line %d", lineNum),
				err,
			)
		}
		triples = append(triples, t)
	}

	if err := scanner.Err(); err != nil {
		return nil, types.WrapError(types.INPUT_PARSE_FAILED, "failed to read triples", err)
	}

	return triples, nil
}
