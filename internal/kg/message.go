package kg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageType classifies a Discord message by its conversational role.
type MessageType string

const (
	TypeQuestion    MessageType = "question"
	TypeStrategy    MessageType = "strategy"
	TypeAnalysis    MessageType = "analysis"
	TypeAnswer      MessageType = "answer"
	TypeAlert       MessageType = "alert"
	TypePerformance MessageType = "performance"
	TypeDiscussion  MessageType = "discussion"
)

// AllMessageTypes returns every message type in extraction priority order.
// The router visits extraction stages in this order.
func AllMessageTypes() []MessageType {
	return []MessageType{
		TypeQuestion,
		TypeStrategy,
		TypeAnalysis,
		TypeAnswer,
		TypeAlert,
		TypePerformance,
		TypeDiscussion,
	}
}

// String returns the string representation of the MessageType.
func (t MessageType) String() string {
	return string(t)
}

// IsValid checks if the message type is one of the closed enumeration values.
func (t MessageType) IsValid() bool {
	switch t {
	case TypeQuestion, TypeStrategy, TypeAnalysis, TypeAnswer,
		TypeAlert, TypePerformance, TypeDiscussion:
		return true
	default:
		return false
	}
}

// UnmarshalJSON implements json.Unmarshaler, rejecting unknown type values.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	mt := MessageType(s)
	if s != "" && !mt.IsValid() {
		return fmt.Errorf("invalid message type: %s", s)
	}

	*t = mt
	return nil
}

// Message is a single Discord message as ingested from an export.
// CleanText is derived from the raw text during preprocessing; Type is
// assigned by classification.
type Message struct {
	MessageID string      `json:"message_id"`
	Author    string      `json:"author"`
	Timestamp string      `json:"timestamp"`
	Text      string      `json:"text,omitempty"`
	CleanText string      `json:"clean_text,omitempty"`
	SegmentID string      `json:"segment_id,omitempty"`
	Type      MessageType `json:"type,omitempty"`
}

// Validate checks the fields preprocessing requires. Messages failing this
// check are dropped and counted as input errors.
func (m Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message missing message_id")
	}
	if m.Author == "" {
		return fmt.Errorf("message %s missing author", m.MessageID)
	}
	if m.Timestamp == "" {
		return fmt.Errorf("message %s missing timestamp", m.MessageID)
	}
	return nil
}

// Content returns the best available text for the message, preferring the
// cleaned form.
func (m Message) Content() string {
	if m.CleanText != "" {
		return m.CleanText
	}
	return strings.TrimSpace(m.Text)
}
