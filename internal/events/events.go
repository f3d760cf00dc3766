// Package events publishes structure lifecycle events (version published,
// test submitted) to Kafka through watermill. Publishing is best-effort:
// services log failures and carry on, the surrounding transaction never
// rolls back over a broker hiccup.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	// Source identifies this service in every envelope.
	Source = "survey-builder-service"

	// SchemaVersion of the envelope payload.
	SchemaVersion = "1.0"
)

// Topics
const (
	TopicStructure = "survey.structure"
	TopicRuntime   = "survey.runtime"
)

// Event types
const (
	EventVersionPublished = "version.published"
	EventTestSubmitted    = "test.submitted"
)

// Event is the envelope every published message carries.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent wraps a payload in a fresh envelope.
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    Source,
		Version:   SchemaVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// VersionPublishedEvent is the payload for version.published.
type VersionPublishedEvent struct {
	VersionID     uint      `json:"version_id"`
	TemplateID    uint      `json:"template_id"`
	Version       int       `json:"version"`
	QuestionCount int64     `json:"question_count"`
	PublishedAt   time.Time `json:"published_at"`
}

// TestSubmittedEvent is the payload for test.submitted.
type TestSubmittedEvent struct {
	TestID       uint      `json:"test_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	AnswerCount  int       `json:"answer_count"`
	CompletedAt  time.Time `json:"completed_at"`
}
