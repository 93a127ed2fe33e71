package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of domain events
type EventType string

const (
	// Assignment events
	EventAssignmentCreated EventType = "assignment.created"
	EventAssignmentUpdated EventType = "assignment.updated"

	// Submission events
	EventSubmissionReceived    EventType = "submission.received"
	EventSubmissionResubmitted EventType = "submission.resubmitted"
	EventSubmissionGraded      EventType = "submission.graded"
)

const (
	eventSource  = "assignment-service"
	eventVersion = "1.0"
)

// Event is the base envelope for all published events
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent builds an envelope with the service's source/version stamps.
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// Assignment event payloads

type AssignmentEvent struct {
	AssignmentID uint       `json:"assignment_id"`
	Title        string     `json:"title"`
	Kind         string     `json:"kind"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	CreatorID    string     `json:"creator_id"`
}

// Submission event payloads

type SubmissionReceivedEvent struct {
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	Resubmitted  bool      `json:"resubmitted"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type SubmissionGradedEvent struct {
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	Grade        float64   `json:"grade"`
	TotalPoints  float64   `json:"total_points"`
	AutoGraded   bool      `json:"auto_graded"`
	GradedAt     time.Time `json:"graded_at"`
}
