// Package bus publishes evaluation run events.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "run.completed").
	Type string `json:"type"`

	// Source is the component that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// RunID links the event to an evaluation run.
	RunID string `json:"run_id,omitempty"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// Topics.
const (
	TopicRunCompleted = "eval.run.completed"
	TopicRunFailed    = "eval.run.failed"
)

// Event types.
const (
	TypeRunCompleted = "run.completed"
	TypeRunFailed    = "run.failed"
)

// NewEvent creates an event with a fresh ID and the current time.
func NewEvent(eventType, source, runID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
		RunID:     runID,
		Payload:   payload,
	}
}

// RunCompleted is the payload of TypeRunCompleted.
type RunCompleted struct {
	RunID      string             `json:"run_id"`
	Scores     map[string]float64 `json:"scores"`
	Metrics    []string           `json:"metrics"`
	NumSamples int                `json:"num_samples"`
	Excluded   int                `json:"excluded"`
	DurationMs int64              `json:"duration_ms"`
	// ReportErrors lists report targets that failed to write.
	ReportErrors []string `json:"report_errors,omitempty"`
}

// RunFailed is the payload of TypeRunFailed.
type RunFailed struct {
	RunID string `json:"run_id"`
	Code  string `json:"code"`
	Error string `json:"error"`
}
