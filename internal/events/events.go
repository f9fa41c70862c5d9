package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a task lifecycle transition.
type EventType string

// Lifecycle transition event types.
const (
	// EventTaskCreated is emitted when a task is created and persisted.
	EventTaskCreated EventType = "task_created"

	// EventTaskAcknowledged is emitted when a task transitions to done.
	EventTaskAcknowledged EventType = "task_acknowledged"

	// EventTaskDeferred is emitted when a deferral reason is recorded.
	EventTaskDeferred EventType = "task_deferred"

	// EventTaskReminded is emitted after a reminder was delivered and the
	// task's escalation state committed.
	EventTaskReminded EventType = "task_reminded"
)

// TaskEvent describes a single task lifecycle transition. Events form the
// audit trail of the system; tasks themselves are never destroyed, and
// every state change is observable through the emitter.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates which transition occurred
	Type EventType `json:"type"`

	// TaskID identifies the task the transition applies to
	TaskID uuid.UUID `json:"task_id"`

	// Payload contains transition-specific data serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// OccurredAt is the timestamp when the event was created
	OccurredAt time.Time `json:"occurred_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskEvent creates a new TaskEvent with the specified type, task ID
// and payload. A nil payload is allowed.
func NewTaskEvent(eventType EventType, taskID uuid.UUID, payload interface{}) (*TaskEvent, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = b
	}

	return &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     taskID,
		Payload:    payloadBytes,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
