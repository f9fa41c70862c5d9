package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/session"
)

// Classification is the classifier's structured verdict for a piece of
// task text. Category is validated against the fixed set by the caller;
// DueAt is nil when no deadline was mentioned.
type Classification struct {
	Category domain.Category
	Title    string
	DueAt    *time.Time
}

// Classifier maps raw task text to a category, short title and optional
// due date. Implementations may fail, rate-limit or time out; the service
// treats every error as "no classification" and falls back to defaults.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// Generator produces the user-facing phrasing for reminders and replies.
// Every method may fail or time out; callers must fall back to the static
// templates in this package and never let a slow generator block a state
// transition.
type Generator interface {
	// Reminder phrases a nudge for a pending task at the given escalation tier.
	Reminder(ctx context.Context, task *domain.Task, tier domain.Tier) (string, error)

	// AckReply phrases a short congratulation for a completed task.
	AckReply(ctx context.Context, task *domain.Task) (string, error)

	// DeferReply phrases a firm-but-fair response to a deferral reason.
	DeferReply(ctx context.Context, task *domain.Task, reason string) (string, error)

	// Chat produces a free-form conversational reply given bounded history.
	Chat(ctx context.Context, history []session.Turn, message string) (string, error)
}

// AckControls describes the interactive controls attached to a delivered
// message: an acknowledge action and a defer action, both bound to the
// same task.
type AckControls struct {
	TaskID uuid.UUID
}

// Notifier delivers formatted messages to a destination channel.
// Delivery is fire-and-forget from the core's perspective, but failures
// must be reported so the caller can decide whether state may change.
type Notifier interface {
	// Deliver posts body to the destination with acknowledge/defer
	// controls attached.
	Deliver(ctx context.Context, destination int64, body string, controls *AckControls) error

	// Reply posts a plain message with no controls.
	Reply(ctx context.Context, destination int64, body string) error
}

// DestinationResolver maps a task category onto the destination channel
// its notifications are routed to. config.NotifierConfig satisfies this.
type DestinationResolver interface {
	DestinationFor(category string) int64
}
