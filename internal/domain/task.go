package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskTextEmpty is returned when a task's text is empty.
	ErrTaskTextEmpty = errors.New("task text cannot be empty")

	// ErrTaskOwnerEmpty is returned when a task's owner ID is zero.
	ErrTaskOwnerEmpty = errors.New("task owner ID cannot be empty")

	// ErrTaskAlreadyDone is returned when a terminal task is asked to
	// transition again. Callers treat this as an idempotent no-op, not a
	// hard failure.
	ErrTaskAlreadyDone = errors.New("task is already done")
)

// Category classifies a task into one of a fixed set of buckets.
// The category is assigned once at creation and never changes; it drives
// the destination the task's notifications are routed to.
type Category string

// Possible task categories.
const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryHealth   Category = "health"
	CategoryOther    Category = "other"
)

// ParseCategory maps a raw string onto a known Category. Anything outside
// the fixed set collapses to CategoryOther so an unexpected classifier
// answer can never produce an unroutable task.
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryWork:
		return CategoryWork
	case CategoryPersonal:
		return CategoryPersonal
	case CategoryHealth:
		return CategoryHealth
	default:
		return CategoryOther
	}
}

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values. The only legal transition is
// TaskStatusPending -> TaskStatusDone; done is terminal.
const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
)

// Tier is the escalation level derived from a task's overdue count.
// It parameterizes the tone of generated reminders.
type Tier string

// Escalation tiers, mildest first. Tiers are clamped: nothing escalates
// past TierAggressive.
const (
	TierFirm       Tier = "firm"
	TierImpatient  Tier = "impatient"
	TierSarcastic  Tier = "sarcastic"
	TierAggressive Tier = "aggressive"
)

// TierForOverdueCount maps an overdue count onto an escalation tier.
func TierForOverdueCount(count int) Tier {
	switch {
	case count <= 0:
		return TierFirm
	case count == 1:
		return TierImpatient
	case count == 2:
		return TierSarcastic
	default:
		return TierAggressive
	}
}

// Task is the sole entity of the system: a user-submitted piece of work
// tracked from creation to completion. Text, category and destination are
// immutable after creation. OverdueCount and LastRemindedAt are written
// only by the reminder scheduler; SnoozeReason only by deferral; Status
// flips to done exactly once.
type Task struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        int64      `json:"owner_id"`
	Text           string     `json:"text"`
	Title          string     `json:"title"`
	Category       Category   `json:"category"`
	Status         TaskStatus `json:"status"`
	Destination    int64      `json:"destination"`
	CreatedAt      time.Time  `json:"created_at"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
	OverdueCount   int        `json:"overdue_count"`
	SnoozeReason   string     `json:"snooze_reason,omitempty"`

	// Version supports optimistic concurrency in the store. Every
	// successful conditional update increments it.
	Version int `json:"-"`
}

// NewTask creates a new pending Task with a generated ID and creation
// timestamp. Returns an error if validation fails.
func NewTask(
	ownerID int64,
	text string,
	title string,
	category Category,
	destination int64,
	dueAt *time.Time,
) (*Task, error) {
	task := &Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Text:        text,
		Title:       title,
		Category:    category,
		Status:      TaskStatusPending,
		Destination: destination,
		CreatedAt:   time.Now().UTC(),
		DueAt:       dueAt,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if strings.TrimSpace(t.Text) == "" {
		return ErrTaskTextEmpty
	}

	if t.OwnerID == 0 {
		return ErrTaskOwnerEmpty
	}

	return nil
}

// IsDone reports whether the task has reached its terminal state.
func (t *Task) IsDone() bool {
	return t.Status == TaskStatusDone
}

// MarkDone transitions the task to its terminal done state.
// Returns ErrTaskAlreadyDone if the task is already done.
func (t *Task) MarkDone() error {
	if t.IsDone() {
		return ErrTaskAlreadyDone
	}
	t.Status = TaskStatusDone
	return nil
}

// RecordReminder notes a successfully delivered reminder: it stamps
// LastRemindedAt and increments OverdueCount. Only the reminder scheduler
// calls this, and only after the notifier confirmed delivery.
func (t *Task) RecordReminder(now time.Time) {
	ts := now.UTC()
	t.LastRemindedAt = &ts
	t.OverdueCount++
}

// Defer records the user's free-text reason for not completing the task
// yet. A newer deferral overwrites the previous reason. Deferral is not
// an escalation event, so OverdueCount is deliberately untouched.
// Returns ErrTaskAlreadyDone if the task is already done.
func (t *Task) Defer(reason string) error {
	if t.IsDone() {
		return ErrTaskAlreadyDone
	}
	t.SnoozeReason = reason
	return nil
}

// Tier returns the escalation tier the task's next reminder should use.
func (t *Task) Tier() Tier {
	return TierForOverdueCount(t.OverdueCount)
}
