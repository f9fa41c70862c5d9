package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboss-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
//
// All mutation goes through Update, which is conditional on the task's
// Version field: the write succeeds only if the stored version still
// matches, so a reminder cycle racing a user acknowledgement can never
// produce a lost update. Whichever writer loses receives
// ErrVersionConflict and must re-read before deciding to retry.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns ErrDuplicate if a task with the same ID already exists.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListByStatus retrieves all tasks with the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error)

	// Update persists the task's mutable fields (status, last_reminded_at,
	// overdue_count, snooze_reason) if and only if the stored version
	// matches task.Version. On success the stored version is incremented
	// and task.Version is updated to match.
	// Returns ErrVersionConflict if a concurrent writer won the race, or
	// ErrTaskNotFound if the task no longer exists.
	Update(ctx context.Context, task *domain.Task) error
}
