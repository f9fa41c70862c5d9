package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = `id, owner_id, text, title, category, status, destination,
	created_at, due_at, last_reminded_at, overdue_count, snooze_reason, version`

// Create implements store.TaskStore.Create
// It saves a new task to the database with version 1.
// Returns store.ErrInvalidEntity wrapping the validation error if the
// task data is invalid, and store.ErrDuplicate if the ID already exists.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	task.Version = 1

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.OwnerID,
		task.Text,
		task.Title,
		task.Category,
		task.Status,
		task.Destination,
		task.CreatedAt,
		task.DueAt,
		task.LastRemindedAt,
		task.OverdueCount,
		nullableString(task.SnoozeReason),
		task.Version,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
// It retrieves a task by its unique ID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}

	return task, nil
}

// ListByStatus implements store.TaskStore.ListByStatus
// It retrieves all tasks with the given status, oldest first.
func (s *PostgresTaskStore) ListByStatus(
	ctx context.Context,
	status domain.TaskStatus,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tasks, nil
}

// Update implements store.TaskStore.Update
// It writes the task's mutable fields with a conditional update against
// the version the caller read, and increments the version on success.
// Returns store.ErrVersionConflict if a concurrent writer got there
// first, and store.ErrTaskNotFound if the task does not exist at all.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE tasks
		SET status = $1,
			last_reminded_at = $2,
			overdue_count = $3,
			snooze_reason = $4,
			version = version + 1
		WHERE id = $5 AND version = $6`

	result, err := s.db.ExecContext(ctx, query,
		task.Status,
		task.LastRemindedAt,
		task.OverdueCount,
		nullableString(task.SnoozeReason),
		task.ID,
		task.Version,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Disambiguate a stale version from a missing row.
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, task.ID).Scan(&exists)
		if err != nil {
			return MapError(err)
		}
		if !exists {
			return store.ErrTaskNotFound
		}
		return fmt.Errorf("%w: task %s at version %d", store.ErrVersionConflict, task.ID, task.Version)
	}

	task.Version++
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row into a domain.Task.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task         domain.Task
		dueAt        sql.NullTime
		lastReminded sql.NullTime
		snoozeReason sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Text,
		&task.Title,
		&task.Category,
		&task.Status,
		&task.Destination,
		&task.CreatedAt,
		&dueAt,
		&lastReminded,
		&task.OverdueCount,
		&snoozeReason,
		&task.Version,
	)
	if err != nil {
		return nil, err
	}

	if dueAt.Valid {
		t := dueAt.Time.UTC()
		task.DueAt = &t
	}
	if lastReminded.Valid {
		t := lastReminded.Time.UTC()
		task.LastRemindedAt = &t
	}
	if snoozeReason.Valid {
		task.SnoozeReason = snoozeReason.String
	}
	task.CreatedAt = task.CreatedAt.UTC()

	return &task, nil
}

// nullableString maps an empty string to SQL NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
