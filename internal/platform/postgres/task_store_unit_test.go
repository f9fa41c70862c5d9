package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingDB is a DBTX double whose calls all fail with a fixed error.
// Validation paths must reject bad input before any of these are reached.
type failingDB struct {
	err error
}

var _ store.DBTX = (*failingDB)(nil)

func (f *failingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, f.err
}

func (f *failingDB) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, f.err
}

func (f *failingDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, f.err
}

func (f *failingDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return &sql.Row{}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPostgresTaskStore_NilDB(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		NewPostgresTaskStore(nil, testLogger())
	})
}

func TestTaskStore_Create_RejectsInvalidTask(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("db must not be reached")
	s := NewPostgresTaskStore(&failingDB{err: dbErr}, testLogger())

	task := &domain.Task{} // missing id, text, owner
	err := s.Create(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.NotErrorIs(t, err, dbErr)
}

func TestTaskStore_Update_RejectsInvalidTask(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("db must not be reached")
	s := NewPostgresTaskStore(&failingDB{err: dbErr}, testLogger())

	err := s.Update(context.Background(), &domain.Task{})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.NotErrorIs(t, err, dbErr)
}

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil passes through", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, MapError(nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		t.Parallel()
		err := MapError(sql.ErrNoRows)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unique violation maps to duplicate", func(t *testing.T) {
		t.Parallel()
		err := MapError(&pgconn.PgError{Code: uniqueViolationCode})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("check violation maps to invalid entity", func(t *testing.T) {
		t.Parallel()
		err := MapError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "tasks_status_check"})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("not null violation maps to invalid entity", func(t *testing.T) {
		t.Parallel()
		err := MapError(&pgconn.PgError{Code: notNullViolationCode, ColumnName: "text"})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("unknown errors pass through unchanged", func(t *testing.T) {
		t.Parallel()
		sentinel := errors.New("boom")
		assert.ErrorIs(t, MapError(sentinel), sentinel)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: checkViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
