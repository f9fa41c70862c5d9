package service

import (
	"errors"
	"fmt"
)

// Common sentinel errors for TaskService.
var (
	// ErrTaskNotFound indicates that the referenced task does not exist.
	// Surfaced to the user as "task not found"; never fatal.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAlreadyDone indicates an operation targeted a task that is
	// already in its terminal state. Callers surface this as a neutral
	// acknowledgment, not an error.
	ErrAlreadyDone = errors.New("task already done")

	// ErrNoPendingDeferral indicates a text reply arrived for a user with
	// no open pending-reason slot. It is a routing signal, not a failure:
	// the text should fall through to the other message handlers.
	ErrNoPendingDeferral = errors.New("no pending deferral for user")

	// ErrConflict indicates a concurrent mutation collision that survived
	// one re-read-and-retry. The inbound event is dropped with a log;
	// it is never retried forever.
	ErrConflict = errors.New("conflicting concurrent update")
)

// TaskServiceError wraps errors from the task service with operation context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "create", "acknowledge")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}
