package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/events"
	"github.com/phrazzld/taskboss-api/internal/session"
	"github.com/phrazzld/taskboss-api/internal/store"
)

// defaultTitleLength caps the fallback title taken from raw task text
// when the classifier supplies none.
const defaultTitleLength = 40

// TaskService owns the task lifecycle state machine: creation with
// classification and routing, idempotent acknowledgement, and the
// two-step deferral conversation.
type TaskService interface {
	// Create classifies the submitted text, persists a new pending task
	// routed to its category's destination, and posts it with
	// acknowledgement controls. Classification failure is never fatal:
	// the task is created with category "other" and no due date.
	Create(ctx context.Context, ownerID int64, text string) (*domain.Task, error)

	// Acknowledge transitions the task to done. Returns ErrTaskNotFound
	// if the task does not exist and ErrAlreadyDone (with the task) if it
	// already reached its terminal state; the latter is an idempotent
	// no-op, not a hard error.
	Acknowledge(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)

	// BeginDeferral opens the pending-reason slot for (userID, taskID).
	// The user's next text message will be consumed as the deferral
	// reason. Any previous slot for that user is overwritten.
	BeginDeferral(ctx context.Context, userID int64, taskID uuid.UUID) (*domain.Task, error)

	// CompleteDeferral consumes the pending-reason slot for userID and
	// records reasonText on the slot's task. Returns ErrNoPendingDeferral
	// if no slot is open; the caller must then route the text elsewhere.
	// Status and overdue count are unchanged by deferral.
	CompleteDeferral(ctx context.Context, userID int64, reasonText string) (*domain.Task, error)

	// ListByStatus returns all tasks with the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	taskStore   store.TaskStore
	classifier  Classifier
	generator   Generator
	notifier    Notifier
	routes      DestinationResolver
	slots       *session.Store
	emitter     events.EventEmitter
	logger      *slog.Logger
	callTimeout time.Duration
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	classifier Classifier,
	generator Generator,
	notifier Notifier,
	routes DestinationResolver,
	slots *session.Store,
	emitter events.EventEmitter,
	logger *slog.Logger,
	callTimeout time.Duration,
) (TaskService, error) {
	if taskStore == nil {
		return nil, errors.New("taskStore cannot be nil")
	}
	if classifier == nil {
		return nil, errors.New("classifier cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}
	if routes == nil {
		return nil, errors.New("routes cannot be nil")
	}
	if slots == nil {
		return nil, errors.New("slots cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("emitter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if callTimeout <= 0 {
		callTimeout = 20 * time.Second
	}

	return &taskServiceImpl{
		taskStore:   taskStore,
		classifier:  classifier,
		generator:   generator,
		notifier:    notifier,
		routes:      routes,
		slots:       slots,
		emitter:     emitter,
		logger:      logger.With("component", "task_service"),
		callTimeout: callTimeout,
	}, nil
}

// Create implements TaskService.Create.
func (s *taskServiceImpl) Create(ctx context.Context, ownerID int64, text string) (*domain.Task, error) {
	classification := s.classify(ctx, text)

	destination := s.routes.DestinationFor(string(classification.Category))

	task, err := domain.NewTask(
		ownerID,
		text,
		classification.Title,
		classification.Category,
		destination,
		classification.DueAt,
	)
	if err != nil {
		return nil, &TaskServiceError{Operation: "create", Message: "invalid task", Err: err}
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		return nil, &TaskServiceError{Operation: "create", Message: "failed to persist task", Err: err}
	}

	s.emit(ctx, events.EventTaskCreated, task.ID, map[string]string{
		"category": string(task.Category),
	})

	// Delivery failure is logged, never fatal: the task exists either way
	// and the scheduler will surface it again.
	controls := &AckControls{TaskID: task.ID}
	if err := s.notifier.Deliver(ctx, task.Destination, TaskCard(task), controls); err != nil {
		s.logger.Error("failed to deliver task card",
			"task_id", task.ID,
			"destination", task.Destination,
			"error", err)
	}

	return task, nil
}

// Acknowledge implements TaskService.Acknowledge.
func (s *taskServiceImpl) Acknowledge(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task, err = s.commitTransition(ctx, task, func(t *domain.Task) error {
		return t.MarkDone()
	})
	if err != nil {
		if errors.Is(err, domain.ErrTaskAlreadyDone) {
			return task, ErrAlreadyDone
		}
		return nil, err
	}

	s.emit(ctx, events.EventTaskAcknowledged, task.ID, nil)

	// Congratulation is best-effort narrative; the transition is already
	// committed and must not depend on it.
	reply := s.ackReply(ctx, task)
	if err := s.notifier.Reply(ctx, task.Destination, reply); err != nil {
		s.logger.Error("failed to deliver completion reply",
			"task_id", task.ID,
			"error", err)
	}

	return task, nil
}

// BeginDeferral implements TaskService.BeginDeferral.
func (s *taskServiceImpl) BeginDeferral(ctx context.Context, userID int64, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsDone() {
		return task, ErrAlreadyDone
	}

	s.slots.BeginDeferral(userID, taskID)

	return task, nil
}

// CompleteDeferral implements TaskService.CompleteDeferral.
func (s *taskServiceImpl) CompleteDeferral(ctx context.Context, userID int64, reasonText string) (*domain.Task, error) {
	taskID, ok := s.slots.ConsumeDeferral(userID)
	if !ok {
		return nil, ErrNoPendingDeferral
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task, err = s.commitTransition(ctx, task, func(t *domain.Task) error {
		return t.Defer(reasonText)
	})
	if err != nil {
		if errors.Is(err, domain.ErrTaskAlreadyDone) {
			return task, ErrAlreadyDone
		}
		return nil, err
	}

	s.emit(ctx, events.EventTaskDeferred, task.ID, map[string]string{
		"reason": reasonText,
	})

	reply := s.deferReply(ctx, task, reasonText)
	if err := s.notifier.Reply(ctx, task.Destination, reply); err != nil {
		s.logger.Error("failed to deliver deferral reply",
			"task_id", task.ID,
			"error", err)
	}

	return task, nil
}

// ListByStatus implements TaskService.ListByStatus.
func (s *taskServiceImpl) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	tasks, err := s.taskStore.ListByStatus(ctx, status)
	if err != nil {
		return nil, &TaskServiceError{Operation: "list", Message: "failed to list tasks", Err: err}
	}
	return tasks, nil
}

// getTask loads a task and maps store errors to service errors.
func (s *taskServiceImpl) getTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrTaskNotFound
		}
		return nil, &TaskServiceError{Operation: "get", Message: "failed to load task", Err: err}
	}
	return task, nil
}

// commitTransition applies mutate to the task and commits it with the
// store's conditional update. On a version conflict it re-reads once and
// retries if the transition is still valid; a second conflict surfaces
// ErrConflict and the caller drops the event with a log.
func (s *taskServiceImpl) commitTransition(
	ctx context.Context,
	task *domain.Task,
	mutate func(*domain.Task) error,
) (*domain.Task, error) {
	if err := mutate(task); err != nil {
		return task, err
	}

	err := s.taskStore.Update(ctx, task)
	if err == nil {
		return task, nil
	}
	if store.IsNotFoundError(err) {
		return nil, ErrTaskNotFound
	}
	if !errors.Is(err, store.ErrVersionConflict) {
		return nil, &TaskServiceError{Operation: "update", Message: "failed to update task", Err: err}
	}

	// Lost the race; re-read and check the transition is still valid.
	fresh, err := s.getTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if err := mutate(fresh); err != nil {
		return fresh, err
	}
	if err := s.taskStore.Update(ctx, fresh); err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: task %s", ErrConflict, task.ID)
	}

	return fresh, nil
}

// classify invokes the classifier under a timeout and normalizes the
// verdict. Any failure yields the availability-over-precision default:
// category "other", no due date, title truncated from the text.
func (s *taskServiceImpl) classify(ctx context.Context, text string) Classification {
	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	fallback := Classification{
		Category: domain.CategoryOther,
		Title:    truncate(text, defaultTitleLength),
	}

	result, err := s.classifier.Classify(cctx, text)
	if err != nil || result == nil {
		s.logger.Warn("classification failed, using defaults", "error", err)
		return fallback
	}

	// Normalize: unknown categories collapse to "other", a missing title
	// falls back to truncated text.
	result.Category = domain.ParseCategory(string(result.Category))
	if result.Title == "" {
		result.Title = fallback.Title
	}

	return *result
}

// ackReply fetches the congratulation text with a static fallback.
func (s *taskServiceImpl) ackReply(ctx context.Context, task *domain.Task) string {
	gctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	reply, err := s.generator.AckReply(gctx, task)
	if err != nil || reply == "" {
		s.logger.Warn("ack reply generation failed, using fallback",
			"task_id", task.ID,
			"error", err)
		return FallbackAckReply(task)
	}
	return reply
}

// deferReply fetches the deferral response text with a static fallback.
func (s *taskServiceImpl) deferReply(ctx context.Context, task *domain.Task, reason string) string {
	gctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	reply, err := s.generator.DeferReply(gctx, task, reason)
	if err != nil || reply == "" {
		s.logger.Warn("defer reply generation failed, using fallback",
			"task_id", task.ID,
			"error", err)
		return FallbackDeferReply(task)
	}
	return reply
}

// emit publishes a lifecycle event; emission failures are logged, never
// propagated into the transition path.
func (s *taskServiceImpl) emit(ctx context.Context, eventType events.EventType, taskID uuid.UUID, payload interface{}) {
	event, err := events.NewTaskEvent(eventType, taskID, payload)
	if err != nil {
		s.logger.Error("failed to build lifecycle event", "event_type", eventType, "error", err)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit lifecycle event", "event_type", eventType, "error", err)
	}
}

// truncate shortens s to at most n characters without splitting runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
