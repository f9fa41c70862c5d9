// Package scheduler implements the periodic reminder pass: scan pending
// tasks, decide which are due for a nudge, escalate tone by overdue
// count, deliver, and commit the reminder bookkeeping with conditional
// updates so a concurrent acknowledgement is never overwritten.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/events"
	"github.com/phrazzld/taskboss-api/internal/service"
	"github.com/phrazzld/taskboss-api/internal/store"
)

// Reminder timing policy. Dated tasks get anticipatory pressure ahead of
// the deadline; undated tasks get periodic nudging. Once any reminder has
// gone out, the floor applies uniformly so no task is pinged every cycle.
const (
	// reminderFloor is the minimum gap between two reminders for the
	// same task, and the nudge interval for undated tasks.
	reminderFloor = 48 * time.Hour

	// dueLeadTime is how far before the due date the reminder window opens.
	dueLeadTime = 24 * time.Hour
)

// Config holds the scheduler's tuning knobs.
type Config struct {
	// Interval between cycles. Non-positive falls back to one hour.
	Interval time.Duration

	// WorkerCount bounds per-cycle parallelism. Non-positive falls back to 1.
	WorkerCount int

	// CallTimeout caps each text-generation call. Non-positive falls
	// back to 20 seconds.
	CallTimeout time.Duration
}

// Scheduler runs the recurring reminder pass.
type Scheduler struct {
	taskStore   store.TaskStore
	generator   service.Generator
	notifier    service.Notifier
	emitter     events.EventEmitter
	logger      *slog.Logger
	interval    time.Duration
	workerCount int
	callTimeout time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewScheduler creates a Scheduler.
// It returns an error if any of the required dependencies are nil.
func NewScheduler(
	taskStore store.TaskStore,
	generator service.Generator,
	notifier service.Notifier,
	emitter events.EventEmitter,
	logger *slog.Logger,
	cfg Config,
) (*Scheduler, error) {
	if taskStore == nil {
		return nil, errors.New("taskStore cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("emitter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 20 * time.Second
	}

	return &Scheduler{
		taskStore:   taskStore,
		generator:   generator,
		notifier:    notifier,
		emitter:     emitter,
		logger:      logger.With("component", "reminder_scheduler"),
		interval:    interval,
		workerCount: workerCount,
		callTimeout: callTimeout,
		now:         time.Now,
	}, nil
}

// Run executes reminder cycles on the configured interval until ctx is
// canceled. One pass runs immediately on start.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("reminder scheduler started",
		"interval", s.interval.String(),
		"worker_count", s.workerCount)

	s.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one full scan-and-act pass: fetch all pending tasks
// in one read, then process eligible ones with bounded parallelism. A
// failure on one task never aborts the pass for the others.
func (s *Scheduler) RunCycle(ctx context.Context) {
	now := s.now()

	tasks, err := s.taskStore.ListByStatus(ctx, domain.TaskStatusPending)
	if err != nil {
		s.logger.Error("failed to list pending tasks, skipping cycle", "error", err)
		return
	}

	var eligible []*domain.Task
	for _, task := range tasks {
		if ShouldRemind(task, now) {
			eligible = append(eligible, task)
		}
	}

	s.logger.Info("reminder cycle",
		"pending", len(tasks),
		"eligible", len(eligible))

	if len(eligible) == 0 {
		return
	}

	queue := make(chan *domain.Task)
	var wg sync.WaitGroup
	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				s.remindOne(ctx, task, now)
			}
		}()
	}

	for _, task := range eligible {
		select {
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			return
		case queue <- task:
		}
	}
	close(queue)
	wg.Wait()
}

// ShouldRemind decides whether a pending task is due for a reminder at
// the given instant. The canonical rule: the due-date window (due - 24h,
// open-ended) or the undated interval ((last reminder or creation) + 48h),
// both gated by the 48h floor once any reminder has been sent.
func ShouldRemind(task *domain.Task, now time.Time) bool {
	if task.IsDone() {
		return false
	}

	if task.LastRemindedAt != nil && now.Before(task.LastRemindedAt.Add(reminderFloor)) {
		return false
	}

	if task.DueAt != nil {
		return !now.Before(task.DueAt.Add(-dueLeadTime))
	}

	since := task.CreatedAt
	if task.LastRemindedAt != nil {
		since = *task.LastRemindedAt
	}
	return !now.Before(since.Add(reminderFloor))
}

// remindOne handles a single eligible task: phrase the reminder at the
// task's escalation tier, deliver it, then commit the bookkeeping.
// Delivery failure leaves the task untouched so the next cycle retries
// it naturally. Panics are contained so one bad task cannot take down
// the whole pass.
func (s *Scheduler) remindOne(ctx context.Context, task *domain.Task, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while processing task",
				"task_id", task.ID,
				"panic", r)
		}
	}()

	tier := task.Tier()
	body := s.reminderBody(ctx, task, tier)

	controls := &service.AckControls{TaskID: task.ID}
	if err := s.notifier.Deliver(ctx, task.Destination, body, controls); err != nil {
		s.logger.Warn("reminder delivery failed, will retry next cycle",
			"task_id", task.ID,
			"destination", task.Destination,
			"error", err)
		return
	}

	if err := s.commitReminder(ctx, task, now); err != nil {
		s.logger.Warn("dropping reminder bookkeeping",
			"task_id", task.ID,
			"error", err)
		return
	}

	s.logger.Info("reminder sent",
		"task_id", task.ID,
		"tier", tier,
		"overdue_count", task.OverdueCount)

	event, err := events.NewTaskEvent(events.EventTaskReminded, task.ID, map[string]interface{}{
		"tier":          string(tier),
		"overdue_count": task.OverdueCount,
	})
	if err == nil {
		if err := s.emitter.EmitEvent(ctx, event); err != nil {
			s.logger.Error("failed to emit reminder event", "task_id", task.ID, "error", err)
		}
	}
}

// commitReminder stamps the reminder on the task with a conditional
// update. On a version conflict it re-reads once: if the task was
// acknowledged in the meantime the bookkeeping is abandoned, otherwise
// the stamp is re-applied. A second conflict drops the update; the task
// stays eligible and the next cycle settles it.
func (s *Scheduler) commitReminder(ctx context.Context, task *domain.Task, now time.Time) error {
	task.RecordReminder(now)

	err := s.taskStore.Update(ctx, task)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrVersionConflict) {
		return err
	}

	fresh, err := s.taskStore.GetByID(ctx, task.ID)
	if err != nil {
		return err
	}
	if fresh.IsDone() {
		s.logger.Info("task acknowledged during reminder, skipping bookkeeping",
			"task_id", task.ID)
		return nil
	}

	fresh.RecordReminder(now)
	if err := s.taskStore.Update(ctx, fresh); err != nil {
		return err
	}
	*task = *fresh
	return nil
}

// reminderBody phrases the reminder, falling back to the fixed template
// on any generator failure. A slow or broken generator must never
// suppress an overdue reminder.
func (s *Scheduler) reminderBody(ctx context.Context, task *domain.Task, tier domain.Tier) string {
	gctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	body, err := s.generator.Reminder(gctx, task, tier)
	if err != nil || body == "" {
		s.logger.Warn("reminder generation failed, using fallback",
			"task_id", task.ID,
			"tier", tier,
			"error", err)
		return service.FallbackReminder(task)
	}
	return body
}
