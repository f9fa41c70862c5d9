package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/session"
	"github.com/phrazzld/taskboss-api/internal/store"
)

// mockTaskStore is a hand-written TaskStore double with injectable
// behavior per method. The zero value backs itself with an in-memory map.
type mockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	createFn       func(ctx context.Context, task *domain.Task) error
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	listByStatusFn func(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error)
	updateFn       func(ctx context.Context, task *domain.Task) error

	updateCalls int
}

var _ store.TaskStore = (*mockTaskStore)(nil)

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return store.ErrDuplicate
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *mockTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	if m.listByStatusFn != nil {
		return m.listByStatusFn(ctx, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, task := range m.tasks {
		if task.Status == status {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	m.updateCalls++
	m.mu.Unlock()
	if m.updateFn != nil {
		return m.updateFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if current.Version != task.Version {
		return store.ErrVersionConflict
	}
	task.Version++
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

// seed stores a task directly, bypassing Create.
func (m *mockTaskStore) seed(task *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.tasks[task.ID] = &copied
}

// stored returns the currently persisted copy of the task.
func (m *mockTaskStore) stored(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil
	}
	copied := *task
	return &copied
}

// mockClassifier is a Classifier double with injectable behavior.
type mockClassifier struct {
	classifyFn func(ctx context.Context, text string) (*Classification, error)
}

var _ Classifier = (*mockClassifier)(nil)

func (m *mockClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	if m.classifyFn != nil {
		return m.classifyFn(ctx, text)
	}
	return &Classification{Category: domain.CategoryOther, Title: text}, nil
}

// mockGenerator is a Generator double with injectable behavior per method.
type mockGenerator struct {
	reminderFn   func(ctx context.Context, task *domain.Task, tier domain.Tier) (string, error)
	ackReplyFn   func(ctx context.Context, task *domain.Task) (string, error)
	deferReplyFn func(ctx context.Context, task *domain.Task, reason string) (string, error)
	chatFn       func(ctx context.Context, history []session.Turn, message string) (string, error)
}

var _ Generator = (*mockGenerator)(nil)

func (m *mockGenerator) Reminder(ctx context.Context, task *domain.Task, tier domain.Tier) (string, error) {
	if m.reminderFn != nil {
		return m.reminderFn(ctx, task, tier)
	}
	return "mock reminder", nil
}

func (m *mockGenerator) AckReply(ctx context.Context, task *domain.Task) (string, error) {
	if m.ackReplyFn != nil {
		return m.ackReplyFn(ctx, task)
	}
	return "mock ack reply", nil
}

func (m *mockGenerator) DeferReply(ctx context.Context, task *domain.Task, reason string) (string, error) {
	if m.deferReplyFn != nil {
		return m.deferReplyFn(ctx, task, reason)
	}
	return "mock defer reply", nil
}

func (m *mockGenerator) Chat(ctx context.Context, history []session.Turn, message string) (string, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, history, message)
	}
	return "mock chat reply", nil
}

// deliveredMessage records one Notifier call for assertions.
type deliveredMessage struct {
	destination int64
	body        string
	controls    *AckControls
}

// mockNotifier is a Notifier double recording every delivery.
type mockNotifier struct {
	mu        sync.Mutex
	delivered []deliveredMessage
	replies   []deliveredMessage

	deliverFn func(ctx context.Context, destination int64, body string, controls *AckControls) error
	replyFn   func(ctx context.Context, destination int64, body string) error
}

var _ Notifier = (*mockNotifier)(nil)

func (m *mockNotifier) Deliver(ctx context.Context, destination int64, body string, controls *AckControls) error {
	if m.deliverFn != nil {
		return m.deliverFn(ctx, destination, body, controls)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, deliveredMessage{destination: destination, body: body, controls: controls})
	return nil
}

func (m *mockNotifier) Reply(ctx context.Context, destination int64, body string) error {
	if m.replyFn != nil {
		return m.replyFn(ctx, destination, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, deliveredMessage{destination: destination, body: body})
	return nil
}

// staticRoutes is a DestinationResolver double with a fixed routing table.
type staticRoutes struct {
	byCategory map[string]int64
	general    int64
}

var _ DestinationResolver = (*staticRoutes)(nil)

func (r *staticRoutes) DestinationFor(category string) int64 {
	if dest, ok := r.byCategory[category]; ok {
		return dest
	}
	return r.general
}
