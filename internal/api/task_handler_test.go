package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskboss-api/internal/api/shared"
	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOperatorID = int64(42)

// stubTaskService is a TaskService double with injectable behavior.
type stubTaskService struct {
	createFn           func(ctx context.Context, ownerID int64, text string) (*domain.Task, error)
	acknowledgeFn      func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	beginDeferralFn    func(ctx context.Context, userID int64, taskID uuid.UUID) (*domain.Task, error)
	completeDeferralFn func(ctx context.Context, userID int64, reasonText string) (*domain.Task, error)
	listByStatusFn     func(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error)
}

var _ service.TaskService = (*stubTaskService)(nil)

func (s *stubTaskService) Create(ctx context.Context, ownerID int64, text string) (*domain.Task, error) {
	return s.createFn(ctx, ownerID, text)
}

func (s *stubTaskService) Acknowledge(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return s.acknowledgeFn(ctx, taskID)
}

func (s *stubTaskService) BeginDeferral(ctx context.Context, userID int64, taskID uuid.UUID) (*domain.Task, error) {
	return s.beginDeferralFn(ctx, userID, taskID)
}

func (s *stubTaskService) CompleteDeferral(ctx context.Context, userID int64, reasonText string) (*domain.Task, error) {
	return s.completeDeferralFn(ctx, userID, reasonText)
}

func (s *stubTaskService) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	return s.listByStatusFn(ctx, status)
}

// newTaskRouter mounts the handler the way the real router does.
func newTaskRouter(h *TaskHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/tasks", h.Create)
	r.Get("/tasks", h.List)
	r.Post("/tasks/{id}/ack", h.Acknowledge)
	r.Post("/tasks/{id}/defer", h.BeginDeferral)
	r.Post("/replies", h.Reply)
	return r
}

// authedRequest builds a request carrying the operator ID, as the auth
// middleware would.
func authedRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	ctx := context.WithValue(req.Context(), shared.OperatorIDContextKey, testOperatorID)
	return req.WithContext(ctx)
}

func sampleTask(t *testing.T) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(testOperatorID, "file the report", "File report", domain.CategoryWork, 100, nil)
	require.NoError(t, err)
	return task
}

func TestTaskHandler_Create(t *testing.T) {
	t.Parallel()

	t.Run("valid submission returns 201", func(t *testing.T) {
		t.Parallel()
		task := sampleTask(t)
		h := NewTaskHandler(&stubTaskService{
			createFn: func(ctx context.Context, ownerID int64, text string) (*domain.Task, error) {
				assert.Equal(t, testOperatorID, ownerID)
				assert.Equal(t, "file the report", text)
				return task, nil
			},
		})

		rec := httptest.NewRecorder()
		req := authedRequest(t, http.MethodPost, "/tasks", CreateTaskRequest{Text: "file the report"})
		newTaskRouter(h).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, task.ID, resp.ID)
		assert.Equal(t, "work", resp.Category)
		assert.Equal(t, "pending", resp.Status)
	})

	t.Run("missing text returns 400", func(t *testing.T) {
		t.Parallel()
		h := NewTaskHandler(&stubTaskService{})

		rec := httptest.NewRecorder()
		req := authedRequest(t, http.MethodPost, "/tasks", CreateTaskRequest{})
		newTaskRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated returns 401", func(t *testing.T) {
		t.Parallel()
		h := NewTaskHandler(&stubTaskService{})

		rec := httptest.NewRecorder()
		body := bytes.NewBufferString(`{"text":"x"}`)
		req := httptest.NewRequest(http.MethodPost, "/tasks", body)
		newTaskRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTaskHandler_Acknowledge(t *testing.T) {
	t.Parallel()

	t.Run("success returns the done task", func(t *testing.T) {
		t.Parallel()
		task := sampleTask(t)
		require.NoError(t, task.MarkDone())
		h := NewTaskHandler(&stubTaskService{
			acknowledgeFn: func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
				return task, nil
			},
		})

		rec := httptest.NewRecorder()
		req := authedRequest(t, http.MethodPost, "/tasks/"+task.ID.String()+"/ack", nil)
		newTaskRouter(h).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "done", resp.Status)
	})

	t.Run("already done is still 200", func(t *testing.T) {
		t.Parallel()
		task := sampleTask(t)
		require.NoError(t, task.MarkDone())
		h := NewTaskHandler(&stubTaskService{
			acknowledgeFn: func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
				return task, service.ErrAlreadyDone
			},
		})

		rec := httptest.NewRecorder()
		req := authedRequest(t, http.MethodPost, "/tasks/"+task.ID.String()+"/ack", nil)
		newTaskRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown task returns 404", func(t *testing.T) {
		t.Parallel()
		h := NewTaskHandler(&stubTaskService{
			acknowledgeFn: func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
				return nil, service.ErrTaskNotFound
			},
		})

		rec := httptest.NewRecorder()
		req := authedRequest(t, http.MethodPost, "/tasks/"+uuid.NewString()+"/ack", nil)
		newTaskRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		t.Parallel()
		h := NewTaskHandler(&stubTaskService{})

		rec := httptest.NewRecorder()
		req := authedRequest(t, http.MethodPost, "/tasks/not-a-uuid/ack", nil)
		newTaskRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_Deferral(t *testing.T) {
	t.Parallel()

	t.Run("defer then reply records the reason", func(t *testing.T) {
		t.Parallel()
		task := sampleTask(t)

		h := NewTaskHandler(&stubTaskService{
			beginDeferralFn: func(ctx context.Context, userID int64, taskID uuid.UUID) (*domain.Task, error) {
				assert.Equal(t, testOperatorID, userID)
				return task, nil
			},
			completeDeferralFn: func(ctx context.Context, userID int64, reason string) (*domain.Task, error) {
				require.NoError(t, task.Defer(reason))
				return task, nil
			},
		})
		router := newTaskRouter(h)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/tasks/"+task.ID.String()+"/defer", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/replies", ReplyRequest{Text: "was in a meeting"}))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "was in a meeting", resp.SnoozeReason)
		assert.Equal(t, 0, resp.OverdueCount)
	})

	t.Run("defer on a done task returns 409", func(t *testing.T) {
		t.Parallel()
		h := NewTaskHandler(&stubTaskService{
			beginDeferralFn: func(ctx context.Context, userID int64, taskID uuid.UUID) (*domain.Task, error) {
				return nil, service.ErrAlreadyDone
			},
		})

		rec := httptest.NewRecorder()
		req := authedRequest(t, http.MethodPost, "/tasks/"+uuid.NewString()+"/defer", nil)
		newTaskRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("reply without a pending deferral returns 400", func(t *testing.T) {
		t.Parallel()
		h := NewTaskHandler(&stubTaskService{
			completeDeferralFn: func(ctx context.Context, userID int64, reason string) (*domain.Task, error) {
				return nil, service.ErrNoPendingDeferral
			},
		})

		rec := httptest.NewRecorder()
		req := authedRequest(t, http.MethodPost, "/replies", ReplyRequest{Text: "whatever"})
		newTaskRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_List(t *testing.T) {
	t.Parallel()

	t.Run("defaults to pending", func(t *testing.T) {
		t.Parallel()
		task := sampleTask(t)
		h := NewTaskHandler(&stubTaskService{
			listByStatusFn: func(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
				assert.Equal(t, domain.TaskStatusPending, status)
				return []*domain.Task{task}, nil
			},
		})

		rec := httptest.NewRecorder()
		newTaskRouter(h).ServeHTTP(rec, authedRequest(t, http.MethodGet, "/tasks", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Tasks, 1)
		assert.Equal(t, task.ID, resp.Tasks[0].ID)
	})

	t.Run("honors an explicit status", func(t *testing.T) {
		t.Parallel()
		h := NewTaskHandler(&stubTaskService{
			listByStatusFn: func(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
				assert.Equal(t, domain.TaskStatusDone, status)
				return nil, nil
			},
		})

		rec := httptest.NewRecorder()
		newTaskRouter(h).ServeHTTP(rec, authedRequest(t, http.MethodGet, "/tasks?status=done", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		t.Parallel()
		h := NewTaskHandler(&stubTaskService{})

		rec := httptest.NewRecorder()
		newTaskRouter(h).ServeHTTP(rec, authedRequest(t, http.MethodGet, "/tasks?status=archived", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service failure returns 500", func(t *testing.T) {
		t.Parallel()
		h := NewTaskHandler(&stubTaskService{
			listByStatusFn: func(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
				return nil, errors.New("boom")
			},
		})

		rec := httptest.NewRecorder()
		newTaskRouter(h).ServeHTTP(rec, authedRequest(t, http.MethodGet, "/tasks", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
