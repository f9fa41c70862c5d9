package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/taskboss-api/internal/api/shared"
	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/service"
)

// TaskHandler exposes the task lifecycle over HTTP: submission,
// acknowledgement, the two-step deferral, and listing.
type TaskHandler struct {
	tasks     service.TaskService
	validator *validator.Validate
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(tasks service.TaskService) *TaskHandler {
	return &TaskHandler{
		tasks:     tasks,
		validator: validator.New(),
	}
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := shared.OperatorIDFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "Not authenticated", domain.ErrUnauthorized)
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Validation error", err)
		return
	}

	task, err := h.tasks.Create(r.Context(), operatorID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	respondJSON(w, r, http.StatusCreated, NewTaskResponse(task))
}

// List handles GET /tasks. The optional status query parameter defaults
// to pending.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.TaskStatusPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		switch domain.TaskStatus(raw) {
		case domain.TaskStatusPending, domain.TaskStatusDone:
			status = domain.TaskStatus(raw)
		default:
			respondError(w, r, http.StatusBadRequest, "Unknown status", domain.ErrValidation)
			return
		}
	}

	tasks, err := h.tasks.ListByStatus(r.Context(), status)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskResponse(task))
	}
	respondJSON(w, r, http.StatusOK, TaskListResponse{Tasks: out})
}

// Acknowledge handles POST /tasks/{id}/ack. Acknowledging an already
// done task succeeds: the call is idempotent.
func (h *TaskHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.Acknowledge(r.Context(), taskID)
	if err != nil && !errors.Is(err, service.ErrAlreadyDone) {
		HandleAPIError(w, r, err, "")
		return
	}

	respondJSON(w, r, http.StatusOK, NewTaskResponse(task))
}

// BeginDeferral handles POST /tasks/{id}/defer. It opens the pending
// reason slot; the reason itself arrives via POST /replies.
func (h *TaskHandler) BeginDeferral(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := shared.OperatorIDFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "Not authenticated", domain.ErrUnauthorized)
		return
	}

	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.BeginDeferral(r.Context(), operatorID, taskID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyDone) {
			respondError(w, r, http.StatusConflict, "Task is already done", err)
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	respondJSON(w, r, http.StatusOK, NewTaskResponse(task))
}

// Reply handles POST /replies: free text that completes a pending
// deferral with its reason.
func (h *TaskHandler) Reply(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := shared.OperatorIDFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "Not authenticated", domain.ErrUnauthorized)
		return
	}

	var req ReplyRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Validation error", err)
		return
	}

	task, err := h.tasks.CompleteDeferral(r.Context(), operatorID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	respondJSON(w, r, http.StatusOK, NewTaskResponse(task))
}
