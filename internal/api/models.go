package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboss-api/internal/domain"
)

// Common request/response structures

// LoginRequest defines the payload for the operator login endpoint.
type LoginRequest struct {
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for the login endpoint.
type AuthResponse struct {
	// Token is the JWT used for API authorization
	Token string `json:"token"`

	// ExpiresAt is the ISO 8601 timestamp when the token expires
	ExpiresAt string `json:"expires_at"`
}

// CreateTaskRequest defines the payload for task submission.
type CreateTaskRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

// ReplyRequest defines the payload for a free-text reply, consumed as a
// deferral reason when a deferral is pending.
type ReplyRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

// TaskResponse is the wire representation of a task.
type TaskResponse struct {
	ID             uuid.UUID  `json:"id"`
	Text           string     `json:"text"`
	Title          string     `json:"title"`
	Category       string     `json:"category"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
	OverdueCount   int        `json:"overdue_count"`
	SnoozeReason   string     `json:"snooze_reason,omitempty"`
}

// TaskListResponse wraps a list of tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// NewTaskResponse converts a domain task to its wire representation.
func NewTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:             task.ID,
		Text:           task.Text,
		Title:          task.Title,
		Category:       string(task.Category),
		Status:         string(task.Status),
		CreatedAt:      task.CreatedAt,
		DueAt:          task.DueAt,
		LastRemindedAt: task.LastRemindedAt,
		OverdueCount:   task.OverdueCount,
		SnoozeReason:   task.SnoozeReason,
	}
}
