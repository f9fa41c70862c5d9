package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler collects handled events and optionally fails.
type recordingHandler struct {
	mu     sync.Mutex
	events []*TaskEvent
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestInMemoryEventEmitter_EmitEvent(t *testing.T) {
	t.Parallel()

	t.Run("dispatches to all handlers", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(testLogger())
		h1 := &recordingHandler{}
		h2 := &recordingHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)

		event, err := NewTaskEvent(EventTaskCreated, uuid.New(), map[string]string{"category": "work"})
		require.NoError(t, err)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Len(t, h1.events, 1)
		assert.Len(t, h2.events, 1)
	})

	t.Run("failing handler does not block others", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(testLogger())
		failing := &recordingHandler{err: errors.New("handler exploded")}
		healthy := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(healthy)

		event, err := NewTaskEvent(EventTaskAcknowledged, uuid.New(), nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.Error(t, err)
		assert.Len(t, healthy.events, 1, "healthy handler should still receive the event")
	})

	t.Run("no handlers is not an error", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(testLogger())
		event, err := NewTaskEvent(EventTaskReminded, uuid.New(), nil)
		require.NoError(t, err)
		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})
}

func TestTaskEvent_UnmarshalPayload(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	event, err := NewTaskEvent(EventTaskDeferred, taskID, map[string]string{"reason": "was in a meeting"})
	require.NoError(t, err)

	var payload struct {
		Reason string `json:"reason"`
	}
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "was in a meeting", payload.Reason)
	assert.Equal(t, taskID, event.TaskID)
}
