package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_DeferralSlot(t *testing.T) {
	t.Parallel()

	t.Run("consume returns the task and clears the slot", func(t *testing.T) {
		t.Parallel()

		store := NewStore(0, 0)
		taskID := uuid.New()

		store.BeginDeferral(42, taskID)

		got, ok := store.ConsumeDeferral(42)
		require.True(t, ok)
		assert.Equal(t, taskID, got)

		// Slot is single-shot.
		_, ok = store.ConsumeDeferral(42)
		assert.False(t, ok)
	})

	t.Run("no slot open", func(t *testing.T) {
		t.Parallel()

		store := NewStore(0, 0)
		_, ok := store.ConsumeDeferral(42)
		assert.False(t, ok)
	})

	t.Run("newer deferral overwrites the previous slot", func(t *testing.T) {
		t.Parallel()

		store := NewStore(0, 0)
		first := uuid.New()
		second := uuid.New()

		store.BeginDeferral(42, first)
		store.BeginDeferral(42, second)

		got, ok := store.ConsumeDeferral(42)
		require.True(t, ok)
		assert.Equal(t, second, got, "at most one outstanding reason request per user")
	})

	t.Run("cancel abandons the slot without a reason", func(t *testing.T) {
		t.Parallel()

		store := NewStore(0, 0)
		store.BeginDeferral(42, uuid.New())
		store.CancelDeferral(42)

		_, ok := store.ConsumeDeferral(42)
		assert.False(t, ok)
	})

	t.Run("slots are keyed by user", func(t *testing.T) {
		t.Parallel()

		store := NewStore(0, 0)
		taskID := uuid.New()
		store.BeginDeferral(42, taskID)

		_, ok := store.ConsumeDeferral(43)
		assert.False(t, ok, "another user's message must not consume the slot")

		got, ok := store.ConsumeDeferral(42)
		require.True(t, ok)
		assert.Equal(t, taskID, got)
	})
}

func TestStore_History(t *testing.T) {
	t.Parallel()

	t.Run("append and read back", func(t *testing.T) {
		t.Parallel()

		store := NewStore(0, 0)
		store.AppendTurn(42, "hello", "hi there")
		store.AppendTurn(42, "how are you", "busy")

		history := store.History(42)
		require.Len(t, history, 2)
		assert.Equal(t, "hello", history[0].User)
		assert.Equal(t, "busy", history[1].Assistant)
	})

	t.Run("history is bounded", func(t *testing.T) {
		t.Parallel()

		store := NewStore(3, 0)
		for i := 0; i < 10; i++ {
			store.AppendTurn(42, fmt.Sprintf("msg %d", i), "ok")
		}

		history := store.History(42)
		require.Len(t, history, 3)
		assert.Equal(t, "msg 7", history[0].User, "oldest turns are evicted first")
		assert.Equal(t, "msg 9", history[2].User)
	})

	t.Run("clear drops history and slot", func(t *testing.T) {
		t.Parallel()

		store := NewStore(0, 0)
		store.AppendTurn(42, "hello", "hi")
		store.BeginDeferral(42, uuid.New())

		store.ClearHistory(42)

		assert.Empty(t, store.History(42))
		_, ok := store.ConsumeDeferral(42)
		assert.False(t, ok)
	})
}

func TestStore_TTLEviction(t *testing.T) {
	t.Parallel()

	store := NewStore(0, time.Hour)
	current := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return current }

	store.BeginDeferral(42, uuid.New())
	require.Equal(t, 1, store.Len())

	// Two hours later the idle session has expired; the slot is gone.
	current = current.Add(2 * time.Hour)
	_, ok := store.ConsumeDeferral(42)
	assert.False(t, ok, "expired session must not yield a pending slot")
}
