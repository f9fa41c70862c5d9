// Package session holds the short-lived per-user conversational state:
// the pending-reason slot set when a user starts a deferral, and a
// bounded chat history for free-form conversation. State is kept in an
// explicit keyed store with size and age caps rather than ad-hoc shared
// maps, so it can be reasoned about and swapped for an external store.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default caps for the session store.
const (
	// DefaultMaxHistoryTurns bounds the chat history kept per user.
	DefaultMaxHistoryTurns = 20

	// DefaultTTL is how long an idle session survives before eviction.
	DefaultTTL = 24 * time.Hour
)

// Turn is a single user/assistant exchange in the chat history.
type Turn struct {
	User      string
	Assistant string
	At        time.Time
}

// userSession is the per-user state bundle.
type userSession struct {
	pendingTaskID uuid.UUID
	hasPending    bool
	history       []Turn
	lastActive    time.Time
}

// Store is an in-memory keyed session store. All operations are safe for
// concurrent use; each is a single critical section, so duplicate or
// rapid messages from the same user cannot observe a half-updated slot.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*userSession
	maxTurns int
	ttl      time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewStore creates a session store with the given history cap and idle
// TTL. Non-positive values fall back to the defaults.
func NewStore(maxTurns int, ttl time.Duration) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxHistoryTurns
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[int64]*userSession),
		maxTurns: maxTurns,
		ttl:      ttl,
		now:      time.Now,
	}
}

// session returns the live session for userID, creating it if needed and
// discarding it first if it has expired. Caller must hold s.mu.
func (s *Store) session(userID int64) *userSession {
	now := s.now()
	sess, ok := s.sessions[userID]
	if ok && now.Sub(sess.lastActive) > s.ttl {
		delete(s.sessions, userID)
		ok = false
	}
	if !ok {
		sess = &userSession{}
		s.sessions[userID] = sess
	}
	sess.lastActive = now
	return sess
}

// BeginDeferral opens the pending-reason slot for userID, pointing at
// taskID. Any previously open slot for that user is overwritten: a user
// has at most one outstanding reason request at a time.
func (s *Store) BeginDeferral(userID int64, taskID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(userID)
	sess.pendingTaskID = taskID
	sess.hasPending = true
}

// ConsumeDeferral atomically reads and clears the pending-reason slot for
// userID. The second return value reports whether a slot was open; when
// false, the caller should treat the triggering message as ordinary input.
func (s *Store) ConsumeDeferral(userID int64) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(userID)
	if !sess.hasPending {
		return uuid.Nil, false
	}
	taskID := sess.pendingTaskID
	sess.pendingTaskID = uuid.Nil
	sess.hasPending = false
	return taskID, true
}

// CancelDeferral abandons any open pending-reason slot for userID without
// recording a reason.
func (s *Store) CancelDeferral(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(userID)
	sess.pendingTaskID = uuid.Nil
	sess.hasPending = false
}

// AppendTurn records a chat exchange for userID, trimming the history to
// the configured cap.
func (s *Store) AppendTurn(userID int64, user, assistant string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(userID)
	sess.history = append(sess.history, Turn{
		User:      user,
		Assistant: assistant,
		At:        s.now(),
	})
	if len(sess.history) > s.maxTurns {
		sess.history = sess.history[len(sess.history)-s.maxTurns:]
	}
}

// History returns a copy of userID's chat history, oldest first.
func (s *Store) History(userID int64) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(userID)
	out := make([]Turn, len(sess.history))
	copy(out, sess.history)
	return out
}

// ClearHistory drops userID's chat history. The pending-reason slot, if
// any, is cleared with it: an explicit reset abandons the deferral too.
func (s *Store) ClearHistory(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}

// Len reports the number of live sessions. Intended for tests and metrics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
