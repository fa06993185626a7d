package hub

import (
	"time"

	"kindred/backend/internal/models"
)

// Tracker is the presence map: per-user liveness state plus the live
// connection handle. It is owned exclusively by the hub scheduler
// goroutine and is deliberately not self-locking.
type Tracker struct {
	states map[string]*models.UserState
	conns  map[string]Client
}

// NewTracker creates an empty presence tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]*models.UserState),
		conns:  make(map[string]Client),
	}
}

// Register creates the user's state if absent (initial status idle) and
// stores the live connection handle. Re-registering an already-tracked
// user (reconnection) swaps the handle; the caller decides whether the
// grace period still holds.
func (t *Tracker) Register(userID string, conn Client, now time.Time) *models.UserState {
	state, ok := t.states[userID]
	if !ok {
		state = &models.UserState{
			UserID: userID,
			Status: models.StatusIdle,
		}
		t.states[userID] = state
	}
	state.LastSeenAt = now
	t.conns[userID] = conn
	return state
}

// Heartbeat updates LastSeenAt. No other side effect.
func (t *Tracker) Heartbeat(userID string, now time.Time) {
	if state, ok := t.states[userID]; ok {
		state.LastSeenAt = now
	}
}

// MarkDisconnected transitions matched -> disconnected and records the
// disconnect timestamp. It is a no-op for every other status and never
// removes the user. Returns true if the transition happened.
func (t *Tracker) MarkDisconnected(userID string, now time.Time) bool {
	state, ok := t.states[userID]
	if !ok || state.Status != models.StatusMatched {
		return false
	}
	state.Status = models.StatusDisconnected
	state.DisconnectedAt = now
	return true
}

// DropConn forgets the connection handle but keeps the state, so a
// disconnected participant can still be the target of buffered delivery.
func (t *Tracker) DropConn(userID string, conn Client) {
	// A reconnect may already have replaced the handle; only drop our own.
	if current, ok := t.conns[userID]; ok && current == conn {
		delete(t.conns, userID)
	}
}

// Forget deletes the record entirely. Used only after a session has fully
// ended and the client has not returned.
func (t *Tracker) Forget(userID string) {
	delete(t.states, userID)
	delete(t.conns, userID)
}

// Get returns the user's state, or false when the user is unknown.
func (t *Tracker) Get(userID string) (*models.UserState, bool) {
	state, ok := t.states[userID]
	return state, ok
}

// Conn returns the live connection handle, or false when there is none.
func (t *Tracker) Conn(userID string) (Client, bool) {
	conn, ok := t.conns[userID]
	return conn, ok
}
