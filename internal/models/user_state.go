package models

import "time"

// UserStatus is the lifecycle state of a user known to the engine.
type UserStatus string

const (
	StatusIdle         UserStatus = "idle"
	StatusWaiting      UserStatus = "waiting"
	StatusMatched      UserStatus = "matched"
	StatusDisconnected UserStatus = "disconnected"
)

// UserState is the in-memory presence record for one user. It is owned
// exclusively by the hub scheduler goroutine and must never be shared
// with connection goroutines.
type UserState struct {
	// UserID is the anonymous ID, stable for the life of the connection.
	UserID string
	// Status tracks where the user is in the waiting/matched cycle.
	Status UserStatus
	// Interests are the tags declared at enrollment, 1-5 entries,
	// immutable until the user returns to idle.
	Interests []string
	// SessionID is set while Status is matched or disconnected.
	SessionID string
	// EnqueuedAt is when the user entered the waiting set (FIFO tie-break).
	EnqueuedAt time.Time
	// LastSeenAt is updated on every liveness signal.
	LastSeenAt time.Time
	// DisconnectedAt is when the current disconnect was observed.
	DisconnectedAt time.Time
	// DisconnectGen increases on every disconnect and reconnect, so a
	// grace timer armed for an older disconnect can be ignored.
	DisconnectGen uint64
}

// InSession reports whether the user currently belongs to a live session.
func (s *UserState) InSession() bool {
	return s.SessionID != "" && (s.Status == StatusMatched || s.Status == StatusDisconnected)
}
