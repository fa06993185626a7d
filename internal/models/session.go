package models

import "time"

// SessionStatus is the lifecycle state of a chat session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Session end reasons recorded on termination.
const (
	EndReasonPeerLeft        = "peer-left"
	EndReasonPeerTimeout     = "peer-timeout"
	EndReasonPeerUnreachable = "peer-unreachable"
	EndReasonAbandoned       = "abandoned"
	EndReasonServerRestart   = "server-restart"
)

// ChatSession represents a 1-on-1 chat between two users.
// The pair is unordered; each user appears in at most one active session.
type ChatSession struct {
	// ID is the unique session identifier (UUID).
	ID string `gorm:"primaryKey"`
	// User1ID is the anonymous ID of the first participant.
	User1ID string
	// User2ID is the anonymous ID of the second participant.
	User2ID string
	// Status is active until the session is terminated, then ended. Terminal.
	Status SessionStatus
	// StartedAt is the timestamp when the session was created.
	StartedAt time.Time
	// EndedAt is nil while the session is active and set exactly once.
	EndedAt *time.Time
	// EndReason records why the session terminated.
	EndReason string
}

// Has reports whether userID is one of the two participants.
func (s *ChatSession) Has(userID string) bool {
	return s.User1ID == userID || s.User2ID == userID
}

// Peer returns the other participant, or "" if userID is not in the session.
func (s *ChatSession) Peer(userID string) string {
	switch userID {
	case s.User1ID:
		return s.User2ID
	case s.User2ID:
		return s.User1ID
	}
	return ""
}
