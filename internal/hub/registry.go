package hub

import (
	"log"
	"time"

	"kindred/backend/internal/models"
	"kindred/backend/internal/storage"

	"github.com/google/uuid"
)

// Registry owns the canonical session table: the authoritative mapping
// from a session to its two participants. Owned by the hub scheduler.
type Registry struct {
	Storage  storage.Storage
	sessions map[string]*models.ChatSession
}

// NewRegistry creates an empty session registry.
func NewRegistry(s storage.Storage) *Registry {
	return &Registry{
		Storage:  s,
		sessions: make(map[string]*models.ChatSession),
	}
}

// Create opens a new active session for the pair and persists it.
// Invoked only from the pairing step, in the same scheduling step that
// marks both users matched.
func (r *Registry) Create(user1ID, user2ID string, now time.Time) *models.ChatSession {
	session := &models.ChatSession{
		ID:        uuid.New().String(),
		User1ID:   user1ID,
		User2ID:   user2ID,
		Status:    models.SessionActive,
		StartedAt: now,
	}
	r.sessions[session.ID] = session

	if err := r.Storage.SaveSession(session); err != nil {
		// In-memory state stays authoritative; the row is for recovery
		// and operator visibility.
		log.Printf("ERROR: failed to persist session %s: %v", session.ID, err)
	}
	return session
}

// Get returns the session, or false when the ID is unknown.
func (r *Registry) Get(sessionID string) (*models.ChatSession, bool) {
	session, ok := r.sessions[sessionID]
	return session, ok
}

// End terminates the session. It is idempotent in effect: the first call
// marks the session ended and returns true; every later call is a no-op
// returning false, so downstream listeners observe exactly one
// termination per session even when the relay's peer-gone detection races
// the supervisor's grace expiry.
func (r *Registry) End(sessionID, reason string, now time.Time) bool {
	session, ok := r.sessions[sessionID]
	if !ok || session.Status == models.SessionEnded {
		return false
	}

	session.Status = models.SessionEnded
	endedAt := now
	session.EndedAt = &endedAt
	session.EndReason = reason

	if err := r.Storage.CloseSession(sessionID, reason); err != nil {
		log.Printf("ERROR: failed to close session %s: %v", sessionID, err)
	}
	log.Printf("Session %s ended (%s)", sessionID, reason)
	return true
}

// PeerOf resolves the other participant of an active session.
func (r *Registry) PeerOf(sessionID, userID string) (string, error) {
	session, ok := r.sessions[sessionID]
	if !ok || session.Status == models.SessionEnded {
		return "", ErrNoSuchSession
	}
	peer := session.Peer(userID)
	if peer == "" {
		return "", ErrUserNotInSession
	}
	return peer, nil
}

// Drop removes an ended session from the table once both participants
// have been dealt with. Active sessions are never dropped.
func (r *Registry) Drop(sessionID string) {
	if session, ok := r.sessions[sessionID]; ok && session.Status == models.SessionEnded {
		delete(r.sessions, sessionID)
	}
}
