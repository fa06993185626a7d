package hub

import (
	"time"

	"kindred/backend/internal/models"
)

// GraceExpiry is delivered into the scheduler when a grace timer fires.
// Gen pins it to one particular disconnect: if the user reconnected (and
// possibly disconnected again) in the meantime, the generation no longer
// matches and the expiry is a provable no-op.
type GraceExpiry struct {
	UserID string
	Gen    uint64
}

// Supervisor coordinates the per-participant reconnection state machine:
// connected -> disconnected(grace timer) -> connected again, or timeout.
// Timers fire into the hub channel; they never mutate shared state.
type Supervisor struct {
	Tracker *Tracker
	Grace   time.Duration

	expiryCh chan<- GraceExpiry
	timers   map[string]*time.Timer
}

// NewSupervisor creates a Supervisor that reports grace expiries on
// expiryCh (the hub scheduler reads it).
func NewSupervisor(tracker *Tracker, grace time.Duration, expiryCh chan<- GraceExpiry) *Supervisor {
	return &Supervisor{
		Tracker:  tracker,
		Grace:    grace,
		expiryCh: expiryCh,
		timers:   make(map[string]*time.Timer),
	}
}

// OnDisconnect marks a matched user disconnected and arms the grace
// timer. Returns false if the user was not matched (nothing to supervise).
func (s *Supervisor) OnDisconnect(userID string, now time.Time) bool {
	state, ok := s.Tracker.Get(userID)
	if !ok || state.Status != models.StatusMatched {
		return false
	}

	s.Tracker.MarkDisconnected(userID, now)
	state.DisconnectGen++
	gen := state.DisconnectGen

	s.stopTimer(userID)
	s.timers[userID] = time.AfterFunc(s.Grace, func() {
		s.expiryCh <- GraceExpiry{UserID: userID, Gen: gen}
	})
	return true
}

// OnReconnect cancels the pending grace timer and restores matched
// status. Bumping the generation makes any expiry already in flight
// stale. Returns false if the user was not in the grace window.
func (s *Supervisor) OnReconnect(userID string, now time.Time) bool {
	state, ok := s.Tracker.Get(userID)
	if !ok || state.Status != models.StatusDisconnected {
		return false
	}

	s.stopTimer(userID)
	state.DisconnectGen++
	state.Status = models.StatusMatched
	state.LastSeenAt = now
	return true
}

// Expired reports whether a delivered expiry is still current: the user
// is still disconnected and no reconnect has bumped the generation.
func (s *Supervisor) Expired(e GraceExpiry) bool {
	state, ok := s.Tracker.Get(e.UserID)
	if !ok {
		return false
	}
	return state.Status == models.StatusDisconnected && state.DisconnectGen == e.Gen
}

// Cancel discards any pending timer without a state transition. Used when
// the session terminates through another path.
func (s *Supervisor) Cancel(userID string) {
	s.stopTimer(userID)
}

func (s *Supervisor) stopTimer(userID string) {
	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
		delete(s.timers, userID)
	}
}
