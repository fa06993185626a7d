// Package hub is the matchmaking, session-lifecycle and presence engine.
// A single scheduler goroutine (Hub.Run) exclusively owns the presence
// map, the waiting set and the session table; connection goroutines and
// grace timers communicate with it only through channels, so pairing is
// atomic and every termination is observed exactly once.
package hub

import (
	"context"
	"log"
	"time"

	"kindred/backend/internal/catalog"
	"kindred/backend/internal/config"
	"kindred/backend/internal/models"
	"kindred/backend/internal/report"
	"kindred/backend/internal/storage"
)

// Hub is the engine scheduler. All exported channels feed the Run loop.
type Hub struct {
	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan models.ClientEvent
	GraceCh      chan GraceExpiry

	Presence   *Tracker
	Matcher    *Matcher
	Registry   *Registry
	Supervisor *Supervisor
	Relay      *Relay

	Storage storage.Storage
	Reports *report.Service

	cfg config.Engine
}

// NewHub wires the engine components around a storage service and the
// interest catalog snapshot.
func NewHub(s storage.Storage, cat *catalog.Catalog, reports *report.Service, cfg config.Engine) *Hub {
	tracker := NewTracker()
	registry := NewRegistry(s)
	graceCh := make(chan GraceExpiry, 16)

	return &Hub{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan models.ClientEvent),
		GraceCh:      graceCh,

		Presence:   tracker,
		Matcher:    NewMatcher(tracker, s, cat, cfg.MaxQueueWait),
		Registry:   registry,
		Supervisor: NewSupervisor(tracker, cfg.GracePeriod, graceCh),
		Relay:      NewRelay(tracker, registry, cfg.PeerBufferSize),

		Storage: s,
		Reports: reports,
		cfg:     cfg,
	}
}

// Run is the scheduler loop. It must be the only goroutine that touches
// the presence map, waiting set and session table.
func (h *Hub) Run(ctx context.Context) {
	log.Println("Hub scheduler started.")

	ticker := time.NewTicker(h.cfg.MatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Hub scheduler stopped.")
			return
		case client := <-h.RegisterCh:
			h.handleRegister(client, time.Now())
		case client := <-h.UnregisterCh:
			h.handleUnregister(client, time.Now())
		case ev := <-h.IncomingCh:
			h.handleEvent(ev, time.Now())
		case expiry := <-h.GraceCh:
			h.handleGraceExpiry(expiry, time.Now())
		case now := <-ticker.C:
			h.runPairing(now)
		}
	}
}

// RecoverStaleSessions closes any session rows left active by a previous
// run. The engine state is in-memory; a restarted process cannot resume
// conversations, so the rows are terminated rather than resurrected.
func (h *Hub) RecoverStaleSessions() {
	closed, err := h.Storage.CloseAllActiveSessions(models.EndReasonServerRestart)
	if err != nil {
		log.Printf("ERROR: failed to close stale sessions: %v", err)
		return
	}
	if closed > 0 {
		log.Printf("Closed %d stale sessions from a previous run.", closed)
	}
}

// handleRegister tracks a new connection, or restores a session when a
// disconnected participant returns inside the grace period.
func (h *Hub) handleRegister(client Client, now time.Time) {
	userID := client.GetUserID()
	state := h.Presence.Register(userID, client, now)

	if state.Status == models.StatusDisconnected && state.SessionID != "" {
		h.handleReconnect(userID, state.SessionID, now)
		return
	}
	log.Printf("Client %s connected.", userID)
}

func (h *Hub) handleReconnect(userID, sessionID string, now time.Time) {
	if !h.Supervisor.OnReconnect(userID, now) {
		return
	}
	log.Printf("Client %s reconnected to session %s.", userID, sessionID)

	// The returning client resumes its session, the peer learns the
	// conversation is live again, and anything sent meanwhile flushes.
	h.notify(userID, models.ServerEvent{
		Type:      models.EventMatched,
		SessionID: sessionID,
		Timestamp: now,
	})
	if peerID, err := h.Registry.PeerOf(sessionID, userID); err == nil {
		h.notify(peerID, models.ServerEvent{
			Type:      models.EventPeerReconnected,
			SessionID: sessionID,
			Timestamp: now,
		})
	}
	h.Relay.Flush(userID)
}

// handleUnregister reacts to a dropped connection according to where the
// user was in the lifecycle.
func (h *Hub) handleUnregister(client Client, now time.Time) {
	userID := client.GetUserID()
	h.Presence.DropConn(userID, client)

	state, ok := h.Presence.Get(userID)
	if !ok {
		return
	}
	// A reconnect may already have replaced this connection.
	if _, live := h.Presence.Conn(userID); live {
		return
	}

	switch state.Status {
	case models.StatusWaiting:
		// A match can no longer be delivered; drop out of the queue.
		_ = h.Matcher.Dequeue(userID)
		h.Presence.Forget(userID)
		log.Printf("Waiting client %s disconnected, dequeued.", userID)

	case models.StatusMatched:
		sessionID := state.SessionID
		peerID, err := h.Registry.PeerOf(sessionID, userID)
		if err != nil {
			h.Presence.Forget(userID)
			return
		}
		if peerState, ok := h.Presence.Get(peerID); ok && peerState.Status == models.StatusDisconnected {
			// Nobody is left to wait for; end without grace.
			h.endSession(sessionID, models.EndReasonAbandoned, now)
			return
		}
		h.Supervisor.OnDisconnect(userID, now)
		h.notify(peerID, models.ServerEvent{
			Type:      models.EventPeerDisconnected,
			SessionID: sessionID,
			Timestamp: now,
		})
		log.Printf("Client %s disconnected, grace timer running.", userID)

	case models.StatusIdle:
		h.Presence.Forget(userID)
	}
}

// handleEvent dispatches one client event.
func (h *Hub) handleEvent(ev models.ClientEvent, now time.Time) {
	switch ev.Type {
	case models.EventRequestMatch:
		h.handleRequestMatch(ev, now)
	case models.EventCancelMatch:
		if err := h.Matcher.Dequeue(ev.UserID); err != nil {
			h.notifyError(ev.UserID, "not_waiting", err)
		}
	case models.EventMessage:
		h.handleMessage(ev, now)
	case models.EventTyping:
		h.Relay.Typing(ev.UserID)
	case models.EventReport:
		h.handleReport(ev)
	case models.EventLeave:
		if state, ok := h.Presence.Get(ev.UserID); ok && state.InSession() {
			// Explicit leave bypasses the grace period.
			h.endSession(state.SessionID, models.EndReasonPeerLeft, now)
		}
	case models.EventPing:
		h.Presence.Heartbeat(ev.UserID, now)
	default:
		h.notifyError(ev.UserID, "unknown_event", ErrInvalidRequest)
	}
}

func (h *Hub) handleRequestMatch(ev models.ClientEvent, now time.Time) {
	banned, err := h.Storage.IsUserBanned(ev.UserID)
	if err != nil {
		log.Printf("WARNING: ban check failed for %s: %v", ev.UserID, err)
	}
	if banned {
		h.notifyError(ev.UserID, "banned", ErrUserBanned)
		return
	}

	if err := h.Matcher.Enqueue(ev.UserID, ev.Interests, now); err != nil {
		h.notifyError(ev.UserID, "enqueue_rejected", err)
		return
	}
	if err := h.Storage.EnsureUser(ev.UserID, ev.Interests); err != nil {
		log.Printf("WARNING: failed to persist user %s: %v", ev.UserID, err)
	}

	h.notify(ev.UserID, models.ServerEvent{Type: models.EventQueued, Timestamp: now})
	h.runPairing(now)
}

func (h *Hub) handleMessage(ev models.ClientEvent, now time.Time) {
	err := h.Relay.Send(ev.UserID, ev.Content, now)
	if err == nil {
		return
	}
	if err == ErrPeerUnreachable {
		// The peer handle is gone entirely, not merely in the grace
		// period; surface it as a termination.
		if state, ok := h.Presence.Get(ev.UserID); ok && state.SessionID != "" {
			h.endSession(state.SessionID, models.EndReasonPeerUnreachable, now)
		}
		return
	}
	h.notifyError(ev.UserID, "no_active_session", err)
}

func (h *Hub) handleReport(ev models.ClientEvent) {
	if h.Reports == nil {
		return
	}
	state, ok := h.Presence.Get(ev.UserID)
	if !ok || !state.InSession() {
		h.notifyError(ev.UserID, "no_active_session", ErrNoActiveSession)
		return
	}
	session, ok := h.Registry.Get(state.SessionID)
	if !ok {
		return
	}
	rep := &models.Report{
		ReporterID: ev.UserID,
		TargetID:   session.Peer(ev.UserID),
		SessionID:  session.ID,
		Severity:   ev.Reason,
	}
	if err := h.Reports.HandleReport(rep); err != nil {
		log.Printf("ERROR: failed to handle report from %s: %v", ev.UserID, err)
	}
}

func (h *Hub) handleGraceExpiry(expiry GraceExpiry, now time.Time) {
	if !h.Supervisor.Expired(expiry) {
		return // stale timer, the user reconnected in time
	}
	state, ok := h.Presence.Get(expiry.UserID)
	if !ok || state.SessionID == "" {
		return
	}
	h.endSession(state.SessionID, models.EndReasonPeerTimeout, now)
}

// runPairing forms every pair the waiting set currently allows. Session
// creation and both status transitions happen here, in one scheduling
// step, so no observer can see one user paired and the other waiting.
func (h *Hub) runPairing(now time.Time) {
	for _, pair := range h.Matcher.Tick(now) {
		a, b := pair[0], pair[1]
		session := h.Registry.Create(a.UserID, b.UserID, now)
		shared := sharedInterests(a.Interests, b.Interests)

		for _, userID := range []string{a.UserID, b.UserID} {
			if state, ok := h.Presence.Get(userID); ok {
				state.Status = models.StatusMatched
				state.SessionID = session.ID
			}
			h.notify(userID, models.ServerEvent{
				Type:            models.EventMatched,
				SessionID:       session.ID,
				SharedInterests: shared,
				Timestamp:       now,
			})
		}
		log.Printf("Match found: %s and %s in session %s (%d shared interests)",
			a.UserID, b.UserID, session.ID, len(shared))
	}
}

// endSession terminates a session once, clears both participants and
// notifies whoever is still connected. Safe to call from racing paths;
// only the first call observes Registry.End returning true.
func (h *Hub) endSession(sessionID, reason string, now time.Time) {
	session, ok := h.Registry.Get(sessionID)
	if !ok {
		return
	}
	if !h.Registry.End(sessionID, reason, now) {
		return // already ended, notification already sent
	}

	for _, userID := range []string{session.User1ID, session.User2ID} {
		h.Supervisor.Cancel(userID)
		h.Relay.Discard(userID)

		state, ok := h.Presence.Get(userID)
		if !ok {
			continue
		}
		state.SessionID = ""
		state.Interests = nil

		if _, live := h.Presence.Conn(userID); live {
			state.Status = models.StatusIdle
			h.notify(userID, models.ServerEvent{
				Type:      models.EventSessionEnded,
				SessionID: sessionID,
				Reason:    reason,
				Timestamp: now,
			})
		} else {
			// The client never came back; nothing left to track.
			h.Presence.Forget(userID)
		}
	}
	h.Registry.Drop(sessionID)
}

// notify pushes an event to a connected user without ever blocking the
// scheduler.
func (h *Hub) notify(userID string, ev models.ServerEvent) {
	conn, ok := h.Presence.Conn(userID)
	if !ok {
		return
	}
	select {
	case conn.GetSendChannel() <- ev:
	default:
		log.Printf("WARNING: send channel full for %s, dropping %s", userID, ev.Type)
	}
}

func (h *Hub) notifyError(userID, code string, err error) {
	h.notify(userID, models.ServerEvent{
		Type:    models.EventError,
		Code:    code,
		Content: err.Error(),
	})
}
