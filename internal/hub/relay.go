package hub

import (
	"log"
	"time"

	"kindred/backend/internal/models"
)

// Relay forwards messages between the two participants of a session.
// It is stateless beyond the bounded per-user buffers kept for peers
// inside the grace period.
type Relay struct {
	Tracker  *Tracker
	Registry *Registry

	// BufferCap bounds the messages held for a disconnected peer;
	// anything beyond it is dropped rather than growing unbounded.
	BufferCap int

	buffers map[string][]models.ServerEvent
}

// NewRelay creates a Relay with the given peer-buffer bound.
func NewRelay(tracker *Tracker, registry *Registry, bufferCap int) *Relay {
	return &Relay{
		Tracker:   tracker,
		Registry:  registry,
		BufferCap: bufferCap,
		buffers:   make(map[string][]models.ServerEvent),
	}
}

// Send forwards a chat message from the sender to their session peer.
// Messages from one sender reach the peer in the order sent.
func (r *Relay) Send(fromID, content string, now time.Time) error {
	peerID, sessionID, err := r.resolvePeer(fromID)
	if err != nil {
		return err
	}

	return r.deliver(peerID, models.ServerEvent{
		Type:      models.EventMessage,
		SessionID: sessionID,
		SenderID:  fromID,
		Content:   content,
		Timestamp: now,
	}, true)
}

// Typing forwards a typing indicator to the peer. Indicators are
// transient: a disconnected peer never sees them, and failure to deliver
// is not an error worth surfacing.
func (r *Relay) Typing(fromID string) {
	peerID, sessionID, err := r.resolvePeer(fromID)
	if err != nil {
		return
	}
	_ = r.deliver(peerID, models.ServerEvent{
		Type:      models.EventPeerTyping,
		SessionID: sessionID,
	}, false)
}

// resolvePeer maps a sender to their session peer via the presence map
// and the session registry.
func (r *Relay) resolvePeer(fromID string) (peerID, sessionID string, err error) {
	state, ok := r.Tracker.Get(fromID)
	if !ok || state.Status != models.StatusMatched || state.SessionID == "" {
		return "", "", ErrNoActiveSession
	}

	peerID, err = r.Registry.PeerOf(state.SessionID, fromID)
	if err != nil {
		return "", "", ErrNoActiveSession
	}
	return peerID, state.SessionID, nil
}

// deliver pushes an event to a user: straight to the connection when
// connected, into the bounded buffer when inside the grace period.
func (r *Relay) deliver(userID string, ev models.ServerEvent, buffer bool) error {
	state, ok := r.Tracker.Get(userID)
	if !ok {
		return ErrPeerUnreachable
	}

	switch state.Status {
	case models.StatusMatched:
		conn, ok := r.Tracker.Conn(userID)
		if !ok {
			return ErrPeerUnreachable
		}
		select {
		case conn.GetSendChannel() <- ev:
		default:
			// The write pump is not draining; dropping beats blocking
			// the scheduler.
			log.Printf("WARNING: send channel full for %s, dropping %s", userID, ev.Type)
		}
		return nil

	case models.StatusDisconnected:
		if !buffer {
			return nil
		}
		queued := r.buffers[userID]
		if len(queued) >= r.BufferCap {
			log.Printf("WARNING: peer buffer full for %s, dropping message", userID)
			return nil
		}
		r.buffers[userID] = append(queued, ev)
		return nil
	}
	return ErrPeerUnreachable
}

// Flush replays the messages buffered while the user was disconnected,
// in original order. Called on reconnection.
func (r *Relay) Flush(userID string) {
	queued := r.buffers[userID]
	delete(r.buffers, userID)

	conn, ok := r.Tracker.Conn(userID)
	if !ok {
		return
	}
	for _, ev := range queued {
		select {
		case conn.GetSendChannel() <- ev:
		default:
			log.Printf("WARNING: dropping buffered message for %s on flush", userID)
			return
		}
	}
}

// Discard drops any buffered messages for the user. Called when their
// session ends before they return.
func (r *Relay) Discard(userID string) {
	delete(r.buffers, userID)
}

// Buffered returns how many messages are held for the user.
func (r *Relay) Buffered(userID string) int {
	return len(r.buffers[userID])
}
