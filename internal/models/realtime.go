package models

import "time"

// Client -> server event types.
const (
	EventRequestMatch = "request_match"
	EventCancelMatch  = "cancel_match"
	EventMessage      = "message"
	EventTyping       = "typing"
	EventReport       = "report"
	EventLeave        = "leave"
	EventPing         = "ping"
)

// Server -> client event types.
const (
	EventQueued           = "queued"
	EventMatched          = "matched"
	EventPeerTyping       = "peer_typing"
	EventPeerDisconnected = "peer_disconnected"
	EventPeerReconnected  = "peer_reconnected"
	EventSessionEnded     = "session_ended"
	EventError            = "error"
)

// ClientEvent is one JSON object received from a client connection.
// UserID is stamped by the read pump, never trusted from the wire.
type ClientEvent struct {
	UserID    string   `json:"-"`
	Type      string   `json:"type"`
	Interests []string `json:"interests,omitempty" validate:"omitempty,min=1,max=5,dive,required"`
	Content   string   `json:"content,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// ServerEvent is one JSON object pushed to a client connection.
type ServerEvent struct {
	Type            string    `json:"type"`
	SessionID       string    `json:"session_id,omitempty"`
	SenderID        string    `json:"sender_id,omitempty"`
	Content         string    `json:"content,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Code            string    `json:"code,omitempty"`
	SharedInterests []string  `json:"shared_interests,omitempty"`
	Timestamp       time.Time `json:"timestamp,omitempty"`
}

// SearchRequest is one entry in the matchmaking waiting set.
type SearchRequest struct {
	UserID    string
	Interests []string
	// EnqueuedAt orders the queue for the FIFO tie-break.
	EnqueuedAt time.Time
	// Seq breaks ties between requests enqueued at the same instant.
	Seq uint64
}
