package hub

import "kindred/backend/internal/models"

// Client is the interface for one live connection. It abstracts the
// underlying transport, allowing the hub to manage connections uniformly
// (the production implementation is WebSocketClient).
type Client interface {
	// GetUserID returns the anonymous ID of the connected user.
	GetUserID() string

	// GetSendChannel returns the channel the hub pushes outgoing events
	// into. The client's write pump drains it in order; per-direction
	// FIFO delivery depends on this.
	GetSendChannel() chan<- models.ServerEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the connection and its send channel.
	Close()
}
