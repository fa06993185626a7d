package hub

import "errors"

// Error taxonomy surfaced to clients. Matchmaking and session errors are
// recoverable and reported to the originating client only; they never
// touch other users' state.
var (
	// ErrInvalidRequest rejects a malformed enrollment (bad interest
	// count or an interest outside the catalog). No state change.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAlreadyQueuedOrMatched rejects enrollment while the user is
	// already waiting or inside a session.
	ErrAlreadyQueuedOrMatched = errors.New("already queued or matched")

	// ErrNotWaiting rejects a cancel for a user who is not in the queue.
	ErrNotWaiting = errors.New("user is not waiting")

	// ErrNoSuchSession indicates a stale session reference.
	ErrNoSuchSession = errors.New("no such session")

	// ErrUserNotInSession indicates the user is not one of the two
	// session participants.
	ErrUserNotInSession = errors.New("user not in session")

	// ErrNoActiveSession rejects a message from a sender with no
	// matched session.
	ErrNoActiveSession = errors.New("no active session")

	// ErrPeerUnreachable means the peer's connection handle is gone
	// entirely, not merely inside the grace period.
	ErrPeerUnreachable = errors.New("peer unreachable")

	// ErrUserBanned rejects enrollment for a banned user.
	ErrUserBanned = errors.New("user is banned")
)
