package hub_test

import (
	"testing"
	"time"

	"kindred/backend/internal/hub"
	"kindred/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTrackerRegister_CreatesIdleState(t *testing.T) {
	tracker := hub.NewTracker()
	client := newMockClient("user_A")
	now := time.Now()

	state := tracker.Register("user_A", client, now)

	assert.Equal(t, models.StatusIdle, state.Status)
	assert.Equal(t, now, state.LastSeenAt)

	conn, ok := tracker.Conn("user_A")
	assert.True(t, ok)
	assert.Same(t, client, conn.(*MockClient))
}

func TestTrackerRegister_ReusesStateOnReconnect(t *testing.T) {
	tracker := hub.NewTracker()
	now := time.Now()

	first := tracker.Register("user_A", newMockClient("user_A"), now)
	first.Status = models.StatusDisconnected
	first.SessionID = "session-1"

	replacement := newMockClient("user_A")
	second := tracker.Register("user_A", replacement, now.Add(time.Second))

	assert.Same(t, first, second, "the state record survives the reconnect")
	assert.Equal(t, "session-1", second.SessionID)

	conn, _ := tracker.Conn("user_A")
	assert.Same(t, replacement, conn.(*MockClient))
}

func TestTrackerHeartbeat_UpdatesLastSeenOnly(t *testing.T) {
	tracker := hub.NewTracker()
	now := time.Now()
	state := tracker.Register("user_A", newMockClient("user_A"), now)

	later := now.Add(5 * time.Second)
	tracker.Heartbeat("user_A", later)

	assert.Equal(t, later, state.LastSeenAt)
	assert.Equal(t, models.StatusIdle, state.Status)

	tracker.Heartbeat("ghost", later) // unknown user is a no-op
}

func TestTrackerMarkDisconnected_OnlyFromMatched(t *testing.T) {
	tracker := hub.NewTracker()
	now := time.Now()
	state := tracker.Register("user_A", newMockClient("user_A"), now)

	assert.False(t, tracker.MarkDisconnected("user_A", now), "idle users are not supervised")

	state.Status = models.StatusMatched
	assert.True(t, tracker.MarkDisconnected("user_A", now))
	assert.Equal(t, models.StatusDisconnected, state.Status)
	assert.Equal(t, now, state.DisconnectedAt)

	// Already disconnected: no-op again.
	assert.False(t, tracker.MarkDisconnected("user_A", now))
}

func TestTrackerDropConn_KeepsNewerHandle(t *testing.T) {
	tracker := hub.NewTracker()
	now := time.Now()

	stale := newMockClient("user_A")
	tracker.Register("user_A", stale, now)

	fresh := newMockClient("user_A")
	tracker.Register("user_A", fresh, now.Add(time.Second))

	// The old connection's teardown must not evict the replacement.
	tracker.DropConn("user_A", stale)
	conn, ok := tracker.Conn("user_A")
	assert.True(t, ok)
	assert.Same(t, fresh, conn.(*MockClient))

	tracker.DropConn("user_A", fresh)
	_, ok = tracker.Conn("user_A")
	assert.False(t, ok)
}

func TestTrackerForget_RemovesEverything(t *testing.T) {
	tracker := hub.NewTracker()
	tracker.Register("user_A", newMockClient("user_A"), time.Now())

	tracker.Forget("user_A")

	_, ok := tracker.Get("user_A")
	assert.False(t, ok)
	_, ok = tracker.Conn("user_A")
	assert.False(t, ok)
}
