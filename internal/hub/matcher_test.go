package hub_test

import (
	"errors"
	"testing"
	"time"

	"kindred/backend/internal/hub"
	"kindred/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func newTestMatcher(s *MockStorage, maxWait time.Duration) (*hub.Matcher, *hub.Tracker) {
	tracker := hub.NewTracker()
	return hub.NewMatcher(tracker, s, testCatalog(), maxWait), tracker
}

func enroll(t *testing.T, m *hub.Matcher, tracker *hub.Tracker, userID string, interests []string, now time.Time) {
	t.Helper()
	tracker.Register(userID, newMockClient(userID), now)
	assert.NoError(t, m.Enqueue(userID, interests, now))
}

func TestMatcherEnqueue_SetsWaitingState(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	now := time.Now()

	enroll(t, matcher, tracker, "user_A", []string{"Music"}, now)

	state, ok := tracker.Get("user_A")
	assert.True(t, ok)
	assert.Equal(t, models.StatusWaiting, state.Status)
	assert.Equal(t, now, state.EnqueuedAt)
	assert.True(t, matcher.Contains("user_A"))
	storageMock.AssertCalled(t, "AddUserToSearchQueue", "user_A")
}

func TestMatcherEnqueue_RejectsDoubleEnrollment(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	now := time.Now()

	enroll(t, matcher, tracker, "user_A", []string{"Music"}, now)

	err := matcher.Enqueue("user_A", []string{"Art"}, now)
	assert.ErrorIs(t, err, hub.ErrAlreadyQueuedOrMatched)
}

func TestMatcherEnqueue_ValidatesInterests(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	now := time.Now()
	tracker.Register("user_A", newMockClient("user_A"), now)

	tests := []struct {
		name      string
		interests []string
	}{
		{"no interests", nil},
		{"empty interest", []string{""}},
		{"too many interests", []string{"Gaming", "Music", "Art", "Travel", "Cooking", "Books"}},
		{"not in catalog", []string{"Skydiving"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := matcher.Enqueue("user_A", tt.interests, now)
			assert.ErrorIs(t, err, hub.ErrInvalidRequest)

			// Rejected locally, no state change.
			state, _ := tracker.Get("user_A")
			assert.Equal(t, models.StatusIdle, state.Status)
			assert.False(t, matcher.Contains("user_A"))
		})
	}
}

func TestMatcherDequeue_ResetsToIdle(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	now := time.Now()

	enroll(t, matcher, tracker, "user_A", []string{"Music"}, now)
	assert.NoError(t, matcher.Dequeue("user_A"))

	state, _ := tracker.Get("user_A")
	assert.Equal(t, models.StatusIdle, state.Status)
	assert.False(t, matcher.Contains("user_A"))
	storageMock.AssertCalled(t, "RemoveUserFromSearchQueue", "user_A")
}

func TestMatcherDequeue_FailsWhenNotWaiting(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	tracker.Register("user_A", newMockClient("user_A"), time.Now())

	err := matcher.Dequeue("user_A")
	assert.ErrorIs(t, err, hub.ErrNotWaiting)
}

func TestMatcherTick_PairsOnOverlap(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	now := time.Now()

	enroll(t, matcher, tracker, "user_X", []string{"Gaming", "Music"}, now)
	enroll(t, matcher, tracker, "user_Y", []string{"Music", "Art"}, now.Add(time.Millisecond))

	pairs := matcher.Tick(now.Add(time.Second))

	assert.Len(t, pairs, 1)
	assert.Equal(t, "user_X", pairs[0][0].UserID)
	assert.Equal(t, "user_Y", pairs[0][1].UserID)
	assert.Empty(t, matcher.Queue, "both users must leave the waiting set in the same step")
}

func TestMatcherTick_NoSelfMatchAndNoZeroOverlap(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	now := time.Now()

	enroll(t, matcher, tracker, "user_A", []string{"Gaming"}, now)
	enroll(t, matcher, tracker, "user_B", []string{"Books"}, now.Add(time.Millisecond))

	pairs := matcher.Tick(now.Add(time.Second))

	assert.Empty(t, pairs, "disjoint interests must not pair before the wait threshold")
	assert.True(t, matcher.Contains("user_A"))
	assert.True(t, matcher.Contains("user_B"))
}

func TestMatcherTick_PrefersHighestOverlap(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	now := time.Now()

	// user_A arrived first but shares only one interest with user_C;
	// user_B shares two. Overlap count wins over age.
	enroll(t, matcher, tracker, "user_A", []string{"Music"}, now)
	enroll(t, matcher, tracker, "user_B", []string{"Music", "Art"}, now.Add(time.Millisecond))
	enroll(t, matcher, tracker, "user_C", []string{"Music", "Art", "Travel"}, now.Add(2*time.Millisecond))

	pairs := matcher.Tick(now.Add(time.Second))

	assert.Len(t, pairs, 1)
	assert.Equal(t, "user_B", pairs[0][0].UserID)
	assert.Equal(t, "user_C", pairs[0][1].UserID)
	assert.True(t, matcher.Contains("user_A"), "the lower-overlap user stays queued")
}

func TestMatcherTick_TieBreaksByCombinedWait(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	now := time.Now()

	// All pairs share exactly one interest; the two oldest entries have
	// the longest combined wait and must pair first.
	enroll(t, matcher, tracker, "user_old1", []string{"Music"}, now)
	enroll(t, matcher, tracker, "user_old2", []string{"Music"}, now.Add(10*time.Millisecond))
	enroll(t, matcher, tracker, "user_new", []string{"Music"}, now.Add(500*time.Millisecond))

	pairs := matcher.Tick(now.Add(time.Second))

	assert.Len(t, pairs, 1)
	assert.Equal(t, "user_old1", pairs[0][0].UserID)
	assert.Equal(t, "user_old2", pairs[0][1].UserID)
}

func TestMatcherTick_DeterministicForIdenticalInput(t *testing.T) {
	now := time.Now()

	run := func() [2]string {
		matcher, tracker := newTestMatcher(newMockStorage(), time.Minute)
		enroll(t, matcher, tracker, "user_A", []string{"Music"}, now)
		enroll(t, matcher, tracker, "user_B", []string{"Music"}, now)
		enroll(t, matcher, tracker, "user_C", []string{"Music"}, now)
		pairs := matcher.Tick(now.Add(time.Second))
		if len(pairs) != 1 {
			t.Fatalf("expected exactly one pair, got %d", len(pairs))
		}
		return [2]string{pairs[0][0].UserID, pairs[0][1].UserID}
	}

	first := run()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, run(), "identical input order must produce identical pairing")
	}
	// Equal timestamps fall back to arrival order.
	assert.Equal(t, [2]string{"user_A", "user_B"}, first)
}

func TestMatcherTick_StarvationFallback(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, 30*time.Second)
	now := time.Now()

	// Zero overlap between everyone in the queue.
	enroll(t, matcher, tracker, "user_niche", []string{"Books"}, now)
	enroll(t, matcher, tracker, "user_other", []string{"Gaming"}, now.Add(time.Second))

	assert.Empty(t, matcher.Tick(now.Add(10*time.Second)), "threshold not reached yet")

	pairs := matcher.Tick(now.Add(31 * time.Second))
	assert.Len(t, pairs, 1)
	assert.Equal(t, "user_niche", pairs[0][0].UserID, "the globally oldest waiter is paired")
	assert.Equal(t, "user_other", pairs[0][1].UserID)
}

func TestMatcherTick_FormsMultiplePairs(t *testing.T) {
	storageMock := newMockStorage()
	matcher, tracker := newTestMatcher(storageMock, time.Minute)
	now := time.Now()

	enroll(t, matcher, tracker, "user_A", []string{"Music"}, now)
	enroll(t, matcher, tracker, "user_B", []string{"Music"}, now.Add(time.Millisecond))
	enroll(t, matcher, tracker, "user_C", []string{"Gaming"}, now.Add(2*time.Millisecond))
	enroll(t, matcher, tracker, "user_D", []string{"Gaming"}, now.Add(3*time.Millisecond))

	pairs := matcher.Tick(now.Add(time.Second))

	assert.Len(t, pairs, 2)
	assert.Empty(t, matcher.Queue)
}

func TestMatcherEnqueue_UnknownUser(t *testing.T) {
	matcher, _ := newTestMatcher(newMockStorage(), time.Minute)

	err := matcher.Enqueue("ghost", []string{"Music"}, time.Now())
	assert.True(t, errors.Is(err, hub.ErrInvalidRequest))
}
