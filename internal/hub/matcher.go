package hub

import (
	"fmt"
	"log"
	"sort"
	"time"

	"kindred/backend/internal/catalog"
	"kindred/backend/internal/models"
	"kindred/backend/internal/storage"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// enrollment carries the declared interests through struct validation.
type enrollment struct {
	Interests []string `validate:"min=1,max=5,dive,required"`
}

// Matcher owns the waiting set and the pairing algorithm. Like the
// Tracker it is not self-locking; only the hub scheduler touches it.
type Matcher struct {
	Tracker *Tracker
	Storage storage.Storage
	Catalog *catalog.Catalog

	// Queue is the waiting set, keyed by user ID for O(1) removal.
	// Ordering comes from EnqueuedAt plus the Seq counter.
	Queue map[string]models.SearchRequest

	// MaxWait is the starvation threshold for zero-overlap pairing.
	MaxWait time.Duration

	seq uint64
}

// NewMatcher creates a Matcher over the given waiting-set dependencies.
func NewMatcher(tracker *Tracker, s storage.Storage, cat *catalog.Catalog, maxWait time.Duration) *Matcher {
	return &Matcher{
		Tracker: tracker,
		Storage: s,
		Catalog: cat,
		Queue:   make(map[string]models.SearchRequest),
		MaxWait: maxWait,
	}
}

// Enqueue enrolls a user into the waiting set. The user must be tracked
// and idle (or disconnected with no surviving session); interests must be
// 1-5 members of the current catalog.
func (m *Matcher) Enqueue(userID string, interests []string, now time.Time) error {
	state, ok := m.Tracker.Get(userID)
	if !ok {
		return ErrInvalidRequest
	}
	if state.Status == models.StatusWaiting || state.InSession() {
		return ErrAlreadyQueuedOrMatched
	}

	if err := validate.Struct(enrollment{Interests: interests}); err != nil {
		return fmt.Errorf("%w: %d interests (want 1-5)", ErrInvalidRequest, len(interests))
	}
	if !m.Catalog.ContainsAll(interests) {
		return fmt.Errorf("%w: interest not in catalog", ErrInvalidRequest)
	}

	m.seq++
	state.Status = models.StatusWaiting
	state.Interests = interests
	state.SessionID = ""
	state.EnqueuedAt = now

	m.Queue[userID] = models.SearchRequest{
		UserID:     userID,
		Interests:  interests,
		EnqueuedAt: now,
		Seq:        m.seq,
	}

	if err := m.Storage.AddUserToSearchQueue(userID); err != nil {
		log.Printf("WARNING: failed to mirror %s into search queue: %v", userID, err)
	}
	return nil
}

// Dequeue removes a waiting user (explicit cancel) and resets the status
// to idle. A user already paired cannot leave through this path.
func (m *Matcher) Dequeue(userID string) error {
	if _, ok := m.Queue[userID]; !ok {
		return ErrNotWaiting
	}
	m.remove(userID)

	if state, ok := m.Tracker.Get(userID); ok {
		state.Status = models.StatusIdle
		state.Interests = nil
	}
	return nil
}

// Contains reports waiting-set membership.
func (m *Matcher) Contains(userID string) bool {
	_, ok := m.Queue[userID]
	return ok
}

// remove drops the queue entry and the Redis mirror, without touching
// the user's status (pairing sets matched, Dequeue sets idle).
func (m *Matcher) remove(userID string) {
	delete(m.Queue, userID)
	if err := m.Storage.RemoveUserFromSearchQueue(userID); err != nil {
		log.Printf("WARNING: failed to remove %s from search queue mirror: %v", userID, err)
	}
}

// Tick runs the pairing algorithm over the current waiting set and
// returns every pair formed, removing them from the queue. The caller
// transitions both users to matched in the same scheduling step.
func (m *Matcher) Tick(now time.Time) [][2]models.SearchRequest {
	var pairs [][2]models.SearchRequest
	for {
		a, b, ok := m.bestPair(now)
		if !ok {
			break
		}
		m.remove(a.UserID)
		m.remove(b.UserID)
		pairs = append(pairs, [2]models.SearchRequest{a, b})
	}
	return pairs
}

// bestPair selects the pair with the highest interest overlap;
// ties break by longest combined waiting time, then arrival order.
// With no overlapping pair available, the globally oldest waiter is
// paired with the next oldest once MaxWait has elapsed, so niche-interest
// users cannot starve.
func (m *Matcher) bestPair(now time.Time) (models.SearchRequest, models.SearchRequest, bool) {
	if len(m.Queue) < 2 {
		return models.SearchRequest{}, models.SearchRequest{}, false
	}

	// Oldest first; Seq disambiguates identical timestamps.
	entries := make([]models.SearchRequest, 0, len(m.Queue))
	for _, req := range m.Queue {
		entries = append(entries, req)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].EnqueuedAt.Equal(entries[j].EnqueuedAt) {
			return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
		}
		return entries[i].Seq < entries[j].Seq
	})

	bestScore := 0
	var bestWait time.Duration
	var bestA, bestB int
	found := false

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			score := overlapCount(entries[i].Interests, entries[j].Interests)
			if score == 0 {
				continue
			}
			wait := now.Sub(entries[i].EnqueuedAt) + now.Sub(entries[j].EnqueuedAt)
			if !found || score > bestScore || (score == bestScore && wait > bestWait) {
				bestScore, bestWait = score, wait
				bestA, bestB = i, j
				found = true
			}
		}
	}

	if found {
		return entries[bestA], entries[bestB], true
	}

	// Fallback fairness: the globally oldest waiter gets the next oldest
	// once the threshold elapses, interest overlap or not.
	if now.Sub(entries[0].EnqueuedAt) >= m.MaxWait {
		return entries[0], entries[1], true
	}
	return models.SearchRequest{}, models.SearchRequest{}, false
}

// overlapCount returns the size of the interest intersection.
func overlapCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, interest := range a {
		set[interest] = struct{}{}
	}
	count := 0
	for _, interest := range b {
		if _, ok := set[interest]; ok {
			count++
		}
	}
	return count
}

// sharedInterests returns the intersection of two interest sets,
// preserving the first set's order. Sent with the matched event.
func sharedInterests(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, interest := range b {
		set[interest] = struct{}{}
	}
	var shared []string
	for _, interest := range a {
		if _, ok := set[interest]; ok {
			shared = append(shared, interest)
		}
	}
	return shared
}
