// Package typing keeps short-lived "is typing" indicators per room or conversation.
// Entries live only in memory and expire after a TTL.
package typing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"
)

// Expired is an indicator removed by a sweep
type Expired struct {
	ParentId string
	UserId   string
}

// Tracker holds parentId -> userId -> expiry
type Tracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]map[string]time.Time
}

// NewTracker creates a Tracker with the given TTL
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]map[string]time.Time),
	}
}

// SetClock replaces the clock, for tests
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Set marks userId as typing in parentId and refreshes its expiry.
// It returns true when the user was not already typing.
func (t *Tracker) Set(parentId, userId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	users, ok := t.entries[parentId]
	if !ok {
		users = make(map[string]time.Time)
		t.entries[parentId] = users
	}
	exp, had := users[userId]
	users[userId] = now.Add(t.ttl)
	return !had || !exp.After(now)
}

// Clear removes userId from parentId and reports whether an indicator was held.
// An expired entry the sweep has not removed yet still counts: its stop was never announced.
func (t *Tracker) Clear(parentId, userId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clearLocked(parentId, userId)
}

func (t *Tracker) clearLocked(parentId, userId string) bool {
	users, ok := t.entries[parentId]
	if !ok {
		return false
	}
	if _, had := users[userId]; !had {
		return false
	}
	delete(users, userId)
	if len(users) == 0 {
		delete(t.entries, parentId)
	}
	return true
}

// ClearUser removes every indicator of userId and returns the parents it was held in
func (t *Tracker) ClearUser(userId string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	parentIds := make([]string, 0)
	for parentId := range t.entries {
		if t.clearLocked(parentId, userId) {
			parentIds = append(parentIds, parentId)
		}
	}
	sort.Strings(parentIds)
	return parentIds
}

// Active returns the users currently typing in parentId, sorted
func (t *Tracker) Active(parentId string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	userIds := make([]string, 0, len(t.entries[parentId]))
	for userId, exp := range t.entries[parentId] {
		if exp.After(now) {
			userIds = append(userIds, userId)
		}
	}
	sort.Strings(userIds)
	return userIds
}

// Sweep removes expired indicators and returns them ordered by parent then user
func (t *Tracker) Sweep() []Expired {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	expired := make([]Expired, 0)
	for parentId, users := range t.entries {
		for userId, exp := range users {
			if !exp.After(now) {
				expired = append(expired, Expired{ParentId: parentId, UserId: userId})
				delete(users, userId)
			}
		}
		if len(users) == 0 {
			delete(t.entries, parentId)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if expired[i].ParentId != expired[j].ParentId {
			return expired[i].ParentId < expired[j].ParentId
		}
		return expired[i].UserId < expired[j].UserId
	})
	return expired
}

// Run sweeps every interval until ctx is done, calling onExpire for each removed indicator
func (t *Tracker) Run(ctx context.Context, interval time.Duration, onExpire func(Expired)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("typing sweeper started: interval=%s, ttl=%s", interval, t.ttl)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range t.Sweep() {
				onExpire(e)
			}
		}
	}
}
