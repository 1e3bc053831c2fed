// Package keylock provides one single-writer slot per key.
//
// Slots are reference counted and dropped once no goroutine holds or waits
// on them, so the table only grows with the number of keys in use.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaitTimeout is returned when a slot could not be acquired within the wait budget
var ErrWaitTimeout = errors.New("keylock: wait timeout")

type slot struct {
	ch   chan struct{}
	refs int
}

// Locker hands out per-key exclusive slots
type Locker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// New creates a new Locker
func New() *Locker {
	return &Locker{slots: make(map[string]*slot)}
}

// Lock acquires the slot for key. A non-positive wait blocks until ctx is done.
// The returned release func is safe to call more than once.
func (l *Locker) Lock(ctx context.Context, key string, wait time.Duration) (func(), error) {
	s := l.ref(key)

	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
		}, nil
	case <-timeout:
		l.unref(key, s)
		return nil, ErrWaitTimeout
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ctx.Err()
	}
}

// Len returns the number of keys currently held or waited on
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func (l *Locker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Locker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
