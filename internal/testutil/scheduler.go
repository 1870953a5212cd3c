package testutil

import (
	"sync"
	"time"
)

// FakeScheduler is a manual timer source for tests.
//
// Time only moves when Advance is called. Due callbacks run synchronously
// on the caller's goroutine, earliest first, ties in scheduling order.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// Callbacks run without the mutex held, so they may schedule more timers.
type FakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	due time.Duration
	seq int
	f   func()
}

// NewFakeScheduler creates a scheduler whose clock starts at zero.
func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

// AfterFunc schedules f to run once Advance moves the clock d past now.
// The returned stop function reports whether the timer was still pending.
func (s *FakeScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &fakeTimer{due: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.remove(t)
	}
}

// Advance moves the clock forward by d, firing every timer that comes due.
// Timers scheduled by a callback fire too if they fall inside the window.
// Returns the number of callbacks run.
func (s *FakeScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	fired := 0
	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return fired
		}
		s.remove(next)
		s.now = next.due
		s.mu.Unlock()

		next.f()
		fired++
	}
}

// Now returns the time elapsed since the scheduler was created.
func (s *FakeScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (s *FakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// nextDue returns the earliest timer due at or before target.
// Caller must hold s.mu.
func (s *FakeScheduler) nextDue(target time.Duration) *fakeTimer {
	var best *fakeTimer
	for _, t := range s.timers {
		if t.due > target {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// remove drops t from the pending list. Caller must hold s.mu.
func (s *FakeScheduler) remove(t *fakeTimer) bool {
	for i, pending := range s.timers {
		if pending == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return true
		}
	}
	return false
}
