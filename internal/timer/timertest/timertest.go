// Package timertest provides a manually advanced timer.Scheduler.
package timertest

import (
	"sync"
	"time"

	"guessroom/internal/timer"
)

// Scheduler fires callbacks only when Advance moves its clock past them.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *Scheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func New() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) timer.Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing due callbacks in order.
// Callbacks run without the scheduler lock held and may schedule more.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.at
		next.fired = true
		s.mu.Unlock()

		next.f()
	}
}

func (s *Scheduler) nextDue(target time.Duration) *fakeTimer {
	var next *fakeTimer
	for _, t := range s.timers {
		if t.stopped || t.fired || t.at > target {
			continue
		}
		if next == nil || t.at < next.at {
			next = t
		}
	}
	return next
}

// Pending reports how many callbacks are scheduled and not yet fired or
// stopped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Now is the elapsed fake time.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
