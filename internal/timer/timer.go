// Package timer provides a single-shot, cancellable scheduled task on top of
// an injectable scheduler, so turn timers can be driven by a fake clock in
// tests.
package timer

import (
	"sync"
	"time"
)

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// Real schedules on the wall clock.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Locked wraps s so that every callback runs while holding l.
func Locked(s Scheduler, l sync.Locker) Scheduler {
	return lockedScheduler{inner: s, l: l}
}

type lockedScheduler struct {
	inner Scheduler
	l     sync.Locker
}

func (s lockedScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return s.inner.AfterFunc(d, func() {
		s.l.Lock()
		defer s.l.Unlock()
		f()
	})
}

// Task is a single-shot timer whose only operations are Arm and Cancel.
//
// Task is not safe for concurrent use. Callbacks must be serialized with the
// callers of Arm and Cancel, which Locked does when the same lock guards
// both. A fire that races with Cancel or a re-Arm is dropped.
type Task struct {
	sched  Scheduler
	after  time.Duration
	fn     func()
	gen    uint64
	armed  bool
	handle Stopper
}

func NewTask(s Scheduler, after time.Duration, fn func()) *Task {
	return &Task{sched: s, after: after, fn: fn}
}

// Arm schedules the task, cancelling any pending fire first.
func (t *Task) Arm() {
	t.Cancel()
	t.gen++
	gen := t.gen
	t.armed = true
	t.handle = t.sched.AfterFunc(t.after, func() {
		if !t.armed || t.gen != gen {
			return
		}
		t.armed = false
		t.handle = nil
		t.fn()
	})
}

// Cancel stops a pending fire. It is a no-op when nothing is armed.
func (t *Task) Cancel() {
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
	t.armed = false
}

func (t *Task) Armed() bool { return t.armed }
