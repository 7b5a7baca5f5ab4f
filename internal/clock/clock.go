// Package clock abstracts time so that timer-driven components can run on a
// single event loop in production and be stepped deterministically in tests.
package clock

import (
	"sync/atomic"
	"time"
)

// Timer is a cancelable pending callback
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from running. A stopped timer never runs its callback.
	Stop() bool
}

// Clock provides the current time and one-shot timers
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is a wall clock whose timer callbacks are handed to post instead of
// running on the runtime timer goroutine. Pass loop.Post so that callbacks
// run on the event loop.
type Real struct {
	post func(func())
}

// NewReal creates a wall clock delivering callbacks through post
func NewReal(post func(func())) *Real {
	return &Real{post: post}
}

// Now returns the wall clock time
func (c *Real) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f to be posted after d
func (c *Real) AfterFunc(d time.Duration, f func()) Timer {
	t := &realTimer{}
	t.timer = time.AfterFunc(d, func() {
		c.post(func() {
			// Stop may have been called after the runtime timer fired but
			// before the loop got to this closure.
			if t.stopped.CompareAndSwap(false, true) {
				f()
			}
		})
	})
	return t
}

type realTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

func (t *realTimer) Stop() bool {
	t.timer.Stop()
	return t.stopped.CompareAndSwap(false, true)
}

// Stop cancels t if it is non-nil. It is a convenience for optional timer
// fields.
func Stop(t Timer) {
	if t != nil {
		t.Stop()
	}
}
