// Package motion coalesces continuous pointer and scroll motion into at most
// one outbound message of each kind per animation frame.
package motion

import (
	"time"

	"github.com/michalowskil/lovelace-touchpad-card/internal/clock"
)

// DefaultFrameInterval is roughly one 60 Hz display refresh
const DefaultFrameInterval = 16 * time.Millisecond

// Frames schedules callbacks on animation-frame boundaries
type Frames interface {
	// RequestFrame runs fn at the next frame boundary. The returned
	// function cancels the request if it has not run yet.
	RequestFrame(fn func()) (cancel func())
}

// ClockFrames derives frame boundaries from a clock. A boundary is every
// multiple of the interval since the zero time, so requests made within
// one interval share the same boundary.
type ClockFrames struct {
	clock    clock.Clock
	interval time.Duration
}

// NewClockFrames creates a frame source ticking every interval
func NewClockFrames(c clock.Clock, interval time.Duration) *ClockFrames {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &ClockFrames{clock: c, interval: interval}
}

// RequestFrame schedules fn on the next boundary strictly after now
func (f *ClockFrames) RequestFrame(fn func()) func() {
	now := f.clock.Now()
	next := now.Truncate(f.interval).Add(f.interval)
	t := f.clock.AfterFunc(next.Sub(now), fn)
	return func() { t.Stop() }
}
