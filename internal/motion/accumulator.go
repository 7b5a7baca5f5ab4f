package motion

import (
	"github.com/michalowskil/lovelace-touchpad-card/internal/protocol"
)

// Sender is the outbound side of the transport
type Sender interface {
	// Sendable reports whether a message sent now would reach the socket
	Sendable() bool
	Send(m protocol.Message)
}

// Settings are the multipliers applied when motion is accumulated
type Settings struct {
	Sensitivity      float64
	ScrollMultiplier float64
	InvertScroll     bool
	// Speed is the user-selected speed multiplier, applied to both kinds
	Speed float64
}

// DefaultSettings returns unit multipliers
func DefaultSettings() Settings {
	return Settings{Sensitivity: 1, ScrollMultiplier: 1, Speed: 1}
}

type vec struct {
	x, y float64
}

func (v vec) zero() bool {
	return v.x == 0 && v.y == 0
}

// Accumulator sums move and scroll deltas between frames and flushes them
// as at most one message of each kind. It must only be used from the event
// loop.
type Accumulator struct {
	frames   Frames
	sender   Sender
	settings Settings

	move   vec
	scroll vec
	cancel func()
}

// NewAccumulator creates an accumulator flushing into sender
func NewAccumulator(frames Frames, sender Sender, settings Settings) *Accumulator {
	return &Accumulator{
		frames:   frames,
		sender:   sender,
		settings: settings,
	}
}

// Settings returns the current multipliers
func (a *Accumulator) Settings() Settings {
	return a.settings
}

// SetSpeed changes only the speed multiplier
func (a *Accumulator) SetSpeed(speed float64) {
	a.settings.Speed = speed
}

// AddMove accumulates raw pointer motion
func (a *Accumulator) AddMove(dx, dy float64) {
	k := a.settings.Sensitivity * a.settings.Speed
	a.move.x += dx * k
	a.move.y += dy * k
	a.schedule()
}

// AddScroll accumulates raw scroll motion
func (a *Accumulator) AddScroll(dx, dy float64) {
	k := a.settings.ScrollMultiplier * a.settings.Speed
	if a.settings.InvertScroll {
		k = -k
	}
	a.scroll.x += dx * k
	a.scroll.y += dy * k
	a.schedule()
}

// Flush sends the accumulated move and then the accumulated scroll, each
// only when non-zero, and zeroes both. Nothing is sent when the sender is
// not sendable; the deltas are dropped.
func (a *Accumulator) Flush() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.flush()
}

// onFrame runs on the frame boundary; the request it came from has already
// fired and must not be cancelled.
func (a *Accumulator) onFrame() {
	a.cancel = nil
	a.flush()
}

func (a *Accumulator) flush() {
	move, scroll := a.move, a.scroll
	a.move, a.scroll = vec{}, vec{}

	if !a.sender.Sendable() {
		return
	}
	if !move.zero() {
		a.sender.Send(protocol.Move(move.x, move.y))
	}
	if !scroll.zero() {
		a.sender.Send(protocol.Scroll(scroll.x, scroll.y))
	}
}

// Reset drops accumulated motion and any scheduled flush
func (a *Accumulator) Reset() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.move, a.scroll = vec{}, vec{}
}

// Pending returns the accumulated move and scroll vectors
func (a *Accumulator) Pending() (mx, my, sx, sy float64) {
	return a.move.x, a.move.y, a.scroll.x, a.scroll.y
}

// Scheduled reports whether a flush is waiting for the next frame
func (a *Accumulator) Scheduled() bool {
	return a.cancel != nil
}

func (a *Accumulator) schedule() {
	if a.cancel != nil {
		return
	}
	a.cancel = a.frames.RequestFrame(a.onFrame)
}
