// Package gesture turns raw multi-pointer input into semantic intents: pointer
// motion, scrolling, taps, two-finger taps and press-and-hold drags.
package gesture

import (
	"time"

	"github.com/michalowskil/lovelace-touchpad-card/internal/clock"
	"github.com/michalowskil/lovelace-touchpad-card/internal/input"
)

const (
	DefaultHoldDelay       = 320 * time.Millisecond
	DefaultHoldRadius      = 3.0
	DefaultTapRadius       = 6.0
	DefaultDoubleTapWindow = 250 * time.Millisecond
)

// Options tunes the classifier thresholds
type Options struct {
	// HoldDelay is how long a stationary touch must rest before a drag
	// engages
	HoldDelay time.Duration

	// HoldRadius is the movement in pixels that cancels a pending hold
	HoldRadius float64

	// TapRadius is the largest displacement still counted as a tap
	TapRadius float64

	// DoubleTapWindow bounds both tap duration and the gap between taps
	DoubleTapWindow time.Duration
}

// DefaultOptions returns the stock thresholds
func DefaultOptions() Options {
	return Options{
		HoldDelay:       DefaultHoldDelay,
		HoldRadius:      DefaultHoldRadius,
		TapRadius:       DefaultTapRadius,
		DoubleTapWindow: DefaultDoubleTapWindow,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HoldDelay <= 0 {
		o.HoldDelay = d.HoldDelay
	}
	if o.HoldRadius <= 0 {
		o.HoldRadius = d.HoldRadius
	}
	if o.TapRadius <= 0 {
		o.TapRadius = d.TapRadius
	}
	if o.DoubleTapWindow <= 0 {
		o.DoubleTapWindow = d.DoubleTapWindow
	}
	return o
}

// Mode is the externally visible classifier state
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeMove
	ModeScroll
	ModeDrag
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeMove:
		return "move"
	case ModeScroll:
		return "scroll"
	case ModeDrag:
		return "drag"
	default:
		return "unknown"
	}
}

// state is one of idleState, moveState, scrollState or dragState
type state interface {
	mode() Mode
}

type idleState struct{}

// moveState follows a single contact as relative pointer motion
type moveState struct {
	contact   input.PointerID
	holdArmed bool
	// afterScroll marks a survivor of a scroll gesture; its release is
	// never a tap.
	afterScroll bool
}

// scrollState follows the centroid of two or more contacts
type scrollState struct {
	last input.Point
}

// dragState holds the primary button down while its contact moves
type dragState struct {
	contact input.PointerID
}

func (idleState) mode() Mode    { return ModeIdle }
func (*moveState) mode() Mode   { return ModeMove }
func (*scrollState) mode() Mode { return ModeScroll }
func (*dragState) mode() Mode   { return ModeDrag }

// Classifier is the gesture state machine. It is not safe for concurrent
// use; every method and timer callback must run on the same event loop.
type Classifier struct {
	clock   clock.Clock
	opts    Options
	emit    func(Intent)
	tracker *input.Tracker

	state state
	hold  clock.Timer

	// Pending single tap. It outlives the gesture that produced it.
	tap     clock.Timer
	lastTap time.Time
}

// New creates a classifier delivering intents to emit
func New(c clock.Clock, opts Options, emit func(Intent)) *Classifier {
	return &Classifier{
		clock:   c,
		opts:    opts.withDefaults(),
		emit:    emit,
		tracker: input.NewTracker(),
		state:   idleState{},
	}
}

// Mode returns the current gesture mode
func (c *Classifier) Mode() Mode {
	return c.state.mode()
}

// Active returns the number of contacts currently down
func (c *Classifier) Active() int {
	return c.tracker.Count()
}

// TapPending reports whether a single tap is waiting to become a click
func (c *Classifier) TapPending() bool {
	return c.tap != nil
}

// SetOptions replaces the thresholds and resets the classifier
func (c *Classifier) SetOptions(opts Options) {
	c.Reset()
	c.opts = opts.withDefaults()
}

// PointerDown handles a new contact
func (c *Classifier) PointerDown(id input.PointerID, x, y float64, kind input.Kind) {
	if !c.tracker.Down(id, x, y, c.clock.Now(), kind) {
		return
	}
	if c.tracker.Count() == 1 {
		c.enterMove(id, kind)
		return
	}
	c.enterScroll()
}

// PointerMove handles motion of an active contact
func (c *Classifier) PointerMove(id input.PointerID, x, y float64) {
	prev, ok := c.tracker.Get(id)
	if !ok {
		return
	}
	c.tracker.Move(id, x, y)

	switch s := c.state.(type) {
	case *scrollState:
		cen := c.tracker.Centroid()
		dx, dy := cen.X-s.last.X, cen.Y-s.last.Y
		s.last = cen
		c.emitMotion(IntentScroll, dx, dy)

	case *moveState:
		if id != s.contact {
			return
		}
		if s.holdArmed {
			cur, _ := c.tracker.Get(id)
			if cur.Displacement() > c.opts.HoldRadius {
				s.holdArmed = false
				c.stopHold()
			}
		}
		c.emitMotion(IntentMove, x-prev.X, y-prev.Y)

	case *dragState:
		if id == s.contact {
			c.emitMotion(IntentMove, x-prev.X, y-prev.Y)
		}
	}
}

// PointerUp handles a released contact and evaluates taps
func (c *Classifier) PointerUp(id input.PointerID) {
	c.release(id, true)
}

// PointerCancel handles a contact the host aborted. It ends a drag like a
// release but never counts as a tap.
func (c *Classifier) PointerCancel(id input.PointerID) {
	c.release(id, false)
}

// Reset cancels every timer, forgets all contacts and any pending tap. A
// drag in progress is released first.
func (c *Classifier) Reset() {
	if _, ok := c.state.(*dragState); ok {
		c.emit(Intent{Kind: IntentUp})
	}
	c.stopHold()
	clock.Stop(c.tap)
	c.tap = nil
	c.lastTap = time.Time{}
	c.tracker.Clear()
	c.state = idleState{}
}

func (c *Classifier) release(id input.PointerID, tap bool) {
	contact, ok := c.tracker.Get(id)
	if !ok {
		return
	}
	now := c.clock.Now()

	switch s := c.state.(type) {
	case *dragState:
		c.tracker.Up(id)
		if id != s.contact {
			return
		}
		c.emit(Intent{Kind: IntentUp})
		c.afterRelease()

	case *scrollState:
		if tap && c.tracker.Count() == 2 && c.twoFingerTap(contact, now) {
			c.emit(Intent{Kind: IntentRightClick})
			c.tracker.Clear()
			c.endGesture()
			return
		}
		c.tracker.Up(id)
		c.afterRelease()

	case *moveState:
		c.tracker.Up(id)
		if c.tracker.Count() > 0 {
			c.afterRelease()
			return
		}
		eligible := tap && id == s.contact && !s.afterScroll &&
			contact.Displacement() <= c.opts.TapRadius &&
			now.Sub(contact.StartTime) <= c.opts.DoubleTapWindow
		c.endGesture()
		if eligible {
			c.registerTap(now)
		}

	default:
		c.tracker.Up(id)
		c.afterRelease()
	}
}

// afterRelease picks the state matching the remaining contacts after a
// removal that was not a tap.
func (c *Classifier) afterRelease() {
	switch n := c.tracker.Count(); {
	case n == 0:
		c.endGesture()
	case n == 1:
		if _, ok := c.state.(*scrollState); ok {
			c.state = &moveState{contact: c.tracker.IDs()[0], afterScroll: true}
		}
	default:
		c.enterScroll()
	}
}

// twoFingerTap checks the right-click conditions for removing contact while
// exactly one other contact is down.
func (c *Classifier) twoFingerTap(contact input.Contact, now time.Time) bool {
	var other input.Contact
	for _, id := range c.tracker.IDs() {
		if id != contact.ID {
			other, _ = c.tracker.Get(id)
		}
	}
	if contact.Displacement() > c.opts.TapRadius || other.Displacement() > c.opts.TapRadius {
		return false
	}
	earliest := contact.StartTime
	if other.StartTime.Before(earliest) {
		earliest = other.StartTime
	}
	return now.Sub(earliest) <= c.opts.DoubleTapWindow
}

func (c *Classifier) registerTap(now time.Time) {
	if !c.lastTap.IsZero() && now.Sub(c.lastTap) <= c.opts.DoubleTapWindow {
		clock.Stop(c.tap)
		c.tap = nil
		c.lastTap = time.Time{}
		c.emit(Intent{Kind: IntentDoubleClick})
		return
	}

	clock.Stop(c.tap)
	c.lastTap = now
	c.tap = c.clock.AfterFunc(c.opts.DoubleTapWindow, func() {
		c.tap = nil
		c.lastTap = time.Time{}
		c.emit(Intent{Kind: IntentClick})
	})
}

func (c *Classifier) enterMove(id input.PointerID, kind input.Kind) {
	s := &moveState{contact: id, holdArmed: kind.Direct()}
	c.state = s
	c.stopHold()
	if s.holdArmed {
		c.hold = c.clock.AfterFunc(c.opts.HoldDelay, c.onHold)
	}
}

func (c *Classifier) enterScroll() {
	c.stopHold()
	if _, ok := c.state.(*dragState); ok {
		c.emit(Intent{Kind: IntentUp})
	}
	c.state = &scrollState{last: c.tracker.Centroid()}
}

func (c *Classifier) onHold() {
	c.hold = nil
	s, ok := c.state.(*moveState)
	if !ok || !s.holdArmed || c.tracker.Count() != 1 {
		return
	}
	contact, ok := c.tracker.Get(s.contact)
	if !ok || contact.Displacement() > c.opts.HoldRadius {
		return
	}
	c.state = &dragState{contact: s.contact}
	c.emit(Intent{Kind: IntentDown})
}

// endGesture returns to idle. The pending tap is left alone.
func (c *Classifier) endGesture() {
	c.stopHold()
	c.state = idleState{}
}

func (c *Classifier) stopHold() {
	clock.Stop(c.hold)
	c.hold = nil
}

func (c *Classifier) emitMotion(kind IntentKind, dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	c.emit(Intent{Kind: kind, DX: dx, DY: dy})
}
