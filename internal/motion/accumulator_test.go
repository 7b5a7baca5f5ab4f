package motion

import (
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/michalowskil/lovelace-touchpad-card/internal/clock"
	"github.com/michalowskil/lovelace-touchpad-card/internal/protocol"
)

// manualFrames runs requested callbacks only when fire is called
type manualFrames struct {
	pending  []func()
	requests int
	// stale counts cancels of requests that already ran
	stale int
}

func (f *manualFrames) RequestFrame(fn func()) func() {
	f.requests++
	idx := len(f.pending)
	f.pending = append(f.pending, fn)
	return func() {
		if idx < len(f.pending) {
			f.pending[idx] = nil
		} else {
			f.stale++
		}
	}
}

func (f *manualFrames) fire() {
	fns := f.pending
	f.pending = nil
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

type fakeSender struct {
	sendable bool
	sent     []protocol.Message
}

func (s *fakeSender) Sendable() bool { return s.sendable }

func (s *fakeSender) Send(m protocol.Message) {
	s.sent = append(s.sent, m)
}

func expectSent(t *testing.T, got []protocol.Message, want ...protocol.Message) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unexpected messages\ngot:  %swant: %s", spew.Sdump(got), spew.Sdump(want))
	}
}

// TestFlushMoveOnly tests that a frame with only move motion sends one move
func TestFlushMoveOnly(t *testing.T) {
	frames := &manualFrames{}
	sender := &fakeSender{sendable: true}
	acc := NewAccumulator(frames, sender, DefaultSettings())

	acc.AddMove(4, -1)
	acc.AddMove(6, -3)
	if frames.requests != 1 {
		t.Errorf("Expected one frame request, got %d", frames.requests)
	}

	frames.fire()
	expectSent(t, sender.sent, protocol.Move(10, -4))

	mx, my, sx, sy := acc.Pending()
	if mx != 0 || my != 0 || sx != 0 || sy != 0 {
		t.Errorf("Expected zeroed accumulators, got move (%v, %v) scroll (%v, %v)", mx, my, sx, sy)
	}
	if acc.Scheduled() {
		t.Error("Expected no flush scheduled after firing")
	}
	if frames.stale != 0 {
		t.Errorf("Expected no cancel of a fired frame, got %d", frames.stale)
	}
}

// TestExplicitFlushCancelsFrame tests that a direct flush sends immediately
// and drops the pending frame request
func TestExplicitFlushCancelsFrame(t *testing.T) {
	frames := &manualFrames{}
	sender := &fakeSender{sendable: true}
	acc := NewAccumulator(frames, sender, DefaultSettings())

	acc.AddMove(2, 2)
	acc.Flush()
	expectSent(t, sender.sent, protocol.Move(2, 2))
	if acc.Scheduled() {
		t.Error("Expected no flush scheduled after an explicit flush")
	}

	frames.fire()
	if len(sender.sent) != 1 {
		t.Errorf("Expected the cancelled frame not to send, got %s", spew.Sdump(sender.sent))
	}
	if frames.stale != 0 {
		t.Errorf("Expected no stale cancels, got %d", frames.stale)
	}
}

// TestFlushOrder tests that move is sent before scroll regardless of the
// order the motion arrived in
func TestFlushOrder(t *testing.T) {
	frames := &manualFrames{}
	sender := &fakeSender{sendable: true}
	acc := NewAccumulator(frames, sender, DefaultSettings())

	acc.AddScroll(0, 3)
	acc.AddMove(1, 1)
	frames.fire()

	expectSent(t, sender.sent, protocol.Move(1, 1), protocol.Scroll(0, 3))
}

// TestFlushSkipsCancelledMotion tests that motion summing to zero sends nothing
func TestFlushSkipsCancelledMotion(t *testing.T) {
	frames := &manualFrames{}
	sender := &fakeSender{sendable: true}
	acc := NewAccumulator(frames, sender, DefaultSettings())

	acc.AddMove(5, 5)
	acc.AddMove(-5, -5)
	frames.fire()

	expectSent(t, sender.sent)
}

// TestMultipliers tests that settings are applied when motion is added
func TestMultipliers(t *testing.T) {
	frames := &manualFrames{}
	sender := &fakeSender{sendable: true}
	acc := NewAccumulator(frames, sender, Settings{
		Sensitivity:      1.5,
		ScrollMultiplier: 0.5,
		InvertScroll:     true,
		Speed:            2,
	})

	acc.AddMove(2, -2)
	acc.AddScroll(4, 8)
	acc.SetSpeed(1)
	acc.AddMove(2, 0)
	frames.fire()

	expectSent(t, sender.sent, protocol.Move(9, -6), protocol.Scroll(-4, -8))
	if acc.Settings().Speed != 1 {
		t.Errorf("Expected speed 1, got %v", acc.Settings().Speed)
	}
}

// TestFlushDropsWhenNotSendable tests that motion during a disconnect is lost
func TestFlushDropsWhenNotSendable(t *testing.T) {
	frames := &manualFrames{}
	sender := &fakeSender{}
	acc := NewAccumulator(frames, sender, DefaultSettings())

	acc.AddMove(3, 3)
	frames.fire()
	expectSent(t, sender.sent)

	sender.sendable = true
	acc.AddMove(1, 0)
	frames.fire()
	expectSent(t, sender.sent, protocol.Move(1, 0))
}

// TestReset tests that reset drops motion and the scheduled frame
func TestReset(t *testing.T) {
	frames := &manualFrames{}
	sender := &fakeSender{sendable: true}
	acc := NewAccumulator(frames, sender, DefaultSettings())

	acc.AddMove(3, 3)
	acc.AddScroll(1, 1)
	acc.Reset()
	frames.fire()
	expectSent(t, sender.sent)

	acc.AddMove(2, 2)
	if frames.requests != 2 {
		t.Errorf("Expected a new frame request after reset, got %d requests", frames.requests)
	}
}

// TestClockFrames tests that requests in one interval share a boundary
func TestClockFrames(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	frames := NewClockFrames(clk, 0)

	var fired []int
	frames.RequestFrame(func() { fired = append(fired, 1) })
	cancel := frames.RequestFrame(func() { fired = append(fired, 2) })
	frames.RequestFrame(func() { fired = append(fired, 3) })
	cancel()

	clk.Advance(DefaultFrameInterval)
	if !reflect.DeepEqual(fired, []int{1, 3}) {
		t.Errorf("Expected frames [1 3], got %v", fired)
	}
	if clk.Pending() != 0 {
		t.Errorf("Expected no pending frames, got %d", clk.Pending())
	}
}

// TestAccumulatorOnClockFrames tests at most one flush per frame
func TestAccumulatorOnClockFrames(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	sender := &fakeSender{sendable: true}
	acc := NewAccumulator(NewClockFrames(clk, DefaultFrameInterval), sender, DefaultSettings())

	for i := 0; i < 5; i++ {
		acc.AddMove(1, 0)
		acc.AddScroll(0, 1)
	}
	clk.Advance(DefaultFrameInterval)
	expectSent(t, sender.sent, protocol.Move(5, 0), protocol.Scroll(0, 5))

	clk.Advance(10 * DefaultFrameInterval)
	if len(sender.sent) != 2 {
		t.Errorf("Expected no further messages, got %s", spew.Sdump(sender.sent))
	}
}
