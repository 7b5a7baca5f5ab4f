package transport

import (
	"bytes"
	"errors"
	"log"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/michalowskil/lovelace-touchpad-card/internal/clock"
	"github.com/michalowskil/lovelace-touchpad-card/internal/protocol"
)

type fakeSocket struct {
	url    string
	ev     SocketEvents
	sent   [][]byte
	closed bool
	err    error
}

func (s *fakeSocket) Send(data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, data)
	return nil
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

type fakeFactory struct {
	sockets []*fakeSocket
	err     error
}

func (f *fakeFactory) Open(url string, ev SocketEvents) (Socket, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeSocket{url: url, ev: ev}
	f.sockets = append(f.sockets, s)
	return s, nil
}

func (f *fakeFactory) last() *fakeSocket {
	return f.sockets[len(f.sockets)-1]
}

type harness struct {
	clk     *clock.Fake
	factory *fakeFactory
	ch      *Channel
	shown   []Status
	logs    *bytes.Buffer
}

func newHarness() *harness {
	h := &harness{
		clk:     clock.NewFake(time.Unix(0, 0)),
		factory: &fakeFactory{},
		logs:    &bytes.Buffer{},
	}
	h.ch = NewChannel(h.clk, h.factory, Options{
		OnStatus: func(s Status) { h.shown = append(h.shown, s) },
		Logger:   log.New(h.logs, "", 0),
	})
	return h
}

func (h *harness) connect(t *testing.T) *fakeSocket {
	t.Helper()
	h.ch.SetTarget("ws://tv.local:8765")
	h.ch.Connect()
	if len(h.factory.sockets) == 0 {
		t.Fatal("Expected a socket to be opened")
	}
	return h.factory.last()
}

func expectShown(t *testing.T, got []Status, want ...Status) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected displayed statuses %v, got %v", want, got)
	}
}

// TestConnectAndSend tests the happy path
func TestConnectAndSend(t *testing.T) {
	h := newHarness()
	s := h.connect(t)

	if s.url != "ws://tv.local:8765" {
		t.Errorf("Unexpected url %q", s.url)
	}
	if h.ch.Status() != StatusConnecting || h.ch.DisplayStatus() != StatusConnecting {
		t.Errorf("Expected connecting, got %s / %s", h.ch.Status(), h.ch.DisplayStatus())
	}

	h.ch.Send(protocol.Click())
	if len(s.sent) != 0 {
		t.Error("Expected no send before open")
	}

	s.ev.OnOpen()
	if !h.ch.Sendable() {
		t.Fatal("Expected channel to be sendable after open")
	}
	h.ch.Send(protocol.Click())
	want, _ := protocol.Encode(protocol.Click())
	if len(s.sent) != 1 || !bytes.Equal(s.sent[0], want) {
		t.Errorf("Expected %s to be sent, got %q", want, s.sent)
	}
	expectShown(t, h.shown, StatusConnecting, StatusConnected)
}

// TestNoTarget tests that connecting without a target stays disconnected
func TestNoTarget(t *testing.T) {
	h := newHarness()
	h.ch.Connect()
	if len(h.factory.sockets) != 0 {
		t.Error("Expected no socket without a target")
	}
	if h.ch.Status() != StatusDisconnected {
		t.Errorf("Expected disconnected, got %s", h.ch.Status())
	}
}

// TestBackoff tests that repeated closes grow the delay up to the ceiling
// and that a successful open resets it
func TestBackoff(t *testing.T) {
	h := newHarness()
	h.connect(t)

	prev := h.ch.Delay()
	if prev != DefaultBaseDelay {
		t.Fatalf("Expected base delay %v, got %v", DefaultBaseDelay, prev)
	}
	for i := 0; i < 8; i++ {
		wait := h.ch.Delay()
		opened := len(h.factory.sockets)
		h.factory.last().ev.OnClose()
		if h.ch.Status() != StatusConnecting {
			t.Errorf("Expected connecting after close, got %s", h.ch.Status())
		}

		h.clk.Advance(wait - time.Millisecond)
		if len(h.factory.sockets) != opened {
			t.Fatalf("Reconnected before the %v backoff elapsed", wait)
		}
		h.clk.Advance(time.Millisecond)
		if len(h.factory.sockets) != opened+1 {
			t.Fatalf("Expected reconnect after %v", wait)
		}

		d := h.ch.Delay()
		if d < prev || d > DefaultMaxDelay {
			t.Errorf("Delay %v out of order after %v", d, prev)
		}
		prev = d
	}
	if prev != DefaultMaxDelay {
		t.Errorf("Expected delay to reach %v, got %v", DefaultMaxDelay, prev)
	}

	h.factory.last().ev.OnOpen()
	if h.ch.Delay() != DefaultBaseDelay {
		t.Errorf("Expected delay reset to %v, got %v", DefaultBaseDelay, h.ch.Delay())
	}
}

// TestFastReconnectNeverShowsError tests the display debounce when an error
// is immediately followed by a close and a successful reconnect
func TestFastReconnectNeverShowsError(t *testing.T) {
	h := newHarness()
	s := h.connect(t)

	s.ev.OnError(errors.New("refused"))
	s.ev.OnClose()
	h.clk.Advance(DefaultBaseDelay)
	h.factory.last().ev.OnOpen()

	expectShown(t, h.shown, StatusConnecting, StatusConnected)
}

// TestPersistentErrorIsShown tests that an error lasting the damping window
// reaches the display
func TestPersistentErrorIsShown(t *testing.T) {
	h := newHarness()
	s := h.connect(t)
	s.ev.OnOpen()

	s.ev.OnError(errors.New("broken pipe"))
	h.clk.Advance(DefaultDamping - time.Millisecond)
	if h.ch.DisplayStatus() != StatusConnected {
		t.Errorf("Expected connected still displayed, got %s", h.ch.DisplayStatus())
	}
	h.clk.Advance(time.Millisecond)
	if h.ch.DisplayStatus() != StatusError {
		t.Errorf("Expected error displayed, got %s", h.ch.DisplayStatus())
	}
	if h.ch.Sendable() {
		t.Error("Expected channel not sendable in error state")
	}
}

// TestErrorStreakLoggedOnce tests that only the first error of a streak is
// reported
func TestErrorStreakLoggedOnce(t *testing.T) {
	h := newHarness()
	s := h.connect(t)

	for i := 0; i < 3; i++ {
		s.ev.OnError(errors.New("refused"))
		s.ev.OnClose()
		h.clk.Advance(h.ch.Delay())
		s = h.factory.last()
	}
	if n := strings.Count(h.logs.String(), "failed"); n != 1 {
		t.Errorf("Expected 1 error report, got %d:\n%s", n, h.logs)
	}

	s.ev.OnOpen()
	s.ev.OnError(errors.New("reset"))
	if n := strings.Count(h.logs.String(), "failed"); n != 2 {
		t.Errorf("Expected a new report after reconnecting, got %d", n)
	}
}

// TestOpenFailure tests that a factory error behaves like error then close
func TestOpenFailure(t *testing.T) {
	h := newHarness()
	h.factory.err = errors.New("bad url")
	h.ch.SetTarget("ws://nowhere")
	h.ch.Connect()

	if h.ch.Status() != StatusConnecting {
		t.Errorf("Expected connecting, got %s", h.ch.Status())
	}
	if h.clk.Pending() == 0 {
		t.Error("Expected a reconnect to be scheduled")
	}
	if !strings.Contains(h.logs.String(), "bad url") {
		t.Errorf("Expected the failure to be logged, got %q", h.logs)
	}

	h.factory.err = nil
	h.clk.Advance(DefaultBaseDelay)
	if len(h.factory.sockets) != 1 {
		t.Errorf("Expected a retry, got %d sockets", len(h.factory.sockets))
	}
}

// TestStaleSocketEvents tests that a closed socket cannot move the channel
func TestStaleSocketEvents(t *testing.T) {
	h := newHarness()
	old := h.connect(t)

	h.ch.SetTarget("ws://other:1")
	if !old.closed {
		t.Error("Expected retargeting to close the old socket")
	}
	h.ch.Connect()
	cur := h.factory.last()

	old.ev.OnOpen()
	if h.ch.Status() != StatusConnecting {
		t.Errorf("Stale open changed status to %s", h.ch.Status())
	}
	cur.ev.OnOpen()
	old.ev.OnClose()
	old.ev.OnError(errors.New("late"))
	if h.ch.Status() != StatusConnected {
		t.Errorf("Stale events changed status to %s", h.ch.Status())
	}
	if h.clk.Pending() != 0 {
		t.Errorf("Stale close scheduled %d timers", h.clk.Pending())
	}
}

// TestDeferredTeardown tests that release waits and re-attach cancels it
func TestDeferredTeardown(t *testing.T) {
	h := newHarness()
	s := h.connect(t)
	s.ev.OnOpen()

	h.ch.Release()
	h.clk.Advance(DefaultTeardownDelay / 2)
	h.ch.Connect()
	h.clk.Advance(5 * DefaultTeardownDelay)
	if s.closed || h.ch.Status() != StatusConnected {
		t.Fatal("Expected re-attach to keep the socket")
	}
	if len(h.factory.sockets) != 1 {
		t.Errorf("Expected no new socket, got %d", len(h.factory.sockets))
	}

	h.ch.Release()
	h.clk.Advance(DefaultTeardownDelay)
	if !s.closed {
		t.Error("Expected socket closed after teardown delay")
	}
	if h.ch.Status() != StatusDisconnected || h.ch.DisplayStatus() != StatusDisconnected {
		t.Errorf("Expected disconnected, got %s / %s", h.ch.Status(), h.ch.DisplayStatus())
	}
	if h.clk.Pending() != 0 {
		t.Errorf("Expected no timers after teardown, got %d", h.clk.Pending())
	}
}

// TestSendFailureIsNotFatal tests that socket errors on send are only logged
func TestSendFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	s := h.connect(t)
	s.ev.OnOpen()

	s.err = ErrQueueFull
	for i := 0; i < 10; i++ {
		h.ch.Send(protocol.Move(1, 1))
	}
	if h.ch.Status() != StatusConnected {
		t.Errorf("Expected still connected, got %s", h.ch.Status())
	}
	if n := strings.Count(h.logs.String(), "send move failed"); n == 0 || n > 3 {
		t.Errorf("Expected throttled send failure logs, got %d", n)
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{
		StatusDisconnected: "disconnected",
		StatusConnecting:   "connecting",
		StatusConnected:    "connected",
		StatusError:        "error",
	} {
		if s.String() != want {
			t.Errorf("Expected %q, got %q", want, s.String())
		}
	}
}
