package transport

import (
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/michalowskil/lovelace-touchpad-card/internal/clock"
	"github.com/michalowskil/lovelace-touchpad-card/internal/protocol"
)

const (
	DefaultBaseDelay     = 1500 * time.Millisecond
	DefaultBackoffFactor = 1.8
	DefaultMaxDelay      = 15 * time.Second
	DefaultDamping       = 600 * time.Millisecond
	DefaultTeardownDelay = 2 * time.Second
)

// Options tunes a Channel. Zero values take the defaults.
type Options struct {
	BaseDelay     time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration

	// Damping is how long a non-connected status must persist before it is
	// displayed
	Damping time.Duration

	// TeardownDelay is how long Release waits before closing the socket
	TeardownDelay time.Duration

	// OnStatus is called with every change of the displayed status
	OnStatus func(Status)

	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.BackoffFactor < 1 {
		o.BackoffFactor = DefaultBackoffFactor
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Damping <= 0 {
		o.Damping = DefaultDamping
	}
	if o.TeardownDelay <= 0 {
		o.TeardownDelay = DefaultTeardownDelay
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Channel keeps one socket to the target open, reconnecting with
// exponential backoff. It is not safe for concurrent use; all methods and
// socket events must run on the event loop.
type Channel struct {
	clock   clock.Clock
	factory SocketFactory
	opts    Options
	logger  *log.Logger

	target string

	// status drives logic, display is what the UI shows
	status  Status
	display Status

	delay         time.Duration
	errorNotified bool

	socket Socket
	gen    uint64

	reconnect    clock.Timer
	displayTimer clock.Timer
	teardown     clock.Timer

	sendLog *rate.Limiter
}

// NewChannel creates a disconnected channel
func NewChannel(c clock.Clock, factory SocketFactory, opts Options) *Channel {
	opts = opts.withDefaults()
	return &Channel{
		clock:   c,
		factory: factory,
		opts:    opts,
		logger:  opts.Logger,
		delay:   opts.BaseDelay,
		sendLog: rate.NewLimiter(rate.Every(10*time.Second), 3),
	}
}

// Status returns the immediate connection state
func (c *Channel) Status() Status {
	return c.status
}

// DisplayStatus returns the debounced connection state
func (c *Channel) DisplayStatus() Status {
	return c.display
}

// Target returns the configured socket URL
func (c *Channel) Target() string {
	return c.target
}

// Delay returns the backoff that the next reconnect will wait
func (c *Channel) Delay() time.Duration {
	return c.delay
}

// Sendable reports whether Send would transmit right now
func (c *Channel) Sendable() bool {
	return c.status == StatusConnected
}

// SetTarget points the channel at url. Changing the target closes any
// current socket; Connect must be called again.
func (c *Channel) SetTarget(url string) {
	if url == c.target {
		return
	}
	c.Close()
	c.target = url
}

// Connect opens the socket unless one is already open or being opened. It
// also cancels a teardown scheduled by Release.
func (c *Channel) Connect() {
	clock.Stop(c.teardown)
	c.teardown = nil

	if c.target == "" {
		c.setStatusNow(StatusDisconnected)
		return
	}
	if c.socket != nil || c.reconnect != nil {
		return
	}
	if c.status == StatusDisconnected {
		c.setStatusNow(StatusConnecting)
	}
	c.open()
}

// Release schedules the socket to be closed after the teardown delay. A
// Connect before then keeps the socket.
func (c *Channel) Release() {
	clock.Stop(c.teardown)
	c.teardown = c.clock.AfterFunc(c.opts.TeardownDelay, func() {
		c.teardown = nil
		c.Close()
	})
}

// Close tears the socket down immediately and stops reconnecting
func (c *Channel) Close() {
	clock.Stop(c.teardown)
	c.teardown = nil
	clock.Stop(c.reconnect)
	c.reconnect = nil

	if c.socket != nil {
		c.gen++
		if err := c.socket.Close(); err != nil {
			c.logger.Printf("Transport: close error: %v", err)
		}
		c.socket = nil
	}
	c.delay = c.opts.BaseDelay
	c.errorNotified = false
	c.setStatusNow(StatusDisconnected)
}

// Send encodes and transmits m. It does nothing unless connected; failures
// are logged and not retried.
func (c *Channel) Send(m protocol.Message) {
	if c.status != StatusConnected || c.socket == nil {
		return
	}
	data, err := protocol.Encode(m)
	if err != nil {
		c.logSendError(m, err)
		return
	}
	if err := c.socket.Send(data); err != nil {
		c.logSendError(m, err)
	}
}

func (c *Channel) logSendError(m protocol.Message, err error) {
	if c.sendLog.Allow() {
		c.logger.Printf("Transport: send %s failed: %v", m.Type, err)
	}
}

func (c *Channel) open() {
	c.gen++
	c.setStatus(StatusConnecting)
	ev := &socketEvents{ch: c, gen: c.gen}
	s, err := c.factory.Open(c.target, ev)
	if err != nil {
		c.handleError(err)
		c.handleClose()
		return
	}
	c.socket = s
}

func (c *Channel) handleOpen() {
	c.delay = c.opts.BaseDelay
	c.errorNotified = false
	c.logger.Printf("Transport: connected to %s", c.target)
	c.setStatus(StatusConnected)
}

func (c *Channel) handleError(err error) {
	if !c.errorNotified {
		c.errorNotified = true
		c.logger.Printf("Transport: connection to %s failed: %v", c.target, err)
	}
	c.setStatus(StatusError)
}

func (c *Channel) handleClose() {
	c.gen++
	c.socket = nil
	c.setStatus(StatusConnecting)

	wait := c.delay
	c.delay = min(time.Duration(float64(c.delay)*c.opts.BackoffFactor), c.opts.MaxDelay)
	clock.Stop(c.reconnect)
	c.reconnect = c.clock.AfterFunc(wait, func() {
		c.reconnect = nil
		c.open()
	})
}

// setStatus changes the logical state and projects it onto the display
// after the damping window. Connected is displayed immediately.
func (c *Channel) setStatus(s Status) {
	if s == c.status {
		return
	}
	c.status = s
	clock.Stop(c.displayTimer)
	c.displayTimer = nil

	if s == StatusConnected {
		c.showStatus(s)
		return
	}
	if s == c.display {
		return
	}
	c.displayTimer = c.clock.AfterFunc(c.opts.Damping, func() {
		c.displayTimer = nil
		c.showStatus(c.status)
	})
}

// setStatusNow changes both projections without damping
func (c *Channel) setStatusNow(s Status) {
	c.status = s
	clock.Stop(c.displayTimer)
	c.displayTimer = nil
	c.showStatus(s)
}

func (c *Channel) showStatus(s Status) {
	if s == c.display {
		return
	}
	c.display = s
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(s)
	}
}

// socketEvents binds events to the socket generation they belong to, so
// that a replaced or closed socket cannot affect the channel.
type socketEvents struct {
	ch  *Channel
	gen uint64
}

func (e *socketEvents) current() bool {
	return e.gen == e.ch.gen
}

func (e *socketEvents) OnOpen() {
	if e.current() {
		e.ch.handleOpen()
	}
}

func (e *socketEvents) OnClose() {
	if e.current() {
		e.ch.handleClose()
	}
}

func (e *socketEvents) OnError(err error) {
	if e.current() {
		e.ch.handleError(err)
	}
}
