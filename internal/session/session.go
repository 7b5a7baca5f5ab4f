// Package session is the core of one touchpad surface. It routes raw pointer
// events through gesture classification and motion batching onto the
// transport channel, and keeps the persisted toggle state.
package session

import (
	"fmt"
	"log"
	"time"

	"github.com/michalowskil/lovelace-touchpad-card/internal/clock"
	"github.com/michalowskil/lovelace-touchpad-card/internal/config"
	"github.com/michalowskil/lovelace-touchpad-card/internal/gesture"
	"github.com/michalowskil/lovelace-touchpad-card/internal/input"
	"github.com/michalowskil/lovelace-touchpad-card/internal/motion"
	"github.com/michalowskil/lovelace-touchpad-card/internal/protocol"
	"github.com/michalowskil/lovelace-touchpad-card/internal/transport"
	"github.com/michalowskil/lovelace-touchpad-card/internal/uistate"
)

// Options are the collaborators of a Session
type Options struct {
	Clock   clock.Clock
	Sockets transport.SocketFactory
	Store   *uistate.Store

	// Frames paces motion flushes. When nil, frames are derived from Clock
	// using the configured frame interval.
	Frames motion.Frames

	// ClientID identifies this installation. When empty it is taken from
	// Store.
	ClientID string

	// Host receives vertical panning while the surface is locked
	Host gesture.Scroller

	// OnStatus is called when the displayed connection status changes
	OnStatus func(transport.Status)

	// OnState is called after every toggle change
	OnState func(uistate.State)

	Logger *log.Logger

	// Transport overrides channel timings
	Transport transport.Options
}

// Session is the host-facing API of the touchpad core. Every method must be
// called from the event loop that also runs the clock and socket callbacks.
type Session struct {
	opts   Options
	logger *log.Logger

	channel    *transport.Channel
	classifier *gesture.Classifier
	pan        *gesture.LockedPan
	acc        *motion.Accumulator

	// diverted holds the contacts owned by the locked pan
	diverted map[input.PointerID]bool

	clientID string
	key      string
	state    uistate.State
	started  bool
}

// New creates a stopped session
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Store == nil {
		opts.Store = uistate.NewStore(uistate.NewMemory(), opts.Logger)
	}

	s := &Session{
		opts:     opts,
		logger:   opts.Logger,
		pan:      gesture.NewLockedPan(opts.Host),
		diverted: make(map[input.PointerID]bool),
		clientID: opts.ClientID,
		state:    uistate.Default(),
	}

	topts := opts.Transport
	topts.OnStatus = s.handleStatus
	topts.Logger = opts.Logger
	s.channel = transport.NewChannel(opts.Clock, opts.Sockets, topts)
	s.classifier = gesture.New(opts.Clock, gesture.DefaultOptions(), s.handleIntent)
	s.acc = motion.NewAccumulator(s.frames(motion.DefaultFrameInterval), s.channel, motion.DefaultSettings())
	return s
}

// Start applies cfg and connects. A configuration error is returned before
// anything changes.
func (s *Session) Start(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	url, err := cfg.URL()
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if s.clientID == "" {
		s.clientID = s.opts.Store.ClientID()
	}
	s.key = uistate.Key(url, cfg.View, s.clientID)
	s.state = s.opts.Store.Load(s.key)

	s.classifier.SetOptions(gesture.Options{
		HoldDelay:       cfg.HoldDelay(),
		TapRadius:       cfg.TapRadius,
		DoubleTapWindow: cfg.DoubleTapWindow(),
	})
	s.resetPan()

	s.acc.Reset()
	s.acc = motion.NewAccumulator(s.frames(cfg.FrameInterval()), s.channel, motion.Settings{
		Sensitivity:      cfg.Sensitivity,
		ScrollMultiplier: cfg.ScrollMultiplier,
		InvertScroll:     cfg.InvertScroll,
		Speed:            float64(s.state.SpeedMultiplier),
	})

	s.channel.SetTarget(url)
	s.channel.Connect()
	s.started = true
	s.logger.Printf("Session: started for %s (view %q)", url, cfg.View)
	s.notifyState()
	return nil
}

// Stop detaches the session from its host. Gesture timers are cancelled at
// once; the socket is closed after the teardown delay unless Start is
// called again first.
func (s *Session) Stop() {
	if !s.started {
		return
	}
	s.started = false
	s.classifier.Reset()
	s.resetPan()
	s.acc.Reset()
	s.channel.Release()
}

// Close stops the session and closes the socket immediately
func (s *Session) Close() {
	s.Stop()
	s.channel.Close()
}

// Started reports whether the session is attached
func (s *Session) Started() bool {
	return s.started
}

// Status returns the displayed connection status
func (s *Session) Status() transport.Status {
	return s.channel.DisplayStatus()
}

// UIState returns the current toggles
func (s *Session) UIState() uistate.State {
	return s.state
}

// PointerDown implements input.Surface
func (s *Session) PointerDown(id input.PointerID, x, y float64, kind input.Kind) {
	if !s.started {
		return
	}
	if s.state.Locked && kind.Direct() {
		s.diverted[id] = true
		s.pan.Down(id, y)
		return
	}
	s.classifier.PointerDown(id, x, y, kind)
}

// PointerMove implements input.Surface
func (s *Session) PointerMove(id input.PointerID, x, y float64) {
	if s.diverted[id] {
		s.pan.Move(id, y)
		return
	}
	s.classifier.PointerMove(id, x, y)
}

// PointerUp implements input.Surface
func (s *Session) PointerUp(id input.PointerID) {
	if s.diverted[id] {
		delete(s.diverted, id)
		s.pan.Up(id)
		return
	}
	s.classifier.PointerUp(id)
}

// PointerCancel implements input.Surface
func (s *Session) PointerCancel(id input.PointerID) {
	if s.diverted[id] {
		delete(s.diverted, id)
		s.pan.Up(id)
		return
	}
	s.classifier.PointerCancel(id)
}

// SendText inserts literal text on the target
func (s *Session) SendText(text string) error {
	return s.send(protocol.Text(text))
}

// SendKey sends one key command
func (s *Session) SendKey(k protocol.Key) error {
	return s.send(protocol.KeyPress(k))
}

// SendVolume sends a volume command
func (s *Session) SendVolume(a protocol.VolumeAction) error {
	return s.send(protocol.Volume(a))
}

// SendWake asks the target to leave its screensaver
func (s *Session) SendWake() error {
	return s.send(protocol.Wake())
}

// SetLocked switches lock mode. Gestures in progress are abandoned.
func (s *Session) SetLocked(locked bool) {
	if s.state.Locked == locked {
		return
	}
	s.classifier.Reset()
	s.resetPan()
	s.state.Locked = locked
	s.saveState()
}

// ToggleLock flips lock mode
func (s *Session) ToggleLock() {
	s.SetLocked(!s.state.Locked)
}

// SetSpeed selects a speed multiplier; values outside 1..4 select 1
func (s *Session) SetSpeed(n int) {
	n = uistate.State{SpeedMultiplier: n}.Normalize().SpeedMultiplier
	s.state.SpeedMultiplier = n
	s.acc.SetSpeed(float64(n))
	s.saveState()
}

// CycleSpeed advances the speed multiplier 1, 2, 3, 4, 1
func (s *Session) CycleSpeed() {
	s.SetSpeed(uistate.NextSpeed(s.state.SpeedMultiplier))
}

// ToggleKeyboard opens or closes the keyboard panel
func (s *Session) ToggleKeyboard() {
	s.state.KeyboardOpen = !s.state.KeyboardOpen
	s.saveState()
}

func (s *Session) send(m protocol.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.channel.Send(m)
	return nil
}

func (s *Session) handleIntent(i gesture.Intent) {
	if !i.Continuous() {
		if err := s.send(i.Message()); err != nil {
			s.logger.Printf("Session: dropped %s intent: %v", i.Kind, err)
		}
		return
	}
	if i.Kind == gesture.IntentScroll {
		s.acc.AddScroll(i.DX, i.DY)
	} else {
		s.acc.AddMove(i.DX, i.DY)
	}
}

func (s *Session) handleStatus(st transport.Status) {
	if st != transport.StatusConnected {
		s.acc.Reset()
	}
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(st)
	}
}

func (s *Session) resetPan() {
	s.pan.Reset()
	clear(s.diverted)
}

func (s *Session) saveState() {
	if s.key != "" {
		s.opts.Store.Save(s.key, s.state)
	}
	s.notifyState()
}

func (s *Session) notifyState() {
	if s.opts.OnState != nil {
		s.opts.OnState(s.state)
	}
}

func (s *Session) frames(interval time.Duration) motion.Frames {
	if s.opts.Frames != nil {
		return s.opts.Frames
	}
	return motion.NewClockFrames(s.opts.Clock, interval)
}
