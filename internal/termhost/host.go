// Package termhost turns a terminal into a touch surface. The left mouse
// button acts as one finger and the right button as two fingers side by
// side; function keys drive the toggles and the keyboard panel.
package termhost

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/michalowskil/lovelace-touchpad-card/internal/input"
	"github.com/michalowskil/lovelace-touchpad-card/internal/protocol"
	"github.com/michalowskil/lovelace-touchpad-card/internal/transport"
	"github.com/michalowskil/lovelace-touchpad-card/internal/uistate"
)

const (
	// DefaultCellWidth and DefaultCellHeight convert cells to surface pixels
	DefaultCellWidth  = 8
	DefaultCellHeight = 16

	// fingerGap is the horizontal distance between the two emulated
	// fingers of a right-button press, in pixels
	fingerGap = 40
)

// Surface is the session API the host drives
type Surface interface {
	input.Surface
	SendText(text string) error
	SendKey(k protocol.Key) error
	SendVolume(a protocol.VolumeAction) error
	SendWake() error
	ToggleLock()
	CycleSpeed()
	ToggleKeyboard()
	UIState() uistate.State
	Status() transport.Status
}

// Options configure a Host
type Options struct {
	// Title is shown in the status line, usually the target
	Title string

	CellWidth  float64
	CellHeight float64

	// Post hands a closure to the event loop
	Post func(func())

	// OnQuit runs on the loop when the user presses Ctrl+C
	OnQuit func()
}

// Host renders the surface and converts terminal events into pointer
// events. All methods except Run must be called on the loop.
type Host struct {
	screen  tcell.Screen
	surface Surface
	opts    Options

	buttons tcell.ButtonMask
	status  transport.Status
	state   uistate.State

	// pan is the page offset scrolled by the locked pan
	pan     float64
	lastErr string
}

// New creates a host on an initialized screen
func New(screen tcell.Screen, opts Options) *Host {
	if opts.CellWidth <= 0 {
		opts.CellWidth = DefaultCellWidth
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = DefaultCellHeight
	}
	if opts.Post == nil {
		opts.Post = func(fn func()) { fn() }
	}
	screen.EnableMouse(tcell.MouseButtonEvents | tcell.MouseDragEvents)
	return &Host{
		screen: screen,
		opts:   opts,
		state:  uistate.Default(),
	}
}

// Attach connects the host to the session it drives
func (h *Host) Attach(s Surface) {
	h.surface = s
	h.state = s.UIState()
	h.status = s.Status()
	h.Draw()
}

// Run polls terminal events and posts them to the loop until ctx is done or
// the screen is finalized
func (h *Host) Run(ctx context.Context) {
	events := make(chan tcell.Event, 64)
	go func() {
		defer close(events)
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.opts.Post(func() { h.HandleEvent(ev) })
		case <-ctx.Done():
			return
		}
	}
}

// SetStatus shows a new connection status
func (h *Host) SetStatus(st transport.Status) {
	h.status = st
	h.Draw()
}

// SetState shows new toggles
func (h *Host) SetState(st uistate.State) {
	h.state = st
	h.Draw()
}

// ScrollBy moves the page while the surface is locked
func (h *Host) ScrollBy(dy float64) {
	h.pan += dy
	if h.pan < 0 {
		h.pan = 0
	}
	h.Draw()
}

// PanOffset returns the current page offset
func (h *Host) PanOffset() float64 {
	return h.pan
}

// HandleEvent processes one terminal event
func (h *Host) HandleEvent(ev tcell.Event) {
	if h.surface == nil {
		return
	}
	switch ev := ev.(type) {
	case *tcell.EventMouse:
		h.handleMouse(ev)
	case *tcell.EventKey:
		h.handleKey(ev)
	case *tcell.EventResize:
		h.screen.Sync()
		h.Draw()
	}
}

func (h *Host) handleMouse(ev *tcell.EventMouse) {
	cx, cy := ev.Position()
	x := (float64(cx) + 0.5) * h.opts.CellWidth
	y := (float64(cy) + 0.5) * h.opts.CellHeight

	buttons := ev.Buttons() & (tcell.ButtonPrimary | tcell.ButtonSecondary)
	prev := h.buttons
	h.buttons = buttons

	switch {
	case prev == 0 && buttons&tcell.ButtonPrimary != 0:
		h.surface.PointerDown(0, x, y, input.KindTouch)
	case prev == 0 && buttons&tcell.ButtonSecondary != 0:
		h.surface.PointerDown(0, x, y, input.KindTouch)
		h.surface.PointerDown(1, x+fingerGap, y, input.KindTouch)
	case prev != 0 && buttons == 0:
		h.surface.PointerUp(0)
		if prev&tcell.ButtonSecondary != 0 && prev&tcell.ButtonPrimary == 0 {
			h.surface.PointerUp(1)
		}
	case prev != 0:
		// Held buttons keep the contacts they started with
		h.buttons = prev
		h.surface.PointerMove(0, x, y)
		if prev&tcell.ButtonSecondary != 0 && prev&tcell.ButtonPrimary == 0 {
			h.surface.PointerMove(1, x+fingerGap, y)
		}
	}
}

var specialKeys = map[tcell.Key]protocol.Key{
	tcell.KeyEnter:      protocol.KeyEnter,
	tcell.KeyBackspace:  protocol.KeyBackspace,
	tcell.KeyBackspace2: protocol.KeyBackspace,
	tcell.KeyEscape:     protocol.KeyEscape,
	tcell.KeyTab:        protocol.KeyTab,
	tcell.KeyDelete:     protocol.KeyDelete,
	tcell.KeyLeft:       protocol.KeyArrowLeft,
	tcell.KeyRight:      protocol.KeyArrowRight,
	tcell.KeyUp:         protocol.KeyArrowUp,
	tcell.KeyDown:       protocol.KeyArrowDown,
	tcell.KeyHome:       protocol.KeyHome,
	tcell.KeyEnd:        protocol.KeyEnd,
	tcell.KeyPgUp:       protocol.KeyPageUp,
	tcell.KeyPgDn:       protocol.KeyPageDown,
	tcell.KeyF9:         protocol.KeyBack,
	tcell.KeyF10:        protocol.KeySettings,
	tcell.KeyF12:        protocol.KeyPower,
}

func (h *Host) handleKey(ev *tcell.EventKey) {
	var err error
	switch ev.Key() {
	case tcell.KeyCtrlC:
		if h.opts.OnQuit != nil {
			h.opts.OnQuit()
		}
		return
	case tcell.KeyF1:
		h.surface.ToggleLock()
	case tcell.KeyF2:
		h.surface.CycleSpeed()
	case tcell.KeyF3:
		h.surface.ToggleKeyboard()
	case tcell.KeyF4:
		err = h.surface.SendWake()
	case tcell.KeyF5:
		err = h.surface.SendVolume(protocol.VolumeUp)
	case tcell.KeyF6:
		err = h.surface.SendVolume(protocol.VolumeDown)
	case tcell.KeyF7:
		err = h.surface.SendVolume(protocol.VolumeMute)
	case tcell.KeyRune:
		if !h.state.KeyboardOpen {
			return
		}
		if ev.Rune() == ' ' {
			err = h.surface.SendKey(protocol.KeySpace)
		} else {
			err = h.surface.SendText(string(ev.Rune()))
		}
	default:
		k, ok := specialKeys[ev.Key()]
		if !ok {
			return
		}
		err = h.surface.SendKey(k)
	}
	if err != nil {
		h.lastErr = err.Error()
		h.Draw()
	} else if h.lastErr != "" {
		h.lastErr = ""
		h.Draw()
	}
}

var (
	styleBar    = tcell.StyleDefault.Reverse(true)
	stylePad    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleLocked = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

var statusColors = map[transport.Status]tcell.Color{
	transport.StatusConnected:    tcell.ColorGreen,
	transport.StatusConnecting:   tcell.ColorYellow,
	transport.StatusError:        tcell.ColorRed,
	transport.StatusDisconnected: tcell.ColorGray,
}

// Draw renders the status line, the pad and the key help
func (h *Host) Draw() {
	h.screen.Clear()
	w, ht := h.screen.Size()
	if w <= 0 || ht <= 0 {
		return
	}

	top := fmt.Sprintf(" %s  [%s]  x%d", h.opts.Title, h.status, h.state.SpeedMultiplier)
	if h.state.Locked {
		top += "  LOCKED"
	}
	if h.state.KeyboardOpen {
		top += "  KEYBOARD"
	}
	h.fill(0, styleBar)
	h.text(0, 0, top, styleBar.Foreground(statusColors[h.status]))

	padStyle := stylePad
	if h.state.Locked {
		padStyle = styleLocked
	}
	h.box(1, ht-2, w, padStyle)
	if h.state.Locked {
		h.text(2, 2, fmt.Sprintf("page offset %.0f", h.pan), padStyle)
	}
	if h.lastErr != "" {
		h.text(2, ht-3, h.lastErr, tcell.StyleDefault.Foreground(tcell.ColorRed))
	}

	help := " F1 lock  F2 speed  F3 keyboard  F4 wake  F5/F6/F7 volume  F9 back  F10 settings  F12 power  Ctrl+C quit"
	h.fill(ht-1, styleBar)
	h.text(0, ht-1, help, styleBar)
	h.screen.Show()
}

func (h *Host) fill(row int, style tcell.Style) {
	w, _ := h.screen.Size()
	for x := 0; x < w; x++ {
		h.screen.SetContent(x, row, ' ', nil, style)
	}
}

func (h *Host) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		h.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (h *Host) box(y0, y1, w int, style tcell.Style) {
	if y1 <= y0 || w < 2 {
		return
	}
	for x := 1; x < w-1; x++ {
		h.screen.SetContent(x, y0, tcell.RuneHLine, nil, style)
		h.screen.SetContent(x, y1, tcell.RuneHLine, nil, style)
	}
	for y := y0 + 1; y < y1; y++ {
		h.screen.SetContent(0, y, tcell.RuneVLine, nil, style)
		h.screen.SetContent(w-1, y, tcell.RuneVLine, nil, style)
	}
	h.screen.SetContent(0, y0, tcell.RuneULCorner, nil, style)
	h.screen.SetContent(w-1, y0, tcell.RuneURCorner, nil, style)
	h.screen.SetContent(0, y1, tcell.RuneLLCorner, nil, style)
	h.screen.SetContent(w-1, y1, tcell.RuneLRCorner, nil, style)
}
