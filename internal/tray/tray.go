// Package tray shows the receiver in the system tray using getlantern/systray.
package tray

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray shows the listen address and the number of connected surfaces
type Tray struct {
	addr   string
	onQuit func()

	mu      sync.Mutex
	clients int
	status  *systray.MenuItem

	quitCh chan struct{}
}

// New creates a tray for a receiver listening on addr. onQuit runs when
// the user picks Quit.
func New(addr string, onQuit func()) *Tray {
	return &Tray{
		addr:   addr,
		onQuit: onQuit,
		quitCh: make(chan struct{}),
	}
}

// Run starts the tray event loop. It blocks and must be called from the
// main goroutine.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// Stop removes the icon and makes Run return
func (t *Tray) Stop() {
	systray.Quit()
}

// SetClients updates the surface count. It may be called from any
// goroutine, before or after the tray is ready.
func (t *Tray) SetClients(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients = n
	if t.status != nil {
		t.status.SetTitle(statusText(n))
	}
}

func (t *Tray) setupMenu() {
	systray.SetTitle("Touchpad")
	systray.SetTooltip("Touchpad receiver on " + t.addr)
	systray.SetIcon(icon())

	addr := systray.AddMenuItem("Listening on "+t.addr, "")
	addr.Disable()

	t.mu.Lock()
	t.status = systray.AddMenuItem(statusText(t.clients), "")
	t.status.Disable()
	t.mu.Unlock()

	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Stop the receiver")

	go func() {
		select {
		case <-quit.ClickedCh:
			if t.onQuit != nil {
				t.onQuit()
			}
			systray.Quit()
		case <-t.quitCh:
		}
	}()
}

func statusText(n int) string {
	switch n {
	case 0:
		return "No surfaces connected"
	case 1:
		return "1 surface connected"
	default:
		return fmt.Sprintf("%d surfaces connected", n)
	}
}

const iconSize = 16

// icon returns a 16x16 32-bit ICO with an outlined pad
func icon() []byte {
	const (
		headerLen = 6 + 16
		dibLen    = 40
		pixelLen  = iconSize * iconSize * 4
		maskLen   = iconSize * 4
	)
	buf := make([]byte, headerLen+dibLen+pixelLen+maskLen)

	// ICONDIR + one ICONDIRENTRY
	binary.LittleEndian.PutUint16(buf[2:], 1)
	binary.LittleEndian.PutUint16(buf[4:], 1)
	buf[6], buf[7] = iconSize, iconSize
	binary.LittleEndian.PutUint16(buf[10:], 1)
	binary.LittleEndian.PutUint16(buf[12:], 32)
	binary.LittleEndian.PutUint32(buf[14:], dibLen+pixelLen+maskLen)
	binary.LittleEndian.PutUint32(buf[18:], headerLen)

	// BITMAPINFOHEADER, height doubled for the mask
	dib := buf[headerLen:]
	binary.LittleEndian.PutUint32(dib[0:], dibLen)
	binary.LittleEndian.PutUint32(dib[4:], iconSize)
	binary.LittleEndian.PutUint32(dib[8:], iconSize*2)
	binary.LittleEndian.PutUint16(dib[12:], 1)
	binary.LittleEndian.PutUint16(dib[14:], 32)
	binary.LittleEndian.PutUint32(dib[20:], pixelLen)

	// BGRA rows, bottom-up
	px := dib[dibLen:]
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			if !onPad(x, y) {
				continue
			}
			i := ((iconSize-1-y)*iconSize + x) * 4
			px[i], px[i+1], px[i+2], px[i+3] = 0xf0, 0xf0, 0xf0, 0xff
		}
	}
	return buf
}

// onPad reports whether pixel x,y belongs to the pad outline or its
// button bar
func onPad(x, y int) bool {
	const lo, hi = 1, iconSize - 2
	if x < lo || x > hi || y < lo || y > hi {
		return false
	}
	if (x == lo || x == hi) && (y == lo || y == hi) {
		return false
	}
	return x == lo || x == hi || y == lo || y == hi || y == hi-3
}
