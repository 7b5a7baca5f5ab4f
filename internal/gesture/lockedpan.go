package gesture

import "github.com/michalowskil/lovelace-touchpad-card/internal/input"

// Scroller is the host view that a locked surface hands vertical panning to
type Scroller interface {
	ScrollBy(dy float64)
}

// LockedPan replaces the classifier while the surface is locked. It follows
// a single contact and forwards its vertical motion to the host so the page
// around the surface can be scrolled. Nothing is sent to the receiver.
type LockedPan struct {
	host   Scroller
	active bool
	id     input.PointerID
	lastY  float64
}

// NewLockedPan creates an adapter scrolling host. A nil host is allowed and
// simply discards motion.
func NewLockedPan(host Scroller) *LockedPan {
	return &LockedPan{host: host}
}

// Down starts tracking id unless another contact is already tracked
func (p *LockedPan) Down(id input.PointerID, y float64) {
	if p.active {
		return
	}
	p.active = true
	p.id = id
	p.lastY = y
}

// Move scrolls the host by the inverse of the vertical finger motion
func (p *LockedPan) Move(id input.PointerID, y float64) {
	if !p.active || id != p.id {
		return
	}
	dy := p.lastY - y
	p.lastY = y
	if dy != 0 && p.host != nil {
		p.host.ScrollBy(dy)
	}
}

// Up stops tracking id
func (p *LockedPan) Up(id input.PointerID) {
	if p.active && id == p.id {
		p.active = false
	}
}

// Reset forgets the tracked contact
func (p *LockedPan) Reset() {
	p.active = false
}
