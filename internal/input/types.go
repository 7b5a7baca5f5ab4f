// Package input tracks the contact points currently pressed on a touch or
// pointer surface.
package input

import (
	"math"
	"time"
)

// PointerID identifies a contact among the concurrently active ones. Hosts
// may reuse an id once its contact has been released.
type PointerID int64

// Kind is the device that produced a contact
type Kind uint8

const (
	KindMouse Kind = iota
	KindTouch
	KindPen
)

func (k Kind) String() string {
	switch k {
	case KindMouse:
		return "mouse"
	case KindTouch:
		return "touch"
	case KindPen:
		return "pen"
	default:
		return "unknown"
	}
}

// Direct reports whether the kind is a finger or stylus on the surface, as
// opposed to an indirect pointing device.
func (k Kind) Direct() bool {
	return k == KindTouch || k == KindPen
}

// Point is a position in surface pixels
type Point struct {
	X, Y float64
}

// Contact is one pressed pointer. Start fields are fixed at contact-down.
type Contact struct {
	ID        PointerID
	Kind      Kind
	X, Y      float64
	StartX    float64
	StartY    float64
	StartTime time.Time
}

// Displacement is the straight-line distance from the start position
func (c Contact) Displacement() float64 {
	return math.Hypot(c.X-c.StartX, c.Y-c.StartY)
}

// Surface is the host-facing entry point for raw pointer events
type Surface interface {
	PointerDown(id PointerID, x, y float64, kind Kind)
	PointerMove(id PointerID, x, y float64)
	PointerUp(id PointerID)
	PointerCancel(id PointerID)
}
