package server

import "math"

// WheelDelta is the size of one wheel notch in OS wheel units
const WheelDelta = 120

// DefaultScrollScale converts scroll pixels into wheel units
const DefaultScrollScale = 4.0

// MaxDelta bounds the pixels of one move or scroll message
const MaxDelta = 10000.0

func clampDelta(d float64) float64 {
	return math.Max(-MaxDelta, math.Min(MaxDelta, d))
}

// Wheel turns fractional scroll pixels into whole wheel steps, carrying
// the remainder to the next call. One Wheel belongs to one client.
type Wheel struct {
	scale      float64
	remX, remY float64
}

// NewWheel creates a wheel with the given pixel scale
func NewWheel(scale float64) *Wheel {
	if scale <= 0 {
		scale = DefaultScrollScale
	}
	return &Wheel{scale: scale}
}

// Add accumulates a scroll delta and returns the whole steps it completes
func (w *Wheel) Add(dx, dy float64) (stepsX, stepsY int) {
	w.remX += clampDelta(dx) * w.scale
	w.remY += clampDelta(dy) * w.scale

	stepsX = int(w.remX / WheelDelta)
	stepsY = int(w.remY / WheelDelta)

	w.remX -= float64(stepsX * WheelDelta)
	w.remY -= float64(stepsY * WheelDelta)
	return stepsX, stepsY
}
