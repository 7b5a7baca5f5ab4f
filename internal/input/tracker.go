package input

import (
	"sort"
	"time"
)

// Tracker owns the set of active contacts. It performs no I/O and ignores
// events that do not match its state.
type Tracker struct {
	contacts map[PointerID]*Contact
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{contacts: make(map[PointerID]*Contact)}
}

// Down registers a new contact. It reports false and changes nothing if the
// id is already active.
func (t *Tracker) Down(id PointerID, x, y float64, at time.Time, kind Kind) bool {
	if _, ok := t.contacts[id]; ok {
		return false
	}
	t.contacts[id] = &Contact{
		ID:        id,
		Kind:      kind,
		X:         x,
		Y:         y,
		StartX:    x,
		StartY:    y,
		StartTime: at,
	}
	return true
}

// Move updates the position of an active contact. It reports false for an
// unknown id.
func (t *Tracker) Move(id PointerID, x, y float64) bool {
	c, ok := t.contacts[id]
	if !ok {
		return false
	}
	c.X, c.Y = x, y
	return true
}

// Up removes a contact. Removing an unknown id is a no-op.
func (t *Tracker) Up(id PointerID) {
	delete(t.contacts, id)
}

// Cancel removes a contact exactly like Up
func (t *Tracker) Cancel(id PointerID) {
	delete(t.contacts, id)
}

// Clear removes every contact
func (t *Tracker) Clear() {
	clear(t.contacts)
}

// Get returns a copy of the contact with the given id
func (t *Tracker) Get(id PointerID) (Contact, bool) {
	c, ok := t.contacts[id]
	if !ok {
		return Contact{}, false
	}
	return *c, true
}

// Count returns the number of active contacts
func (t *Tracker) Count() int {
	return len(t.contacts)
}

// IDs returns the active ids in ascending order
func (t *Tracker) IDs() []PointerID {
	ids := make([]PointerID, 0, len(t.contacts))
	for id := range t.contacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Centroid returns the mean position of all active contacts, or the origin
// when there are none.
func (t *Tracker) Centroid() Point {
	if len(t.contacts) == 0 {
		return Point{}
	}
	var sum Point
	for _, c := range t.contacts {
		sum.X += c.X
		sum.Y += c.Y
	}
	n := float64(len(t.contacts))
	return Point{X: sum.X / n, Y: sum.Y / n}
}
