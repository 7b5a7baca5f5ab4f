package input

import (
	"testing"
	"time"
)

// TestTrackerDown tests that contacts are created with fixed start fields
func TestTrackerDown(t *testing.T) {
	tr := NewTracker()
	at := time.Unix(100, 0)

	if !tr.Down(1, 10, 20, at, KindTouch) {
		t.Fatal("Expected first Down to succeed")
	}
	if tr.Down(1, 50, 50, at.Add(time.Second), KindMouse) {
		t.Error("Expected duplicate Down to be rejected")
	}

	c, ok := tr.Get(1)
	if !ok {
		t.Fatal("Contact 1 not found")
	}
	if c.X != 10 || c.Y != 20 || c.StartX != 10 || c.StartY != 20 {
		t.Errorf("Unexpected contact position: %+v", c)
	}
	if !c.StartTime.Equal(at) {
		t.Errorf("Expected start time %v, got %v", at, c.StartTime)
	}
	if c.Kind != KindTouch {
		t.Errorf("Expected kind touch, got %s", c.Kind)
	}
}

// TestTrackerMove tests that moves update position only
func TestTrackerMove(t *testing.T) {
	tr := NewTracker()
	tr.Down(7, 0, 0, time.Unix(0, 0), KindPen)

	if !tr.Move(7, 3, 4) {
		t.Fatal("Expected Move on active contact to succeed")
	}
	c, _ := tr.Get(7)
	if c.X != 3 || c.Y != 4 {
		t.Errorf("Expected position (3, 4), got (%v, %v)", c.X, c.Y)
	}
	if c.StartX != 0 || c.StartY != 0 {
		t.Errorf("Start position changed: (%v, %v)", c.StartX, c.StartY)
	}
	if c.Displacement() != 5 {
		t.Errorf("Expected displacement 5, got %v", c.Displacement())
	}

	if tr.Move(8, 1, 1) {
		t.Error("Expected Move on unknown contact to be a no-op")
	}
	if tr.Count() != 1 {
		t.Errorf("Expected 1 contact, got %d", tr.Count())
	}
}

// TestTrackerUpCancel tests removal, including unknown ids
func TestTrackerUpCancel(t *testing.T) {
	tr := NewTracker()
	tr.Down(1, 0, 0, time.Unix(0, 0), KindTouch)
	tr.Down(2, 0, 0, time.Unix(0, 0), KindTouch)

	tr.Up(1)
	tr.Cancel(2)
	tr.Up(3)
	tr.Cancel(4)

	if tr.Count() != 0 {
		t.Errorf("Expected no contacts, got %d", tr.Count())
	}
}

// TestTrackerCentroid tests the mean position
func TestTrackerCentroid(t *testing.T) {
	tr := NewTracker()
	if p := tr.Centroid(); p != (Point{}) {
		t.Errorf("Expected origin for empty tracker, got %+v", p)
	}

	tr.Down(1, 0, 0, time.Unix(0, 0), KindTouch)
	tr.Down(2, 10, 20, time.Unix(0, 0), KindTouch)
	tr.Down(3, 20, 40, time.Unix(0, 0), KindTouch)

	if p := tr.Centroid(); p.X != 10 || p.Y != 20 {
		t.Errorf("Expected centroid (10, 20), got %+v", p)
	}

	ids := tr.IDs()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("Expected sorted ids [1 2 3], got %v", ids)
	}

	tr.Clear()
	if _, ok := tr.Get(1); ok || tr.Count() != 0 {
		t.Error("Expected Clear to remove all contacts")
	}
}

func TestKindDirect(t *testing.T) {
	if KindMouse.Direct() {
		t.Error("Mouse should not be a direct input")
	}
	if !KindTouch.Direct() || !KindPen.Direct() {
		t.Error("Touch and pen should be direct inputs")
	}
}
