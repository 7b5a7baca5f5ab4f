// Package uistate persists the small set of user toggles of a touchpad
// surface: lock mode, speed multiplier and whether the keyboard panel is open.
package uistate

import (
	"encoding/json"
	"net/url"
	"strings"
)

const (
	MinSpeed = 1
	MaxSpeed = 4
)

// State is the persisted toggle set
type State struct {
	Locked          bool `json:"locked"`
	SpeedMultiplier int  `json:"speed_multiplier"`
	KeyboardOpen    bool `json:"keyboard_open"`
}

// Default returns the state used when nothing valid is stored
func Default() State {
	return State{SpeedMultiplier: MinSpeed}
}

// Normalize replaces out of range fields with their defaults
func (s State) Normalize() State {
	if s.SpeedMultiplier < MinSpeed || s.SpeedMultiplier > MaxSpeed {
		s.SpeedMultiplier = MinSpeed
	}
	return s
}

// NextSpeed returns the multiplier after n in the 1, 2, 3, 4, 1 cycle
func NextSpeed(n int) int {
	if n < MinSpeed || n >= MaxSpeed {
		return MinSpeed
	}
	return n + 1
}

// Key derives the storage key of one surface placement. Each part is
// escaped so that distinct triples never produce the same key.
func Key(target, view, client string) string {
	parts := []string{target, view, client}
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return "touchpad:ui:" + strings.Join(parts, "|")
}

func decode(data []byte) State {
	// Start from defaults so missing fields keep them
	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		return Default()
	}
	return s.Normalize()
}
