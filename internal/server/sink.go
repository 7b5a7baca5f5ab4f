package server

import (
	"log"
	"math"
	"sync"

	"github.com/michalowskil/lovelace-touchpad-card/internal/protocol"
)

// Action is a decoded message ready to be applied to the target. Move
// deltas are rounded to whole pixels and scroll deltas are wheel steps.
type Action struct {
	Type   protocol.MessageType
	DX, DY int
	Text   string
	Key    protocol.Key
	Volume protocol.VolumeAction
}

// Sink applies actions coming from a client. Apply may be called from
// several client goroutines at once.
type Sink interface {
	Apply(client string, a Action)
}

// LogSink writes every action to a logger
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Apply(client string, a Action) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	switch a.Type {
	case protocol.TypeMove:
		logger.Printf("Input: %s move %d,%d", client, a.DX, a.DY)
	case protocol.TypeScroll:
		logger.Printf("Input: %s wheel %d,%d", client, a.DX, a.DY)
	case protocol.TypeText:
		logger.Printf("Input: %s text %q", client, a.Text)
	case protocol.TypeKey:
		logger.Printf("Input: %s key %s", client, a.Key)
	case protocol.TypeVolume:
		logger.Printf("Input: %s volume %s", client, a.Volume)
	default:
		logger.Printf("Input: %s %s", client, a.Type)
	}
}

// RecordingSink keeps every action in memory
type RecordingSink struct {
	mu      sync.Mutex
	actions []Action
}

func (s *RecordingSink) Apply(client string, a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, a)
}

// Actions returns a copy of the recorded actions
func (s *RecordingSink) Actions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Action(nil), s.actions...)
}

// toAction converts a message. It reports false when the message has no
// effect, such as a scroll smaller than one wheel step.
func toAction(m protocol.Message, wheel *Wheel) (Action, bool) {
	a := Action{Type: m.Type, Text: m.Text, Key: m.Key, Volume: m.Action}
	if !m.Type.Continuous() {
		return a, true
	}
	if m.Type == protocol.TypeScroll {
		a.DX, a.DY = wheel.Add(m.DX, m.DY)
	} else {
		a.DX, a.DY = int(math.Round(clampDelta(m.DX))), int(math.Round(clampDelta(m.DY)))
	}
	return a, a.DX != 0 || a.DY != 0
}
