// Package protocol defines the messages exchanged between a touchpad surface
// and the receiving service.
package protocol

import (
	"encoding/json"
	"fmt"
	"math"
)

// MessageType identifies a wire message by its "t" field
type MessageType string

const (
	// TypeMove is a relative pointer displacement
	TypeMove MessageType = "move"

	// TypeScroll is a relative scroll displacement
	TypeScroll MessageType = "scroll"

	TypeClick       MessageType = "click"
	TypeDoubleClick MessageType = "double_click"
	TypeRightClick  MessageType = "right_click"

	// TypeDown and TypeUp bracket a drag with the primary button held
	TypeDown MessageType = "down"
	TypeUp   MessageType = "up"

	// TypeText inserts literal text on the target
	TypeText MessageType = "text"

	// TypeKey sends one command from the fixed key vocabulary
	TypeKey MessageType = "key"

	// TypeVolume changes the target's volume
	TypeVolume MessageType = "volume"

	// TypeWake nudges the target out of a screensaver or lock screen
	TypeWake MessageType = "wake"
)

// Continuous reports whether messages of this type carry motion deltas that
// may be coalesced before sending.
func (t MessageType) Continuous() bool {
	return t == TypeMove || t == TypeScroll
}

func (t MessageType) valid() bool {
	switch t {
	case TypeMove, TypeScroll, TypeClick, TypeDoubleClick, TypeRightClick,
		TypeDown, TypeUp, TypeText, TypeKey, TypeVolume, TypeWake:
		return true
	}
	return false
}

// Message is a single wire record. Only the fields relevant to Type are
// serialized.
type Message struct {
	Type   MessageType
	DX, DY float64
	Text   string
	Key    Key
	Action VolumeAction
}

// wireMessage is the JSON shape of a Message
type wireMessage struct {
	T      MessageType  `json:"t"`
	DX     *float64     `json:"dx,omitempty"`
	DY     *float64     `json:"dy,omitempty"`
	Text   *string      `json:"text,omitempty"`
	Key    Key          `json:"key,omitempty"`
	Action VolumeAction `json:"action,omitempty"`
}

// Move builds a pointer displacement message
func Move(dx, dy float64) Message { return Message{Type: TypeMove, DX: dx, DY: dy} }

// Scroll builds a scroll displacement message
func Scroll(dx, dy float64) Message { return Message{Type: TypeScroll, DX: dx, DY: dy} }

func Click() Message       { return Message{Type: TypeClick} }
func DoubleClick() Message { return Message{Type: TypeDoubleClick} }
func RightClick() Message  { return Message{Type: TypeRightClick} }
func Down() Message        { return Message{Type: TypeDown} }
func Up() Message          { return Message{Type: TypeUp} }
func Wake() Message        { return Message{Type: TypeWake} }

// Text builds a text insertion message
func Text(s string) Message { return Message{Type: TypeText, Text: s} }

// KeyPress builds a key command message
func KeyPress(k Key) Message { return Message{Type: TypeKey, Key: k} }

// Volume builds a volume control message
func Volume(a VolumeAction) Message { return Message{Type: TypeVolume, Action: a} }

// Validate checks that the message is well formed for its type
func (m Message) Validate() error {
	if !m.Type.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	switch m.Type {
	case TypeMove, TypeScroll:
		if !finite(m.DX) || !finite(m.DY) {
			return fmt.Errorf("%w: %s (%v, %v)", ErrInvalidDelta, m.Type, m.DX, m.DY)
		}
	case TypeText:
		if m.Text == "" {
			return ErrEmptyText
		}
	case TypeKey:
		if !m.Key.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownKey, m.Key)
		}
	case TypeVolume:
		if !m.Action.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownVolumeAction, m.Action)
		}
	}
	return nil
}

// MarshalJSON emits only the payload fields belonging to the message type
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{T: m.Type}
	switch m.Type {
	case TypeMove, TypeScroll:
		dx, dy := m.DX, m.DY
		w.DX, w.DY = &dx, &dy
	case TypeText:
		text := m.Text
		w.Text = &text
	case TypeKey:
		w.Key = m.Key
	case TypeVolume:
		w.Action = m.Action
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the wire shape. Missing deltas default to zero.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{Type: w.T, Key: w.Key, Action: w.Action}
	if w.DX != nil {
		m.DX = *w.DX
	}
	if w.DY != nil {
		m.DY = *w.DY
	}
	if w.Text != nil {
		m.Text = *w.Text
	}
	return nil
}

// Encode validates and serializes a message into one transport frame
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Decode parses and validates one transport frame
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
