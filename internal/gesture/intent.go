package gesture

import "github.com/michalowskil/lovelace-touchpad-card/internal/protocol"

// IntentKind is the semantic meaning of a classified gesture
type IntentKind uint8

const (
	IntentMove IntentKind = iota
	IntentScroll
	IntentClick
	IntentDoubleClick
	IntentRightClick
	IntentDown
	IntentUp
)

var intentNames = [...]string{
	IntentMove:        "move",
	IntentScroll:      "scroll",
	IntentClick:       "click",
	IntentDoubleClick: "double_click",
	IntentRightClick:  "right_click",
	IntentDown:        "down",
	IntentUp:          "up",
}

func (k IntentKind) String() string {
	if int(k) < len(intentNames) {
		return intentNames[k]
	}
	return "unknown"
}

// Intent is one classifier output. DX and DY are raw surface pixels and are
// only set for move and scroll.
type Intent struct {
	Kind   IntentKind
	DX, DY float64
}

// Continuous reports whether the intent carries motion to be accumulated
func (i Intent) Continuous() bool {
	return i.Kind == IntentMove || i.Kind == IntentScroll
}

// Message converts an intent into its wire message. Motion intents convert
// with their raw deltas. An unknown kind yields the zero Message, which
// fails validation.
func (i Intent) Message() protocol.Message {
	switch i.Kind {
	case IntentMove:
		return protocol.Move(i.DX, i.DY)
	case IntentScroll:
		return protocol.Scroll(i.DX, i.DY)
	case IntentClick:
		return protocol.Click()
	case IntentDoubleClick:
		return protocol.DoubleClick()
	case IntentRightClick:
		return protocol.RightClick()
	case IntentDown:
		return protocol.Down()
	case IntentUp:
		return protocol.Up()
	default:
		return protocol.Message{}
	}
}
