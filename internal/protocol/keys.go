package protocol

// Key is one command of the fixed key vocabulary understood by receivers
type Key string

const (
	KeyEnter      Key = "enter"
	KeyBackspace  Key = "backspace"
	KeyEscape     Key = "escape"
	KeyBack       Key = "back"
	KeyTab        Key = "tab"
	KeySpace      Key = "space"
	KeyDelete     Key = "delete"
	KeyArrowLeft  Key = "arrow_left"
	KeyArrowRight Key = "arrow_right"
	KeyArrowUp    Key = "arrow_up"
	KeyArrowDown  Key = "arrow_down"
	KeyHome       Key = "home"
	KeyEnd        Key = "end"
	KeyPageUp     Key = "page_up"
	KeyPageDown   Key = "page_down"
	KeyPower      Key = "power"
	KeySettings   Key = "settings"
)

// Keys lists the complete vocabulary in a stable order
var Keys = []Key{
	KeyEnter, KeyBackspace, KeyEscape, KeyBack, KeyTab, KeySpace, KeyDelete,
	KeyArrowLeft, KeyArrowRight, KeyArrowUp, KeyArrowDown,
	KeyHome, KeyEnd, KeyPageUp, KeyPageDown, KeyPower, KeySettings,
}

// Valid reports whether k belongs to the vocabulary
func (k Key) Valid() bool {
	for _, known := range Keys {
		if k == known {
			return true
		}
	}
	return false
}

// VolumeAction is a volume control command
type VolumeAction string

const (
	VolumeUp   VolumeAction = "up"
	VolumeDown VolumeAction = "down"
	VolumeMute VolumeAction = "mute"
)

// Valid reports whether a is a known volume action
func (a VolumeAction) Valid() bool {
	switch a {
	case VolumeUp, VolumeDown, VolumeMute:
		return true
	}
	return false
}
