package protocol

import "errors"

var (
	// ErrMalformed is returned when a frame is not a JSON object
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownType is returned for an unrecognised "t" field
	ErrUnknownType = errors.New("unknown message type")

	// ErrInvalidDelta is returned when a motion delta is NaN or infinite
	ErrInvalidDelta = errors.New("invalid motion delta")

	// ErrEmptyText is returned for a text message without text
	ErrEmptyText = errors.New("empty text")

	// ErrUnknownKey is returned for a key outside the vocabulary
	ErrUnknownKey = errors.New("unknown key")

	// ErrUnknownVolumeAction is returned for an unsupported volume action
	ErrUnknownVolumeAction = errors.New("unknown volume action")
)
