package config

import "errors"

var (
	// ErrMissingTarget means no receiver address is configured
	ErrMissingTarget = errors.New("target address is required")

	// ErrInvalidTarget means the receiver address cannot be used
	ErrInvalidTarget = errors.New("invalid target address")

	// ErrInvalidValue means a numeric setting is out of range
	ErrInvalidValue = errors.New("invalid configuration value")
)
