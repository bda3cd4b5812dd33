package config

import "errors"

// Sentinel kinds for configuration errors.
var (
	// ErrInvalidConfig wraps every validation failure of a loaded Config.
	ErrInvalidConfig = errors.New("invalid swipe config")
	// ErrLoadConfig wraps failures reading the SWIPE_CONFIG file or SWIPE_ env.
	ErrLoadConfig = errors.New("load swipe config")
)
