package session

import "errors"

// Sentinel kinds for session errors.
var (
	// ErrWatchdog marks a fetch that did not complete within the watchdog.
	ErrWatchdog = errors.New("candidate fetch timed out")
	// ErrLoopClosed marks a completion that could not be delivered.
	ErrLoopClosed = errors.New("event loop closed")
)
