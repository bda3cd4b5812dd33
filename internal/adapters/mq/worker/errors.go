package worker

import "errors"

// ErrStopped is returned when the loop can no longer run tasks.
var ErrStopped = errors.New("event loop stopped")
