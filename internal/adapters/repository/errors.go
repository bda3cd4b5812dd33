package repository

import "errors"

// Sentinel kinds for recommendation store errors.
var (
	ErrNotFound     = errors.New("candidate not recommended")
	ErrInvalidLimit = errors.New("invalid recommendation limit")
	ErrNoSnapshot   = errors.New("recommendations not refreshed yet")
)
