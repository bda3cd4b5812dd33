package vote

import "errors"

// ErrRetryExhausted marks a vote that failed again after its one explicit retry.
var ErrRetryExhausted = errors.New("vote retry exhausted")
