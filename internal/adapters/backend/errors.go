package backend

import "errors"

// Error kinds every collaborator failure maps to.
var (
	// ErrNetwork is a transient failure: transport errors, timeouts, an
	// open circuit, 5xx and 429 responses. Retryable by explicit request.
	ErrNetwork = errors.New("backend unavailable")
	// ErrValidation is a permanent rejection such as an unknown candidate.
	ErrValidation = errors.New("backend rejected request")
)

// IsRetryable reports whether err may succeed if the same call is repeated.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}
