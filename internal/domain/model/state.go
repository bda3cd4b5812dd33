package model

// AnimationState is what the renderer draws for the current card.
type AnimationState struct {
	OffsetX     float64 `json:"offset_x"`
	OffsetY     float64 `json:"offset_y"`
	RotationDeg float64 `json:"rotation_deg"`
	Scale       float64 `json:"scale"`
}

// Neutral is the resting pose of a card.
var Neutral = AnimationState{Scale: 1}

// SessionState enumerates the evaluation session lifecycle.
type SessionState int

const (
	Idle SessionState = iota
	Loading
	Presenting
	Deciding
	Submitting
	Exhausted
	Errored
)

func (s SessionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Presenting:
		return "presenting"
	case Deciding:
		return "deciding"
	case Submitting:
		return "submitting"
	case Exhausted:
		return "exhausted"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

// HasCurrent reports whether a candidate is current in this state.
func (s SessionState) HasCurrent() bool {
	return s == Presenting || s == Deciding || s == Submitting
}
