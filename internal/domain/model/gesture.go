package model

// Point is a pointer position in pixels with its event time.
type Point struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	TimestampMs int64   `json:"t"`
}

// GestureSample is a displacement relative to gesture start.
type GestureSample struct {
	DX          float64
	DY          float64
	VelocityX   float64 // px per ms
	TimestampMs int64
}

// FinalGesture summarizes a released gesture.
type FinalGesture struct {
	TotalDX   float64
	TotalDY   float64
	VelocityX float64
	// Travel is the largest distance from the start point seen during the
	// gesture; used to tell a click from a drag that came back.
	Travel float64
}

// Lean is advisory live feedback while dragging.
type Lean int

const (
	LeanNeutral Lean = iota
	LeanPositive
	LeanNegative
)

func (l Lean) String() string {
	switch l {
	case LeanPositive:
		return "positive"
	case LeanNegative:
		return "negative"
	default:
		return "neutral"
	}
}
