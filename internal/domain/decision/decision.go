// Package decision classifies a released gesture as Accept, Reject or Cancel.
package decision

import (
	"math"

	"github.com/okian/swipe/internal/domain/model"
)

// DefaultCommitThreshold is the |dx| in px past which a release commits.
const DefaultCommitThreshold = 120.0

// Thresholds tune the policy.
type Thresholds struct {
	// CommitPx is the horizontal distance that must be exceeded to commit.
	CommitPx float64
	// FlingVelocity, when positive, also commits a release whose horizontal
	// velocity (px/ms) exceeds it in the direction of travel. Zero disables.
	FlingVelocity float64
}

// Default returns the stock thresholds.
func Default() Thresholds {
	return Thresholds{CommitPx: DefaultCommitThreshold}
}

// Classify maps a released gesture to an outcome. Anything at or under the
// threshold is a Cancel; past it the sign decides, with no dead zone.
func Classify(g model.FinalGesture, t Thresholds) model.Outcome {
	if !(t.CommitPx > 0) {
		t.CommitPx = DefaultCommitThreshold
	}
	dx := g.TotalDX
	if math.IsNaN(dx) {
		return model.Cancel
	}
	switch {
	case dx > t.CommitPx:
		return model.Accept
	case dx < -t.CommitPx:
		return model.Reject
	}
	if t.FlingVelocity > 0 && !math.IsNaN(g.VelocityX) {
		switch {
		case g.VelocityX > t.FlingVelocity && dx > 0:
			return model.Accept
		case g.VelocityX < -t.FlingVelocity && dx < 0:
			return model.Reject
		}
	}
	return model.Cancel
}

// Button returns the synthetic gesture for a like or dislike button press:
// one pixel past the commit threshold in the outcome's direction, so button
// presses share the gesture commit path. Cancel yields a zero gesture.
func Button(outcome model.Outcome, t Thresholds) model.FinalGesture {
	commit := t.CommitPx
	if !(commit > 0) {
		commit = DefaultCommitThreshold
	}
	switch outcome {
	case model.Accept:
		return model.FinalGesture{TotalDX: commit + 1, Travel: commit + 1}
	case model.Reject:
		return model.FinalGesture{TotalDX: -(commit + 1), Travel: commit + 1}
	default:
		return model.FinalGesture{}
	}
}
