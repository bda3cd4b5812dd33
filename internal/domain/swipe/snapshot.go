package swipe

import (
	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/vote"
)

// Card is the display payload of the current candidate.
type Card struct {
	Name          string           `json:"name"`
	TopCategories []model.Category `json:"top_categories"`
}

// Detail is the full payload shown after a click on the card.
type Detail struct {
	Name       string           `json:"name"`
	Categories []model.Category `json:"categories"`
}

// Progress tracks decisions toward a complete evaluation round.
type Progress struct {
	Decided  int  `json:"decided"`
	Minimum  int  `json:"minimum"`
	Complete bool `json:"complete"`
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	Frame      uint64               `json:"frame"`
	Generation uint64               `json:"generation"`
	State      string               `json:"state"`
	Animation  model.AnimationState `json:"animation"`
	Animating  bool                 `json:"animating"`
	Lean       string               `json:"lean"`
	Card       *Card                `json:"card,omitempty"`
	Detail     *Detail              `json:"detail,omitempty"`
	ShowLoader bool                 `json:"show_loader"`
	Error      string               `json:"error,omitempty"`
	CanRetry   bool                 `json:"can_retry"`
	Banner     *vote.Banner         `json:"banner,omitempty"`
	Pending    int                  `json:"pending"`
	Progress   Progress             `json:"progress"`
	Votes      vote.Stats           `json:"votes"`
}

// Snapshot returns the current frame's view of the engine.
func (e *Engine) Snapshot() Snapshot {
	state := e.sess.State()
	snap := Snapshot{
		Frame:      e.frame,
		Generation: e.sess.Generation(),
		State:      state.String(),
		Animation:  e.anim.State(),
		Animating:  e.anim.Active(),
		Lean:       e.gest.Lean().String(),
		ShowLoader: state == model.Loading,
		Pending:    e.sess.Pending(),
		Progress: Progress{
			Decided:  e.sess.Decided(),
			Minimum:  e.minEvaluations,
			Complete: e.sess.Decided() >= e.minEvaluations,
		},
		Votes: e.votes.Stats(),
	}

	if cur, ok := e.sess.Current(); ok {
		snap.Card = &Card{Name: cur.ID(), TopCategories: cur.TopCategories(cardCategories)}
	}
	if e.detail != nil {
		snap.Detail = &Detail{Name: e.detail.ID(), Categories: e.detail.SortedCategories()}
	}

	switch {
	case state == model.Errored:
		if err := e.sess.Err(); err != nil {
			snap.Error = err.Error()
		}
		snap.CanRetry = true
	case e.sess.RefillErr() != nil:
		snap.Error = e.sess.RefillErr().Error()
	}

	if b, ok := e.votes.Banner(); ok {
		snap.Banner = &b
		if b.Retryable && state != model.Errored {
			snap.CanRetry = true
		}
	}
	return snap
}
