package api

import (
	"errors"
	"math"
	"net/http"

	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/swipe"
	"github.com/okian/swipe/pkg/logger"
)

const maxBodyBytes = 4 << 10

// pointRequest is one pointer sample: position in px, time in ms.
type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

func (p pointRequest) validate() error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return errors.New("x and y must be finite")
	}
	return nil
}

func (p pointRequest) point() model.Point {
	return model.Point{X: p.X, Y: p.Y, TimestampMs: p.T}
}

// actionResponse reports whether the engine took the input and the frame
// that resulted.
type actionResponse struct {
	Accepted bool           `json:"accepted"`
	Outcome  string         `json:"outcome,omitempty"`
	Frame    swipe.Snapshot `json:"frame"`
}

// handleFrame handles GET /v1/frame.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_frame"
	snap, err := s.onLoop(r.Context(), op, nil)
	if err != nil {
		s.unavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) readPoint(w http.ResponseWriter, r *http.Request, op string) (model.Point, bool) {
	var req pointRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return model.Point{}, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return model.Point{}, false
	}
	return req.point(), true
}

// handleGestureStart handles POST /v1/gesture/start.
func (s *Server) handleGestureStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.gesture_start"
	p, ok := s.readPoint(w, r, op)
	if !ok {
		return
	}
	var accepted bool
	snap, err := s.onLoop(r.Context(), op, func() { accepted = s.engine.StartGesture(p) })
	if err != nil {
		s.unavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Accepted: accepted, Frame: snap})
}

// handleGestureMove handles POST /v1/gesture/move.
func (s *Server) handleGestureMove(w http.ResponseWriter, r *http.Request) {
	const op = "api.gesture_move"
	p, ok := s.readPoint(w, r, op)
	if !ok {
		return
	}
	var accepted bool
	snap, err := s.onLoop(r.Context(), op, func() { accepted = s.engine.UpdateGesture(p) })
	if err != nil {
		s.unavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Accepted: accepted, Frame: snap})
}

// handleGestureEnd handles POST /v1/gesture/end. The outcome is empty when
// no gesture was active.
func (s *Server) handleGestureEnd(w http.ResponseWriter, r *http.Request) {
	const op = "api.gesture_end"
	p, ok := s.readPoint(w, r, op)
	if !ok {
		return
	}
	var (
		outcome  model.Outcome
		accepted bool
	)
	snap, err := s.onLoop(r.Context(), op, func() {
		outcome = s.engine.EndGesture(p)
		accepted = outcome.IsCommit()
	})
	if err != nil {
		s.unavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Accepted: accepted, Outcome: outcome.String(), Frame: snap})
}

// handleButton handles POST /v1/like and /v1/dislike.
func (s *Server) handleButton(outcome model.Outcome) http.HandlerFunc {
	op := "api.button_" + outcome.String()
	press := func(e Engine) bool { return e.LikeButton() }
	if outcome == model.Reject {
		press = func(e Engine) bool { return e.DislikeButton() }
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var accepted bool
		snap, err := s.onLoop(r.Context(), op, func() { accepted = press(s.engine) })
		if err != nil {
			s.unavailable(w, r, err)
			return
		}
		resp := actionResponse{Accepted: accepted, Frame: snap}
		if accepted {
			resp.Outcome = outcome.String()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleRetry handles POST /v1/retry.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	const op = "api.retry"
	var accepted bool
	snap, err := s.onLoop(r.Context(), op, func() { accepted = s.engine.Retry() })
	if err != nil {
		s.unavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Accepted: accepted, Frame: snap})
}

// handleReset handles POST /v1/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset"
	snap, err := s.onLoop(r.Context(), op, s.engine.Reset)
	if err != nil {
		s.unavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Accepted: true, Frame: snap})
}

// handleCloseDetail handles POST /v1/detail/close.
func (s *Server) handleCloseDetail(w http.ResponseWriter, r *http.Request) {
	const op = "api.close_detail"
	var accepted bool
	snap, err := s.onLoop(r.Context(), op, func() { accepted = s.engine.CloseDetail() })
	if err != nil {
		s.unavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Accepted: accepted, Frame: snap})
}

func (s *Server) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Warn(r.Context(), "engine call failed",
		logger.String("path", r.URL.Path),
		logger.Error(err),
	)
	writeError(w, http.StatusServiceUnavailable, "unavailable", err)
}
