// Package api exposes the swipe engine's rendering boundary over HTTP.
//
// Every request that touches the engine is marshalled onto the event loop
// and waits for the loop to run it, so handlers never race the frame ticks.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/okian/swipe/internal/adapters/repository"
	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/swipe"
	"github.com/okian/swipe/pkg/logger"
)

// Engine is the part of the swipe engine the HTTP layer drives. Its
// methods must only be called from the event loop.
type Engine interface {
	StartGesture(p model.Point) bool
	UpdateGesture(p model.Point) bool
	EndGesture(p model.Point) model.Outcome
	LikeButton() bool
	DislikeButton() bool
	CloseDetail() bool
	Retry() bool
	Reset()
	Snapshot() swipe.Snapshot
}

// Executor runs fn on the event loop and waits for it to finish.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Server wires HTTP routes for the engine.
type Server struct {
	engine Engine
	exec   Executor
	recs   repository.Store
	log    logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	recsHandler   *RecommendationsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(engine Engine, exec Executor, recs repository.Store, statsProvider StatsProvider) *Server {
	return &Server{
		engine:        engine,
		exec:          exec,
		recs:          recs,
		log:           logger.Get().Named("api"),
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		recsHandler:   NewRecommendationsHandler(recs),
	}
}

// Routes returns the router with every endpoint attached.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Handle("/metrics", s.healthHandler.MetricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/frame", s.handleFrame)

		r.Route("/gesture", func(r chi.Router) {
			r.Post("/start", s.handleGestureStart)
			r.Post("/move", s.handleGestureMove)
			r.Post("/end", s.handleGestureEnd)
		})

		r.Post("/like", s.handleButton(model.Accept))
		r.Post("/dislike", s.handleButton(model.Reject))
		r.Post("/retry", s.handleRetry)
		r.Post("/reset", s.handleReset)
		r.Post("/detail/close", s.handleCloseDetail)

		r.Get("/recommendations", s.recsHandler.HandleList)
		r.Get("/recommendations/{name}", s.recsHandler.HandleRank)
	})
	return r
}

// onLoop runs fn on the event loop and returns the frame it left behind.
func (s *Server) onLoop(ctx context.Context, op string, fn func()) (swipe.Snapshot, error) {
	var snap swipe.Snapshot
	err := s.exec.Do(ctx, func() {
		if fn != nil {
			fn()
		}
		snap = s.engine.Snapshot()
	})
	if err != nil {
		return swipe.Snapshot{}, WrapKind(op, ErrUnavailable, err)
	}
	return snap, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
