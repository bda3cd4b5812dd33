package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/swipe/internal/adapters/repository"
)

// maxRecommendationLimit caps GET /v1/recommendations?limit.
const maxRecommendationLimit = 30

// RecommendationsHandler serves the list kept by the last refresh.
type RecommendationsHandler struct {
	store repository.Store
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(store repository.Store) *RecommendationsHandler {
	return &RecommendationsHandler{store: store}
}

type recommendationsResponse struct {
	Version     uint64             `json:"version"`
	RefreshedAt *time.Time         `json:"refreshed_at,omitempty"`
	Entries     []repository.Entry `json:"entries"`
}

// HandleList handles GET /v1/recommendations[?limit=N]. Before the first
// refresh the list is empty.
func (h *RecommendationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recommendations"
	limit := maxRecommendationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > maxRecommendationLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	snap, err := h.store.Latest(r.Context())
	if errors.Is(err, repository.ErrNoSnapshot) {
		writeJSON(w, http.StatusOK, recommendationsResponse{Entries: []repository.Entry{}})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	entries := snap.Entries
	if len(entries) > limit {
		entries = entries[:limit]
	}
	refreshed := snap.RefreshedAt
	writeJSON(w, http.StatusOK, recommendationsResponse{
		Version:     snap.Version,
		RefreshedAt: &refreshed,
		Entries:     entries,
	})
}

// HandleRank handles GET /v1/recommendations/{name}.
func (h *RecommendationsHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recommendation_rank"
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.store.Rank(r.Context(), name)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
