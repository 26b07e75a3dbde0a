package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/clipper/internal/db"
	"github.com/video-stream/clipper/internal/db/models"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// RunStore reads the run history.
type RunStore interface {
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)
}

type RunHandler struct {
	store RunStore
}

func NewRunHandler(store RunStore) *RunHandler {
	return &RunHandler{store: store}
}

// ListRuns returns the most recent runs, newest first. ?limit= caps the count.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, runs, http.StatusOK)
}

// GetRun returns a single run by ID
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing run ID", http.StatusBadRequest)
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load run", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, run, http.StatusOK)
}
