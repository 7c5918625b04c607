package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/atinyakov/kidcoin/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// ActivityLister defines the history operations required by the HTTP
// handlers.
type ActivityLister interface {
	// Recent returns up to limit retained lines, newest first.
	Recent(ctx context.Context, limit int) ([]models.ActivityRecord, error)
}

// ActivityHandler serves GET /api/activity.
type ActivityHandler struct {
	// Service lists the retained activity lines.
	Service ActivityLister
}

// Recent handles history requests. The optional "limit" query parameter
// is capped; invalid values fall back to the default.
func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := h.Service.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.ActivityRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}
