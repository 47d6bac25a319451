// Package handlers provides HTTP handlers for migration analytics.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/ingest"
	"github.com/uidai-ops/opsintel/internal/modules/migration"
)

// Handler handles migration HTTP requests
type Handler struct {
	store *ingest.Store
	log   zerolog.Logger
}

// NewHandler creates a new migration handler
func NewHandler(store *ingest.Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "migration").Logger(),
	}
}

// HandleChoropleth handles GET /api/v1/migration/choropleth
func (h *Handler) HandleChoropleth(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	analyzer := migration.NewAnalyzer(snap.Enrolment, snap.Demographic, h.log)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": analyzer.Choropleth(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"load_id":   snap.LoadID.String(),
		},
	})
}

// HandleTrends handles GET /api/v1/migration/trends
func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	analyzer := migration.NewAnalyzer(snap.Enrolment, snap.Demographic, h.log)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": analyzer.Trends(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"load_id":   snap.LoadID.String(),
		},
	})
}

// HandleSummary handles GET /api/v1/migration/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	analyzer := migration.NewAnalyzer(snap.Enrolment, snap.Demographic, h.log)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": analyzer.MigrationSummary(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"load_id":   snap.LoadID.String(),
		},
	})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*ingest.Snapshot, error) {
	snap, err := h.store.Snapshot()
	if err != nil {
		h.log.Error().Err(err).Msg("Dataset unavailable")
		http.Error(w, "dataset not available", http.StatusServiceUnavailable)
		return nil, err
	}

	start, end, districts, err := ingest.FiltersFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}

	return snap.Filter(start, end, districts), nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
