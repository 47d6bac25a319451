// Package handlers provides HTTP handlers for workload forecasting.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/ingest"
	"github.com/uidai-ops/opsintel/internal/modules/workload"
)

// Handler handles workload HTTP requests
type Handler struct {
	store *ingest.Store
	log   zerolog.Logger
}

// NewHandler creates a new workload handler
func NewHandler(store *ingest.Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "workload").Logger(),
	}
}

// HandleForecast handles GET /api/v1/workload/forecast
// Query params: periods (1-12, default 3), start_date, end_date, districts.
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	periods := 3
	if raw := r.URL.Query().Get("periods"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			http.Error(w, "periods must be an integer between 1 and 12", http.StatusBadRequest)
			return
		}
		periods = parsed
	}

	forecaster := workload.NewForecaster(snap.Enrolment, h.log)
	historical, forecast := forecaster.Forecast(periods)

	points := make([]workload.ForecastPoint, 0, len(historical)+len(forecast))
	points = append(points, historical...)
	points = append(points, forecast...)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": points,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"periods":   periods,
			"load_id":   snap.LoadID.String(),
		},
	})
}

// HandleProjections handles GET /api/v1/workload/projections
// Query params: limit (1-50, default 15), start_date, end_date, districts.
func (h *Handler) HandleProjections(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	limit := 15
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 50 {
			http.Error(w, "limit must be an integer between 1 and 50", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	forecaster := workload.NewForecaster(snap.Enrolment, h.log)
	projections := forecaster.HighLoadDistricts(limit)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": projections,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"load_id":   snap.LoadID.String(),
		},
	})
}

// snapshot resolves the filtered dataset for a request, writing the error
// response itself when the data is unavailable or the filters are invalid.
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
