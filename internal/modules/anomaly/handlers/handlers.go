// Package handlers provides HTTP handlers for anomaly detection.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/domain"
	"github.com/uidai-ops/opsintel/internal/ingest"
	"github.com/uidai-ops/opsintel/internal/modules/anomaly"
)

// Handler handles anomaly HTTP requests
type Handler struct {
	store *ingest.Store
	log   zerolog.Logger
}

// NewHandler creates a new anomaly handler
func NewHandler(store *ingest.Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "anomaly").Logger(),
	}
}

// HandleAnomalies handles GET /api/v1/anomalies
// Query params: severity (Critical, Warning or Info), start_date, end_date,
// districts.
func (h *Handler) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	detector := anomaly.NewDetector(snap.Enrolment, snap.Biometric, snap.Demographic, h.log)
	anomalies := detector.DetectAll()

	if raw := r.URL.Query().Get("severity"); raw != "" {
		severity := domain.Severity(raw)
		if !severity.Valid() {
			http.Error(w, "severity must be Critical, Warning or Info", http.StatusBadRequest)
			return
		}
		anomalies = anomaly.FilterBySeverity(anomalies, severity)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": anomalies,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"load_id":   snap.LoadID.String(),
		},
	})
}

// HandleDistrictHealth handles GET /api/v1/districts/health
func (h *Handler) HandleDistrictHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	detector := anomaly.NewDetector(snap.Enrolment, snap.Biometric, snap.Demographic, h.log)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": detector.HealthScores(),
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
