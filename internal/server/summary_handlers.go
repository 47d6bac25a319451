package server

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/config"
	"github.com/uidai-ops/opsintel/internal/ingest"
	"github.com/uidai-ops/opsintel/internal/modules/aggregate"
	"github.com/uidai-ops/opsintel/internal/modules/anomaly"
	"github.com/uidai-ops/opsintel/internal/modules/migration"
	"github.com/uidai-ops/opsintel/internal/modules/workload"
)

// SummaryHandlers assembles the analyzer outputs into the dashboard
// payloads. The analytics modules stay independent; this is the only place
// their results are combined.
type SummaryHandlers struct {
	store *ingest.Store
	log   zerolog.Logger
}

// NewSummaryHandlers creates the dashboard summary handlers
func NewSummaryHandlers(store *ingest.Store, log zerolog.Logger) *SummaryHandlers {
	return &SummaryHandlers{
		store: store,
		log:   log.With().Str("handler", "summary").Logger(),
	}
}

// KPIs are the dashboard headline numbers.
type KPIs struct {
	TotalEnrolments        int     `json:"totalEnrolments"`
	PredictedUpdates       int     `json:"predictedUpdates"`
	HighMigrationDistricts int     `json:"highMigrationDistricts"`
	CriticalAnomalies      int     `json:"criticalAnomalies"`
	AvgHealthScore         float64 `json:"avgHealthScore"`
}

// DashboardSummary is the combined payload of all three analyzers.
type DashboardSummary struct {
	KPIs      KPIs              `json:"kpis"`
	Workload  workload.Summary  `json:"workload"`
	Migration migration.Summary `json:"migration"`
	Anomalies anomaly.Summary   `json:"anomalies"`
	DateRange map[string]string `json:"dateRange"`
	Districts []string          `json:"districts"`
}

// HandleDashboardSummary handles GET /api/v1/summary
func (h *SummaryHandlers) HandleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	forecaster := workload.NewForecaster(snap.Enrolment, h.log)
	migrationAnalyzer := migration.NewAnalyzer(snap.Enrolment, snap.Demographic, h.log)
	detector := anomaly.NewDetector(snap.Enrolment, snap.Biometric, snap.Demographic, h.log)

	workloadSummary := forecaster.WorkloadSummary()
	migrationSummary := migrationAnalyzer.MigrationSummary()
	anomalySummary := detector.AnomalySummary()
	healthScores := detector.HealthScores()

	var totalEnrolments int
	for _, rec := range snap.Enrolment {
		totalEnrolments += rec.TotalEnrolments()
	}

	avgHealth := 0.0
	if len(healthScores) > 0 {
		for _, hs := range healthScores {
			avgHealth += hs.HealthScore
		}
		avgHealth = math.Round(avgHealth/float64(len(healthScores))*10) / 10
	}

	dateRange := map[string]string{}
	if min, max, ok := snap.DateRange(); ok {
		dateRange["min"] = min.Format("2006-01-02")
		dateRange["max"] = max.Format("2006-01-02")
	}

	districts := snap.Districts()
	sort.Strings(districts)

	summary := DashboardSummary{
		KPIs: KPIs{
			TotalEnrolments:        totalEnrolments,
			PredictedUpdates:       workloadSummary.TotalProjectedUpdates,
			HighMigrationDistricts: migrationSummary.HighMigrationCount,
			CriticalAnomalies:      anomalySummary.CriticalCount,
			AvgHealthScore:         avgHealth,
		},
		Workload:  workloadSummary,
		Migration: migrationSummary,
		Anomalies: anomalySummary,
		DateRange: dateRange,
		Districts: districts,
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"load_id":   snap.LoadID.String(),
		},
	})
}

// HandleEnrolmentsByDistrict handles GET /api/v1/enrolments/by-district
func (h *SummaryHandlers) HandleEnrolmentsByDistrict(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	rows := aggregate.CombineDistricts(snap.Enrolment, snap.Demographic, snap.Biometric)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalEnrolments != rows[j].TotalEnrolments {
			return rows[i].TotalEnrolments > rows[j].TotalEnrolments
		}
		return rows[i].District < rows[j].District
	})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rows,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"load_id":   snap.LoadID.String(),
		},
	})
}

// HandleAgeDistribution handles GET /api/v1/enrolments/age-distribution
func (h *SummaryHandlers) HandleAgeDistribution(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(w, r)
	if err != nil {
		return
	}

	var age0to5, age5to17, age18Plus int
	for _, rec := range snap.Enrolment {
		age0to5 += rec.Age0to5
		age5to17 += rec.Age5to17
		age18Plus += rec.Age18Plus
	}
	total := age0to5 + age5to17 + age18Plus

	pct := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return math.Round(float64(n)/float64(total)*1000) / 10
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"totals": map[string]int{
				"age_0_5":        age0to5,
				"age_5_17":       age5to17,
				"age_18_greater": age18Plus,
			},
			"percentages": map[string]float64{
				"age_0_5":        pct(age0to5),
				"age_5_17":       pct(age5to17),
				"age_18_greater": pct(age18Plus),
			},
			"total": total,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"load_id":   snap.LoadID.String(),
		},
	})
}

// HandleConfig handles GET /api/v1/config: the canonical district list and
// the analytics thresholds the UI mirrors.
func (h *SummaryHandlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"districts": config.Districts,
			"thresholds": map[string]float64{
				"migration_high":   config.MigrationThresholdHigh,
				"migration_medium": config.MigrationThresholdMedium,
				"anomaly_std":      config.AnomalyStdThreshold,
				"gender_lower":     config.GenderRatioLower,
				"gender_upper":     config.GenderRatioUpper,
			},
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *SummaryHandlers) snapshot(w http.ResponseWriter, r *http.Request) (*ingest.Snapshot, error) {
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

func (h *SummaryHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
