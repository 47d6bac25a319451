package server

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/uidai-ops/opsintel/internal/ingest"
)

// SystemHandlers handles liveness and system monitoring endpoints
type SystemHandlers struct {
	store       *ingest.Store
	log         zerolog.Logger
	startupTime time.Time
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(store *ingest.Store, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		store:       store,
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
	}
}

// HandleHealth handles GET /health - a plain liveness check used by
// deployment probes. Always 200 once the process is up; dataset state is
// reported but does not fail the probe.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"service":     "opsintel",
		"data_loaded": h.store.Loaded(),
	})
}

// HandleSystemHealth handles GET /api/system/health with process and host
// statistics plus the dataset snapshot status.
func (h *SystemHandlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(h.startupTime).Seconds()),
		"pid":            os.Getpid(),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
		"data_loaded":    h.store.Loaded(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response["host_memory_used_percent"] = vm.UsedPercent
	} else {
		h.log.Debug().Err(err).Msg("Failed to read host memory stats")
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response["host_cpu_percent"] = percents[0]
	} else if err != nil {
		h.log.Debug().Err(err).Msg("Failed to read host CPU stats")
	}

	if h.store.Loaded() {
		if snap, err := h.store.Snapshot(); err == nil {
			response["dataset"] = map[string]interface{}{
				"load_id":          snap.LoadID.String(),
				"loaded_at":        snap.LoadedAt.Format(time.RFC3339),
				"enrolment_rows":   len(snap.Enrolment),
				"biometric_rows":   len(snap.Biometric),
				"demographic_rows": len(snap.Demographic),
			}
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
