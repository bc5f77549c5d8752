package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/PeterM45/tax-engine/internal/database"
)

// SystemHandlers handles health and system status endpoints.
type SystemHandlers struct {
	cacheDB *database.DB // optional - nil when persistence is disabled
	log     zerolog.Logger
}

// NewSystemHandlers creates a new system handler.
func NewSystemHandlers(cacheDB *database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		cacheDB: cacheDB,
		log:     log.With().Str("handler", "system").Logger(),
	}
}

// HandleHealth handles GET /api/health. Reports the cache database health
// when one is configured.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.cacheDB != nil {
		if err := h.cacheDB.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Cache database health check failed")
			status = "degraded"
		}
	}

	h.writeJSON(w, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleSystemStatus handles GET /api/system/status.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, memUsed := h.getSystemStats()

	h.writeJSON(w, map[string]interface{}{
		"data": map[string]interface{}{
			"cpu_percent":    cpuAvg,
			"memory_percent": memUsed,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// getSystemStats returns average CPU percentage and RAM usage percentage.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
