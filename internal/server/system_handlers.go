package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/folio/internal/database"
)

type systemHandler struct {
	databases []*database.DB
	log       zerolog.Logger
}

func newSystemHandler(databases []*database.DB, log zerolog.Logger) *systemHandler {
	return &systemHandler{
		databases: databases,
		log:       log.With().Str("component", "system").Logger(),
	}
}

// handleHealth reports process and database health. Databases get a quick
// ping only; /health/deep runs the integrity check.
func (h *systemHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.respond(ctx, w, func(ctx context.Context, db *database.DB) error {
		return db.QuickCheck(ctx)
	})
}

// handleHealthDeep runs PRAGMA integrity_check on every database. Slow on
// large files, so it sits behind its own route instead of the liveness one.
func (h *systemHandler) handleHealthDeep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	h.respond(ctx, w, func(ctx context.Context, db *database.DB) error {
		return db.HealthCheck(ctx)
	})
}

func (h *systemHandler) respond(ctx context.Context, w http.ResponseWriter, check func(context.Context, *database.DB) error) {
	status := "ok"
	dbStatus := make(map[string]string, len(h.databases))
	for _, db := range h.databases {
		if err := check(ctx, db); err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			dbStatus[db.Name()] = "unhealthy"
			status = "degraded"
		} else {
			dbStatus[db.Name()] = "ok"
		}
	}

	payload := map[string]interface{}{
		"status":    status,
		"databases": dbStatus,
		"timestamp": time.Now().UTC(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		payload["memory_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		payload["cpu_percent"] = percents[0]
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
