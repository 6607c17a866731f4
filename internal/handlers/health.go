package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/database"
	"github.com/emanueledman/fixa-admin/internal/models"
)

var startTime = time.Now()

// HealthHandler provides health check endpoints
type HealthHandler struct {
	db      database.Pinger
	cache   redis.Cmdable
	version string
	logger  *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler. db and cache may be nil.
func NewHealthHandler(db database.Pinger, cache redis.Cmdable, version string, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, version: version, logger: logger}
}

// Check handles GET /api/v1/health (liveness probe)
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(startTime).Round(time.Second).String(),
	})
}

// Ready handles GET /api/v1/health/ready (readiness probe). Redis is optional
// and only reported; the database must answer.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := models.HealthStatus{
		Status:   "ready",
		Version:  h.version,
		Uptime:   time.Since(startTime).Round(time.Second).String(),
		Database: "connected",
	}

	if h.db == nil {
		status.Database = "not configured"
	} else if err := h.db.Ping(ctx); err != nil {
		h.logger.Warnw("Readiness check failed", "error", err)
		status.Status = "not ready"
		status.Database = "disconnected"
	}

	if h.cache != nil {
		status.Redis = "connected"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			status.Redis = "disconnected"
		}
	}

	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}
