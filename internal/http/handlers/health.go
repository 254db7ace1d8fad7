package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agendohealth/agenda-api/pkg/logging"
)

// DBPinger is the readiness probe surface of the database pool.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db     DBPinger
	redis  *redis.Client
	logger *logging.Logger
}

// NewHealthHandler creates the probe handler. Both dependencies are
// optional; a nil dependency is skipped by the readiness check.
func NewHealthHandler(db DBPinger, redisClient *redis.Client, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{db: db, redis: redisClient, logger: logger}
}

// Liveness reports that the process is up.
// Route: GET /health
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness reports whether the backing stores answer.
// Route: GET /health/ready
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("readiness: database ping failed", "error", err)
			status["database"] = "unreachable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.logger.Error("readiness: redis ping failed", "error", err)
			status["redis"] = "unreachable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}
