package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"location-tracking-core/internal/infrastructure/storage"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports liveness and readiness. Only the storage backend is
// hard-required; redis and mqtt are optional collaborators and report as
// degraded rather than failing readiness.
type HealthHandler struct {
	store *storage.Store
	redis HealthChecker
	mqtt  interface{ IsConnected() bool }
}

func NewHealthHandler(
	store *storage.Store,
	redis HealthChecker,
	mqtt interface{ IsConnected() bool },
) *HealthHandler {
	return &HealthHandler{
		store: store,
		redis: redis,
		mqtt:  mqtt,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "location-tracking-core",
		"storage":   h.store.Name,
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)

	if err := h.store.HealthCheck(ctx); err != nil {
		checks["storage"] = "unhealthy: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"checks": checks,
		})
		return
	}
	checks["storage"] = "healthy (" + h.store.Name + ")"

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			checks["redis"] = "degraded: " + err.Error()
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "disabled"
	}

	if h.mqtt != nil {
		if h.mqtt.IsConnected() {
			checks["mqtt"] = "healthy"
		} else {
			checks["mqtt"] = "degraded: not connected"
		}
	} else {
		checks["mqtt"] = "disabled"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": checks,
	})
}
