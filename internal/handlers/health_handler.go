package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prudhvinik1/sessionpulse/internal/services"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

type HealthHandler struct {
	heartbeatService *services.HeartbeatService
	logger           *zap.Logger
}

func NewHealthHandler(heartbeatService *services.HeartbeatService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		heartbeatService: heartbeatService,
		logger:           logger,
	}
}

// Health is a liveness probe and never touches the store.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.heartbeatService.Ready(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
