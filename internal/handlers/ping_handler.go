package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/prudhvinik1/sessionpulse/internal/metrics"
	"github.com/prudhvinik1/sessionpulse/internal/services"
	"go.uber.org/zap"
)

type PingHandler struct {
	heartbeatService *services.HeartbeatService
	logger           *zap.Logger
}

func NewPingHandler(heartbeatService *services.HeartbeatService, logger *zap.Logger) *PingHandler {
	return &PingHandler{
		heartbeatService: heartbeatService,
		logger:           logger,
	}
}

type PingResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

// Ping records a heartbeat for the session in the request body.
func (h *PingHandler) Ping(w http.ResponseWriter, r *http.Request) {
	req, err := decodePingRequest(r.Body)
	if err != nil {
		metrics.PingsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.heartbeatService.Record(r.Context(), req)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			respondWithError(w, http.StatusBadRequest, validationErr.Message)
			return
		}

		h.logger.Error("Failed to record ping",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondWithJSON(w, http.StatusOK, PingResponse{Success: true, SessionID: session.SessionID})
}

// decodePingRequest reads exactly one JSON object. An empty body yields a
// zero request so the session_id check reports it.
func decodePingRequest(body io.Reader) (services.PingRequest, error) {
	var req services.PingRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, errors.New("unexpected data after JSON body")
	}
	return req, nil
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}
