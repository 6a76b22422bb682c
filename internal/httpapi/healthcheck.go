package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"weather-api/internal/utils"
)

const readyTimeout = 2 * time.Second

// ReadinessChecker reports whether storage can serve requests.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

type healthchecker interface {
	handleHealth(w http.ResponseWriter, r *http.Request)
	handleReady(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	ready  ReadinessChecker
	logger *slog.Logger
}

func NewHealthchecker(ready ReadinessChecker, logger *slog.Logger) healthchecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &healthcheckerImpl{ready: ready, logger: logger}
}

// handleHealth is liveness only and never touches storage.
func (h *healthcheckerImpl) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *healthcheckerImpl) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.ready.Ready(ctx); err != nil {
		h.logger.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, ready ReadinessChecker, logger *slog.Logger) {
	healthchecker := NewHealthchecker(ready, logger)
	mux.HandleFunc("GET /health", healthchecker.handleHealth)
	mux.HandleFunc("GET /readyz", healthchecker.handleReady)
}
