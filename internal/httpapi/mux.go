package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewMux(ready ReadinessChecker, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterRoutes(mux, ready, logger)
	return mux
}

// RegisterRoutes adds the operational routes: liveness, readiness and
// metrics.
func RegisterRoutes(mux *http.ServeMux, ready ReadinessChecker, logger *slog.Logger) {
	registerHealthcheck(mux, ready, logger)
	mux.Handle("GET /metrics", promhttp.Handler())
}
