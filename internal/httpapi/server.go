package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"weather-api/internal/config"
)

const readHeaderTimeout = 5 * time.Second

// Handler wraps h with the middleware chain. The request id is assigned
// first so every later layer can log it.
func Handler(h http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return requestID(recoverer(logger)(requestLogger(logger)(metrics(h))))
}

func NewServer(cfg config.Config, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Handler(mux, logger),
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
