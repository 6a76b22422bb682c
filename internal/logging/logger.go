package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"weather-api/internal/config"
)

// New builds the process logger. Dev builds get coloured tint output,
// everything else gets JSON suitable for log shipping.
func New(cfg config.Config, version string, appName string) *slog.Logger {
	return newLogger(os.Stdout, cfg, version, appName)
}

func newLogger(w io.Writer, cfg config.Config, version string, appName string) *slog.Logger {
	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
			NoColor:    w != os.Stdout,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}
