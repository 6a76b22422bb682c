package controller

import (
	"context"
	"log/slog"
	"net/http"

	"weather-api/internal/modules/weather/types"
)

// WeatherService is the use-case surface the handlers depend on.
type WeatherService interface {
	Latest(ctx context.Context, city string) (types.Reading, error)
	Stats(ctx context.Context, city string, n int) (types.Aggregate, error)
	Ingest(ctx context.Context, req types.FetchRequest) (types.IngestResult, error)
	Export(ctx context.Context, city string, limit int) ([]types.Reading, error)
}

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	service WeatherService
	logger  *slog.Logger
}

func NewWeatherController(service WeatherService, logger *slog.Logger) WeatherController {
	if logger == nil {
		logger = slog.Default()
	}
	return &weatherControllerImpl{service: service, logger: logger}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /weather/latest", c.handleLatest)
	mux.HandleFunc("GET /weather/stats", c.handleStats)
	mux.HandleFunc("POST /weather/fetch", c.handleFetch)
	mux.HandleFunc("GET /weather/export", c.handleExport)
}
