package weather

import (
	"database/sql"
	"log/slog"
	"net/http"

	"weather-api/internal/modules/weather/controller"
	"weather-api/internal/modules/weather/repository"
	"weather-api/internal/modules/weather/service"
)

// RegisterFeature mounts the weather routes on mux and returns the service
// so callers can reuse it for readiness checks. publisher may be nil.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, fetcher service.Fetcher, publisher service.ReadingPublisher, logger *slog.Logger) *service.Service {
	weatherRepository := repository.NewRepository(db)
	weatherService := service.NewService(weatherRepository, fetcher, publisher, logger)
	weatherController := controller.NewWeatherController(weatherService, logger)
	weatherController.RegisterRoutes(mux)
	return weatherService
}
