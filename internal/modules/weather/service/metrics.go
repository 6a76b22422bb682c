package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var readingsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "weather_readings_ingested_total",
	Help: "Readings fetched by the ingest endpoint, by storage result.",
}, []string{"result"})

func observeIngest(inserted bool) {
	result := "skipped"
	if inserted {
		result = "inserted"
	}
	readingsIngestedTotal.WithLabelValues(result).Inc()
}
