package openmeteo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK          = "ok"
	outcomeTransport   = "transport_error"
	outcomeBadStatus   = "bad_status"
	outcomeDecode      = "decode_error"
	outcomeCircuitOpen = "circuit_open"
	outcomeCanceled    = "canceled"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_upstream_requests_total",
		Help: "Upstream weather provider calls by outcome.",
	}, []string{"outcome"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weather_upstream_request_duration_seconds",
		Help:    "Upstream weather provider call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
)

func observeUpstream(outcome string, start time.Time) {
	upstreamRequestsTotal.WithLabelValues(outcome).Inc()
	upstreamRequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
