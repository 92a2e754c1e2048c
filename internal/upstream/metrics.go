package upstream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// upstreamRequestsTotal counts downstream calls by service,
	// operation, and outcome. The status label carries the downstream
	// HTTP status code, or "unavailable" for transport failures.
	//
	// Labels: service (user, post, stream), operation (create-post, ...), status
	// Type: Counter
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of requests to downstream services",
		},
		[]string{"service", "operation", "status"},
	)

	// upstreamRequestDuration measures downstream call latency.
	// Use for spotting a slow downstream before it saturates the
	// gateway's per-call timeout.
	//
	// Labels: service, operation
	// Type: Histogram
	// Buckets: Default Prometheus buckets (0.005s to 10s)
	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Downstream request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)
)

func init() {
	prometheus.MustRegister(upstreamRequestsTotal)
	prometheus.MustRegister(upstreamRequestDuration)
}

// recordUpstreamCall records count and duration for one downstream call.
func recordUpstreamCall(service, operation, status string, duration time.Duration) {
	upstreamRequestsTotal.WithLabelValues(service, operation, status).Inc()
	upstreamRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}
