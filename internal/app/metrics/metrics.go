package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "constants_registry",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "constants_registry",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "constants_registry",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path"},
	)

	registryWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "constants_registry",
			Subsystem: "registry",
			Name:      "writes_total",
			Help:      "Total number of write operations by entity, operation and result.",
		},
		[]string{"entity", "op", "result"},
	)

	authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "constants_registry",
			Subsystem: "auth",
			Name:      "rejections_total",
			Help:      "Total number of write requests rejected by the access gate.",
		},
		[]string{"reason"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		registryWrites,
		authRejections,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordHTTPRequest records a completed request. Path should be a route
// template rather than the raw URL to keep label cardinality bounded.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWrite counts a registry write outcome.
func RecordWrite(entity, op, result string) {
	registryWrites.WithLabelValues(entity, op, result).Inc()
}

// RecordAuthRejection counts a write rejected by the access gate.
func RecordAuthRejection(reason string) {
	authRejections.WithLabelValues(reason).Inc()
}
