package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastline_http_requests_total",
			Help: "Total number of API requests processed",
		},
		[]string{"route", "method", "code"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fastline_http_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route"},
	)

	// Fast lifecycle metrics
	FastsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fastline_fasts_started_total",
			Help: "Total fasts started through the API",
		},
	)

	FastsStopped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fastline_fasts_stopped_total",
			Help: "Total fasts stopped through the API",
		},
	)

	FastsImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fastline_fasts_imported_total",
			Help: "Total fasts written by imports",
		},
	)

	// Day timeline cache metrics
	DayCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastline_day_cache_lookups_total",
			Help: "Day timeline cache lookups by result",
		},
		[]string{"result"},
	)

	ActiveFast = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fastline_active_fast",
			Help: "1 while a fast is in progress, 0 otherwise",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		FastsStarted,
		FastsStopped,
		FastsImported,
		DayCacheLookups,
		ActiveFast,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetActive updates the active fast gauge.
func SetActive(active bool) {
	if active {
		ActiveFast.Set(1)
		return
	}
	ActiveFast.Set(0)
}

// ObserveDayCache records a day timeline cache hit or miss.
func ObserveDayCache(hit bool) {
	if hit {
		DayCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	DayCacheLookups.WithLabelValues("miss").Inc()
}

// ObserveRequest records one finished request.
func ObserveRequest(route, method string, code int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
