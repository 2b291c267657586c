// Package observability holds the Prometheus collectors shared by the service.
package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var datasetLabel atomic.Value

func init() {
	datasetLabel.Store("default")
	for _, c := range collectors() {
		_ = prometheus.DefaultRegisterer.Register(c)
	}
}

// SetDataset sets the dataset label attached to query metrics.
func SetDataset(s string) {
	if s == "" {
		s = "default"
	}
	datasetLabel.Store(s)
}

func getDataset() string {
	if v := datasetLabel.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "default"
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"method", "route", "status"},
	)

	dashboardQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_queries_total",
			Help: "Dashboard queries by outcome (ok or warning kind).",
		},
		[]string{"outcome", "dataset"},
	)

	scaleStrategy = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binscale_strategy_total",
			Help: "Bin scales computed, by strategy.",
		},
		[]string{"strategy", "dataset"},
	)

	renderSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "choropleth_render_duration_seconds",
			Help:    "Time spent building a choropleth payload.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"format", "dataset"},
	)

	sourceCacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_cache_results_total",
			Help: "Process-wide source cache lookups by outcome.",
		},
		[]string{"kind", "outcome"},
	)

	sourceFetchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Time spent reading a source file or URL.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"origin", "result"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis mirror operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of redis mirror operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		dashboardQueries, scaleStrategy, renderSeconds,
		sourceCacheResults, sourceFetchSeconds,
		cacheOpTotal, redisOpSeconds,
	}
}

// Init registers the collectors with reg as well as the default registry.
func Init(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveQuery(outcome string) {
	dashboardQueries.WithLabelValues(outcome, getDataset()).Inc()
}

func ObserveScale(strategy string) {
	scaleStrategy.WithLabelValues(strategy, getDataset()).Inc()
}

func ObserveRender(format string, durationSeconds float64) {
	renderSeconds.WithLabelValues(format, getDataset()).Observe(durationSeconds)
}

func IncSourceCacheHit(kind string) {
	sourceCacheResults.WithLabelValues(kind, "hit").Inc()
}

func IncSourceCacheMiss(kind string) {
	sourceCacheResults.WithLabelValues(kind, "miss").Inc()
}

func ObserveSourceFetch(origin string, err error, durationSeconds float64) {
	sourceFetchSeconds.WithLabelValues(origin, result(err)).Observe(durationSeconds)
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	cacheOpTotal.WithLabelValues(op, result(err)).Inc()
	redisOpSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
