// Package observability records service metrics. Every helper is a no-op until
// Init has been called with a registry.
package observability

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	codecOps      *prometheus.CounterVec
	cacheOps      *prometheus.CounterVec
	redisDuration *prometheus.HistogramVec
	quoteLookups  *prometheus.CounterVec
	hotCells      *prometheus.GaugeVec
	hitEvents     *prometheus.CounterVec
}

var current atomic.Pointer[collectors]

// Init registers the service collectors on reg. With enabled=false, or a nil
// registry, metrics are switched off.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		current.Store(nil)
		return
	}
	c := &collectors{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"method", "route", "status"},
		),
		codecOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digipin_codec_ops_total",
				Help: "Grid pin encode/decode calls by result.",
			},
			[]string{"op", "result"},
		),
		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_op_total",
				Help: "Quote store operations by result.",
			},
			[]string{"op", "result"},
		),
		redisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redis_operation_duration_seconds",
				Help:    "Latency of redis operations in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"op"},
		),
		quoteLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_lookups_total",
				Help: "Quote lookups by serving tier (lru, redis, miss).",
			},
			[]string{"tier"},
		),
		hotCells: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "digipin_hot_cells",
				Help: "Number of cells currently tracked by the hotness tracker.",
			},
			[]string{"tier"},
		),
		hitEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hit_events_total",
				Help: "Lookup events by outcome (queued, dropped, error, consumed, decode_error, invalid).",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(
		c.httpRequests, c.httpDuration, c.codecOps, c.cacheOps, c.redisDuration,
		c.quoteLookups, c.hotCells, c.hitEvents,
	)
	current.Store(c)
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	c := current.Load()
	if c == nil {
		return
	}
	st := strconv.Itoa(status)
	c.httpRequests.WithLabelValues(method, route, st).Inc()
	c.httpDuration.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveCodec counts one encode or decode call; result is "ok" or an error kind.
func ObserveCodec(op, result string) {
	if c := current.Load(); c != nil {
		c.codecOps.WithLabelValues(op, result).Inc()
	}
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	c := current.Load()
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.cacheOps.WithLabelValues(op, result).Inc()
	c.redisDuration.WithLabelValues(op).Observe(durationSeconds)
}

func IncQuoteLookup(tier string) {
	if c := current.Load(); c != nil {
		c.quoteLookups.WithLabelValues(tier).Inc()
	}
}

func SetHotCellsGauge(tier string, n int) {
	if c := current.Load(); c != nil {
		c.hotCells.WithLabelValues(tier).Set(float64(n))
	}
}

func IncHitEvent(outcome string) {
	if c := current.Load(); c != nil {
		c.hitEvents.WithLabelValues(outcome).Inc()
	}
}
