package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "safetalk",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "safetalk",
		Subsystem: "ws",
		Name:      "connections",
		Help:      "Open WebSocket connections",
	})

	wsRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "safetalk",
		Subsystem: "ws",
		Name:      "rate_limited_total",
		Help:      "Inbound frames rejected by the per-connection rate limit",
	})
)
