package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// classifications counts verdicts by outcome (clean, flagged, unavailable).
	classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safetalk",
		Subsystem: "moderation",
		Name:      "classifications_total",
		Help:      "Total classification verdicts by outcome",
	}, []string{"outcome"})

	// classifyLatency measures classifier round trips including queueing for a slot.
	classifyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "safetalk",
		Subsystem: "moderation",
		Name:      "classify_latency_seconds",
		Help:      "Classification latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	// accessDenials counts abuse gate evaluations that blocked the user.
	accessDenials = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "safetalk",
		Subsystem: "moderation",
		Name:      "access_denials_total",
		Help:      "Total abuse gate evaluations that denied access",
	})
)
