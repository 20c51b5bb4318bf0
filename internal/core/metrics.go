package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	onlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "safetalk",
		Subsystem: "presence",
		Name:      "online_users",
		Help:      "Number of users with a live connection",
	})

	// messagesRouted counts send attempts by result (delivered, saved, rejected, failed).
	messagesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safetalk",
		Subsystem: "router",
		Name:      "messages_total",
		Help:      "Total private messages handled by result",
	}, []string{"result"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "safetalk",
		Subsystem: "router",
		Name:      "events_dropped_total",
		Help:      "Events dropped because a receiver queue was full",
	})
)
