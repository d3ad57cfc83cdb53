package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxd_relay_requests_total",
		Help: "Relay requests by outcome (ok or failure kind).",
	}, []string{"outcome"})
	upstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxd_relay_upstream_seconds",
		Help:    "Wall time of successful upstream generateContent calls.",
		Buckets: prometheus.DefBuckets,
	})
)
