package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scripfolio_report_computations_total",
		Help: "Number of portfolio and P&L report computations, by kind and cache outcome.",
	}, []string{"kind", "source"})

	chargePreviews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scripfolio_charge_previews_total",
		Help: "Number of charge preview calculations served.",
	})

	replayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scripfolio_replay_duration_seconds",
		Help:    "Wall time spent replaying a transaction stream for a report.",
		Buckets: prometheus.DefBuckets,
	})
)
