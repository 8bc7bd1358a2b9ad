package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request results.
const (
	resultOK       = "ok"
	resultEmpty    = "empty"
	resultTooShort = "too_short"
	resultError    = "error"
)

// Spell retry results.
const (
	retryApplied  = "applied"
	retryReverted = "reverted"
)

var (
	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search requests by mode and result",
		},
		[]string{"mode", "result"},
	)

	spellRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_spell_retries_total",
			Help: "Total number of searches repeated with a spell correction",
		},
		[]string{"result"},
	)

	backendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_backend_duration_seconds",
			Help:    "Duration of search backend calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"attempt"},
	)
)
