package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check result labels.
const (
	checkDeliverable   = "deliverable"
	checkUndeliverable = "undeliverable"
	checkError         = "error"
	checkCanceled      = "canceled"
)

const outcomeFound = "found"

var (
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailfinder_resolutions_total",
			Help: "Total number of resolutions by outcome (found or the not-found reason)",
		},
		[]string{"outcome"},
	)

	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailfinder_verification_checks_total",
			Help: "Total number of candidate verification checks by result",
		},
		[]string{"result"},
	)

	resolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailfinder_resolution_duration_seconds",
			Help:    "Wall-clock duration of a resolution",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		},
	)
)
