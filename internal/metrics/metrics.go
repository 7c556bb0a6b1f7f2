// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecomputesTotal counts score recomputations by outcome:
	// changed, unchanged, locked, error.
	RecomputesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veracity_recomputes_total",
		Help: "Score recomputations by outcome.",
	}, []string{"outcome"})

	// CascadeDepth observes how deep cascade propagation reached.
	CascadeDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "veracity_cascade_depth",
		Help:    "Propagation depth of processed cascade jobs.",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})

	// CascadeDroppedTotal counts cascade jobs dropped on a full queue.
	CascadeDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veracity_cascade_dropped_total",
		Help: "Cascade jobs dropped because the queue was full.",
	})

	// CascadeFailuresTotal counts cascade recomputes that exhausted retries.
	CascadeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veracity_cascade_failures_total",
		Help: "Cascade recomputes that failed after all retry attempts.",
	})

	// ChallengeResolutionsTotal counts resolved challenges by resolution.
	ChallengeResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veracity_challenge_resolutions_total",
		Help: "Resolved challenges by resolution.",
	}, []string{"resolution"})

	// HTTPRequestsTotal counts API requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veracity_http_requests_total",
		Help: "HTTP requests by method, path, and status code.",
	}, []string{"method", "path", "status"})
)
