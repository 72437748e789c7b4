package rest

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tshield",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method, path and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tshield",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	assessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tshield",
		Subsystem: "risk",
		Name:      "assessments_total",
		Help:      "Transaction assessments by decision.",
	}, []string{"decision"})

	profileUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tshield",
		Subsystem: "profile",
		Name:      "updates_total",
		Help:      "Profile mutations by operation.",
	}, []string{"operation"})

	riskScoreDistribution = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tshield",
		Subsystem: "risk",
		Name:      "score",
		Help:      "Distribution of computed risk scores.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})
)

func observeRequest(method, path string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	requestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
	requestsTotal.WithLabelValues(method, path, code).Inc()
}

func observeProfileUpdate(operation string) {
	profileUpdatesTotal.WithLabelValues(operation).Inc()
}

func observeAssessment(decision string, score float64) {
	assessmentsTotal.WithLabelValues(decision).Inc()
	riskScoreDistribution.Observe(score)
}
