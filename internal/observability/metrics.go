package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhaseTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideflow", Name: "phase_transitions_total", Help: "Booking phase transitions"},
		[]string{"from", "to"},
	)
	FareQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideflow", Name: "fare_quotes_total", Help: "Fare quotes by source"},
		[]string{"source"},
	)
	ReconcileAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rideflow", Name: "reconcile_anomalies_total", Help: "Unknown ride statuses resolved by the default phase",
	})
	RemoteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideflow", Name: "remote_failures_total", Help: "Failed backend calls"},
		[]string{"operation"},
	)
	RemoteLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rideflow",
			Name:      "remote_call_duration_seconds",
			Help:      "Backend call latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rideflow", Name: "active_sessions", Help: "Booking sessions held in memory",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideflow", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
)
