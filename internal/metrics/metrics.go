// Package metrics holds the Prometheus collectors for the triage engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// OracleFallbacksTotal counts sub-scores replaced by the neutral default.
// A rising rate usually means the oracle is down.
var OracleFallbacksTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "triage",
	Name:      "oracle_fallbacks_total",
	Help:      "Sub-scores that fell back to the neutral default, by axis",
}, []string{"axis"})

var OracleDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "triage",
	Name:      "oracle_duration_seconds",
	Help:      "Latency of a single oracle classification call",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
}, []string{"axis"})

// IntakesTotal counts intakes by outcome: ok, degraded, failed.
var IntakesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "triage",
	Name:      "intakes_total",
	Help:      "Complaint intakes by outcome",
}, []string{"outcome"})

var UnassignedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "triage",
	Name:      "unassigned_total",
	Help:      "Complaints left unassigned because no agent was available",
})

var CallbacksScheduledTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "triage",
	Name:      "callbacks_scheduled_total",
	Help:      "Callbacks scheduled, by delay tier",
}, []string{"tier"})

var RebalanceMovesTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "triage",
	Name:      "rebalance_moves_total",
	Help:      "Pending complaints moved between agents by rebalancing",
})

var RebalanceOverloadedAgents = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "triage",
	Name:      "rebalance_overloaded_agents",
	Help:      "Overloaded agents found by the last rebalance pass",
})
