package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"codeberg.org/mutker/roadwatch/internal/status"
)

// Collectors bundles the engine's prometheus instrumentation.
type Collectors struct {
	SamplesEvaluated *prometheus.CounterVec
	FindingsRaised   *prometheus.CounterVec
	AlertsPublished  *prometheus.CounterVec
	AlertsSuppressed *prometheus.CounterVec
	MalformedFields  *prometheus.CounterVec
	EntityStatus     *prometheus.GaugeVec
}

// NewCollectors registers the engine collectors on reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	return &Collectors{
		SamplesEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roadwatch_samples_evaluated_total",
			Help: "Samples evaluated per detector.",
		}, []string{"detector"}),
		FindingsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roadwatch_findings_total",
			Help: "Raw findings raised per detector and subtype.",
		}, []string{"detector", "subtype"}),
		AlertsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roadwatch_alerts_published_total",
			Help: "Alerts published per detector and tier.",
		}, []string{"detector", "tier"}),
		AlertsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roadwatch_alerts_suppressed_total",
			Help: "Finding batches suppressed by the dedupe window.",
		}, []string{"detector"}),
		MalformedFields: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roadwatch_malformed_samples_total",
			Help: "Rule evaluations skipped because a sample field was missing.",
		}, []string{"detector", "field"}),
		EntityStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roadwatch_entity_status",
			Help: "Rollup status per entity (0 inactive, 1 normal, 2 warning, 3 danger).",
		}, []string{"entity"}),
	}
}

// StatusValue maps a rollup status onto the gauge scale.
func StatusValue(s status.Status) float64 {
	switch s {
	case status.Normal:
		return 1
	case status.Warning:
		return 2
	case status.Danger:
		return 3
	default:
		return 0
	}
}
