package engine

import (
	"time"

	"codeberg.org/mutker/roadwatch/internal/alerting"
	"codeberg.org/mutker/roadwatch/internal/monitor"
	"codeberg.org/mutker/roadwatch/internal/patterns"
	"codeberg.org/mutker/roadwatch/internal/status"
)

// SessionInfo is read-only entity metadata supplied by the caller. It is
// used for display and remaining-time computation only, never for
// detection.
type SessionInfo struct {
	EntityID   string
	ShiftStart time.Time
	ShiftEnd   time.Time
}

// ShiftRemaining returns the time left in the entity's shift, zero once
// the shift is over or when no shift window was supplied.
func (s SessionInfo) ShiftRemaining(now time.Time) time.Duration {
	if s.ShiftEnd.IsZero() || !now.Before(s.ShiftEnd) {
		return 0
	}

	return s.ShiftEnd.Sub(now)
}

// DetectorBinding wires one detector to its sample source and initial
// configuration. Detector instances carry rolling state and must not be
// shared between sessions.
type DetectorBinding struct {
	Detector   monitor.Detector
	Source     monitor.Source
	Thresholds monitor.Thresholds
	Interval   time.Duration
}

// PatternBinding wires the transaction-pattern analyzer to its source.
type PatternBinding struct {
	Analyzer *patterns.Analyzer
	Source   patterns.TransactionSource
	Interval time.Duration
}

// EntityConfig is the initial configuration for one monitored entity.
type EntityConfig struct {
	Info      SessionInfo
	Detectors []DetectorBinding
	Patterns  *PatternBinding
	Pipeline  alerting.Config
	Status    status.Config
}

const defaultTickInterval = 2 * time.Second

// DefaultSafetyBindings builds the four driver-safety detectors with stock
// thresholds, bound to the given sources keyed by detector ID. Detectors
// without a source are left out.
func DefaultSafetyBindings(sources map[string]monitor.Source, interval time.Duration, opts ...monitor.Option) []DetectorBinding {
	if interval <= 0 {
		interval = defaultTickInterval
	}

	builders := []struct {
		id         string
		build      func(...monitor.Option) *monitor.RuleDetector
		thresholds func() monitor.Thresholds
	}{
		{monitor.DetectorCollision, monitor.NewCollisionDetector, monitor.DefaultCollisionThresholds},
		{monitor.DetectorFatigue, monitor.NewFatigueDetector, monitor.DefaultFatigueThresholds},
		{monitor.DetectorDistraction, monitor.NewDistractionDetector, monitor.DefaultDistractionThresholds},
		{monitor.DetectorBehavior, monitor.NewBehaviorDetector, monitor.DefaultBehaviorThresholds},
	}

	var bindings []DetectorBinding
	for _, b := range builders {
		source, ok := sources[b.id]
		if !ok {
			continue
		}
		bindings = append(bindings, DetectorBinding{
			Detector:   b.build(opts...),
			Source:     source,
			Thresholds: b.thresholds(),
			Interval:   interval,
		})
	}

	return bindings
}
