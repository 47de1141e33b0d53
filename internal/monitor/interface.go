package monitor

import (
	"context"
	"time"
)

// Direction fixes which side of a threshold is unsafe for a subtype.
// Rates, counts and ratios alarm above their threshold; distances and
// time-to-event metrics alarm below it.
type Direction int8

const (
	DirectionAbove Direction = iota
	DirectionBelow
)

// Severity is the classified weight of a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Tier is the status contribution of a finding.
type Tier string

const (
	TierNormal  Tier = "normal"
	TierWarning Tier = "warning"
	TierDanger  Tier = "danger"
)

// Well-known detector identifiers.
const (
	DetectorCollision   = "collision"
	DetectorFatigue     = "fatigue"
	DetectorDistraction = "distraction"
	DetectorBehavior    = "behavior"
	DetectorPatterns    = "patterns"
)

// Sample is one timestamped measurement set produced by a sample source.
// Immutable once produced.
type Sample struct {
	DetectorID string
	Timestamp  time.Time
	Values     map[string]float64
	Labels     map[string]string
}

// Finding is an unclassified threshold exceedance. Ephemeral; it is not
// retained beyond the tick that produced it.
type Finding struct {
	DetectorID string
	Subtype    string
	// Key tags grouped findings with the group identity (driver, vehicle,
	// location). Empty for per-entity safety findings.
	Key       string
	Title     string
	Measured  float64
	Threshold float64
	Direction Direction
	Timestamp time.Time
}

// Classified couples a finding with its severity classification.
type Classified struct {
	Finding
	Severity Severity
	Tier     Tier
}

// SubtypeRule describes how one subtype of a detector is evaluated.
type SubtypeRule struct {
	Subtype string
	// Field names the sample value the rule reads. A sample without the
	// field skips this rule.
	Field        string
	ThresholdKey string
	Direction    Direction
	// MinConsecutive is the number of consecutive exceeding ticks required
	// before a finding is raised. Zero and one both fire immediately.
	MinConsecutive int
	Title          string
}

// Source supplies samples for one detector. Pull-based: the detector loop
// calls Next once per tick. A nil sample with nil error means no data is
// available this tick.
type Source interface {
	Next(ctx context.Context) (*Sample, error)
}

// Detector binds a metric stream to threshold configuration. Evaluate may
// carry small per-subtype rolling state (consecutive exceedance counters)
// scoped to the detector instance; it must not retain samples.
type Detector interface {
	ID() string
	Evaluate(sample *Sample, cfg *Thresholds) []Finding
}
