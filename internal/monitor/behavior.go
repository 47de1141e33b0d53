package monitor

// Driving behavior subtypes.
const (
	SubtypeSpeeding          = "speeding"
	SubtypeHarshBraking      = "harsh_braking"
	SubtypeHarshAcceleration = "harsh_acceleration"
	SubtypeHarshCornering    = "harsh_cornering"
	SubtypeIdling            = "idling"
)

const (
	FieldSpeedOverLimit = "speed_over_limit_kmh"
	FieldDeceleration   = "deceleration_ms2"
	FieldAcceleration   = "acceleration_ms2"
	FieldLateralAccel   = "lateral_accel_ms2"
	FieldIdleDuration   = "idle_duration_min"
)

// Idling only alarms after sustained exceedance; a stoplight is not a
// finding.
const idlingMinConsecutive = 3

func behaviorRules() []SubtypeRule {
	return []SubtypeRule{
		{
			Subtype:      SubtypeSpeeding,
			Field:        FieldSpeedOverLimit,
			ThresholdKey: FieldSpeedOverLimit,
			Direction:    DirectionAbove,
			Title:        "Speeding",
		},
		{
			Subtype:      SubtypeHarshBraking,
			Field:        FieldDeceleration,
			ThresholdKey: FieldDeceleration,
			Direction:    DirectionAbove,
			Title:        "Harsh braking",
		},
		{
			Subtype:      SubtypeHarshAcceleration,
			Field:        FieldAcceleration,
			ThresholdKey: FieldAcceleration,
			Direction:    DirectionAbove,
			Title:        "Harsh acceleration",
		},
		{
			Subtype:      SubtypeHarshCornering,
			Field:        FieldLateralAccel,
			ThresholdKey: FieldLateralAccel,
			Direction:    DirectionAbove,
			Title:        "Harsh cornering",
		},
		{
			Subtype:        SubtypeIdling,
			Field:          FieldIdleDuration,
			ThresholdKey:   FieldIdleDuration,
			Direction:      DirectionAbove,
			MinConsecutive: idlingMinConsecutive,
			Title:          "Excessive idling",
		},
	}
}

// DefaultBehaviorThresholds returns the stock driving behavior configuration.
func DefaultBehaviorThresholds() Thresholds {
	return NewThresholds(map[string]float64{
		FieldSpeedOverLimit: 10,
		FieldDeceleration:   3.5,
		FieldAcceleration:   3.0,
		FieldLateralAccel:   3.2,
		FieldIdleDuration:   10,
	})
}

// NewBehaviorDetector builds the driving behavior detector.
func NewBehaviorDetector(opts ...Option) *RuleDetector {
	return NewDetector(DetectorBehavior, behaviorRules(), opts...)
}
