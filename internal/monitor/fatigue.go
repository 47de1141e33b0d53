package monitor

// Driver fatigue subtypes.
const (
	SubtypeBlinkRate       = "blink_rate"
	SubtypeYawnCount       = "yawn_count"
	SubtypeEyesClosedRatio = "eyes_closed_ratio"
)

const (
	FieldBlinkRate       = "blink_rate_per_min"
	FieldYawnCount       = "yawn_count"
	FieldEyesClosedRatio = "eyes_closed_ratio"
)

func fatigueRules() []SubtypeRule {
	return []SubtypeRule{
		{
			Subtype:      SubtypeBlinkRate,
			Field:        FieldBlinkRate,
			ThresholdKey: FieldBlinkRate,
			Direction:    DirectionAbove,
			Title:        "Elevated blink rate",
		},
		{
			Subtype:      SubtypeYawnCount,
			Field:        FieldYawnCount,
			ThresholdKey: FieldYawnCount,
			Direction:    DirectionAbove,
			Title:        "Frequent yawning",
		},
		{
			Subtype:      SubtypeEyesClosedRatio,
			Field:        FieldEyesClosedRatio,
			ThresholdKey: FieldEyesClosedRatio,
			Direction:    DirectionAbove,
			Title:        "Eyes closed",
		},
	}
}

// DefaultFatigueThresholds returns the stock fatigue configuration.
func DefaultFatigueThresholds() Thresholds {
	return NewThresholds(map[string]float64{
		FieldBlinkRate:       25,
		FieldYawnCount:       4,
		FieldEyesClosedRatio: 0.3,
	})
}

// NewFatigueDetector builds the driver fatigue detector.
func NewFatigueDetector(opts ...Option) *RuleDetector {
	return NewDetector(DetectorFatigue, fatigueRules(), opts...)
}
