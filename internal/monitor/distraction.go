package monitor

// Distraction subtypes. The camera-inference subtypes carry a 0..1
// confidence value rather than a physical measurement.
const (
	SubtypeEyesOffRoad     = "eyes_off_road"
	SubtypePhoneUsage      = "phone_usage"
	SubtypeEatingDrinking  = "eating_drinking"
	SubtypeSmokingVaping   = "smoking_vaping"
	SubtypeReachingObjects = "reaching_objects"
)

const (
	FieldEyesOffRoadRatio = "eyes_off_road_ratio"
	FieldPhoneUsageConf   = "phone_usage_conf"
	FieldEatingConf       = "eating_drinking_conf"
	FieldSmokingConf      = "smoking_vaping_conf"
	FieldReachingConf     = "reaching_objects_conf"
)

func distractionRules() []SubtypeRule {
	return []SubtypeRule{
		{
			Subtype:      SubtypeEyesOffRoad,
			Field:        FieldEyesOffRoadRatio,
			ThresholdKey: FieldEyesOffRoadRatio,
			Direction:    DirectionAbove,
			Title:        "Eyes off road",
		},
		{
			Subtype:      SubtypePhoneUsage,
			Field:        FieldPhoneUsageConf,
			ThresholdKey: FieldPhoneUsageConf,
			Direction:    DirectionAbove,
			Title:        "Phone usage",
		},
		{
			Subtype:      SubtypeEatingDrinking,
			Field:        FieldEatingConf,
			ThresholdKey: FieldEatingConf,
			Direction:    DirectionAbove,
			Title:        "Eating or drinking",
		},
		{
			Subtype:      SubtypeSmokingVaping,
			Field:        FieldSmokingConf,
			ThresholdKey: FieldSmokingConf,
			Direction:    DirectionAbove,
			Title:        "Smoking or vaping",
		},
		{
			Subtype:      SubtypeReachingObjects,
			Field:        FieldReachingConf,
			ThresholdKey: FieldReachingConf,
			Direction:    DirectionAbove,
			Title:        "Reaching for objects",
		},
	}
}

// DefaultDistractionThresholds returns the stock distraction configuration.
func DefaultDistractionThresholds() Thresholds {
	return NewThresholds(map[string]float64{
		FieldEyesOffRoadRatio: 0.4,
		FieldPhoneUsageConf:   0.7,
		FieldEatingConf:       0.75,
		FieldSmokingConf:      0.75,
		FieldReachingConf:     0.7,
	})
}

// NewDistractionDetector builds the distraction detector.
func NewDistractionDetector(opts ...Option) *RuleDetector {
	return NewDetector(DetectorDistraction, distractionRules(), opts...)
}
