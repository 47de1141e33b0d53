package monitor

// Collision proximity subtypes.
const (
	SubtypeForwardCollision = "forward_collision"
	SubtypeLaneChange       = "lane_change"
	SubtypeTailgating       = "tailgating"
	SubtypePedestrian       = "pedestrian"
)

// Collision sample fields double as threshold keys.
const (
	FieldForwardDistance    = "forward_distance_m"
	FieldLaneDriftRatio     = "lane_drift_ratio"
	FieldHeadway            = "headway_s"
	FieldPedestrianDistance = "pedestrian_distance_m"
)

func collisionRules() []SubtypeRule {
	return []SubtypeRule{
		{
			Subtype:      SubtypeForwardCollision,
			Field:        FieldForwardDistance,
			ThresholdKey: FieldForwardDistance,
			Direction:    DirectionBelow,
			Title:        "Forward collision risk",
		},
		{
			Subtype:      SubtypeLaneChange,
			Field:        FieldLaneDriftRatio,
			ThresholdKey: FieldLaneDriftRatio,
			Direction:    DirectionAbove,
			Title:        "Unsafe lane change",
		},
		{
			Subtype:      SubtypeTailgating,
			Field:        FieldHeadway,
			ThresholdKey: FieldHeadway,
			Direction:    DirectionBelow,
			Title:        "Tailgating",
		},
		{
			Subtype:      SubtypePedestrian,
			Field:        FieldPedestrianDistance,
			ThresholdKey: FieldPedestrianDistance,
			Direction:    DirectionBelow,
			Title:        "Pedestrian proximity",
		},
	}
}

// DefaultCollisionThresholds returns the stock collision configuration.
func DefaultCollisionThresholds() Thresholds {
	return NewThresholds(map[string]float64{
		FieldForwardDistance:    30,
		FieldLaneDriftRatio:     0.6,
		FieldHeadway:            1.5,
		FieldPedestrianDistance: 10,
	})
}

// NewCollisionDetector builds the collision proximity detector.
func NewCollisionDetector(opts ...Option) *RuleDetector {
	return NewDetector(DetectorCollision, collisionRules(), opts...)
}
