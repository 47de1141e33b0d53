package monitor

// EscalationRatios controls when an exceeded threshold escalates from
// warning to danger. Above applies to above-direction metrics, Below to
// below-direction metrics (time-to-event, distance).
type EscalationRatios struct {
	Above float64
	Below float64
}

// DefaultEscalation returns the stock 1.5x / 2/3x escalation ratios.
func DefaultEscalation() EscalationRatios {
	return EscalationRatios{
		Above: 1.5,
		Below: 2.0 / 3.0,
	}
}

// Classification is the outcome of classifying one finding.
type Classification struct {
	Severity Severity
	Tier     Tier
}

// Classify maps a finding to a severity and status tier. Pure function:
// a value that does not exceed its threshold in the unsafe direction is
// low/normal, an exceedance is medium/warning, and an exceedance beyond
// the escalation ratio is high/danger.
func Classify(f Finding, ratios EscalationRatios) Classification {
	if ratios.Above <= 0 {
		ratios.Above = DefaultEscalation().Above
	}
	if ratios.Below <= 0 {
		ratios.Below = DefaultEscalation().Below
	}

	var exceeded, escalated bool
	switch f.Direction {
	case DirectionBelow:
		exceeded = f.Measured < f.Threshold
		escalated = f.Measured < f.Threshold*ratios.Below
	default:
		exceeded = f.Measured > f.Threshold
		escalated = f.Measured > f.Threshold*ratios.Above
	}

	switch {
	case !exceeded:
		return Classification{Severity: SeverityLow, Tier: TierNormal}
	case escalated:
		return Classification{Severity: SeverityHigh, Tier: TierDanger}
	default:
		return Classification{Severity: SeverityMedium, Tier: TierWarning}
	}
}
