package monitor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codeberg.org/mutker/roadwatch/internal/monitor"
)

func TestClassifyAboveDirection(t *testing.T) {
	tests := []struct {
		name     string
		measured float64
		want     monitor.Severity
		wantTier monitor.Tier
	}{
		{"below threshold", 20, monitor.SeverityLow, monitor.TierNormal},
		{"at threshold", 25, monitor.SeverityLow, monitor.TierNormal},
		{"exceeded", 30, monitor.SeverityMedium, monitor.TierWarning},
		{"just under escalation", 37.5, monitor.SeverityMedium, monitor.TierWarning},
		{"escalated", 40, monitor.SeverityHigh, monitor.TierDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := monitor.Classify(monitor.Finding{
				Measured:  tt.measured,
				Threshold: 25,
				Direction: monitor.DirectionAbove,
			}, monitor.DefaultEscalation())

			assert.Equal(t, tt.want, c.Severity)
			assert.Equal(t, tt.wantTier, c.Tier)
		})
	}
}

func TestClassifyBelowDirection(t *testing.T) {
	// Forward distance with a 30m threshold: 25m warns, 14m (< 20m) is
	// danger.
	tests := []struct {
		name     string
		measured float64
		want     monitor.Severity
		wantTier monitor.Tier
	}{
		{"safe", 45, monitor.SeverityLow, monitor.TierNormal},
		{"at threshold", 30, monitor.SeverityLow, monitor.TierNormal},
		{"exceeded", 25, monitor.SeverityMedium, monitor.TierWarning},
		{"at escalation boundary", 20, monitor.SeverityMedium, monitor.TierWarning},
		{"escalated", 14, monitor.SeverityHigh, monitor.TierDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := monitor.Classify(monitor.Finding{
				Measured:  tt.measured,
				Threshold: 30,
				Direction: monitor.DirectionBelow,
			}, monitor.DefaultEscalation())

			assert.Equal(t, tt.want, c.Severity)
			assert.Equal(t, tt.wantTier, c.Tier)
		})
	}
}

func TestClassifyCustomRatios(t *testing.T) {
	ratios := monitor.EscalationRatios{Above: 2.0, Below: 0.5}

	c := monitor.Classify(monitor.Finding{
		Measured:  19,
		Threshold: 10,
		Direction: monitor.DirectionAbove,
	}, ratios)
	assert.Equal(t, monitor.SeverityMedium, c.Severity, "below 2x stays medium")

	c = monitor.Classify(monitor.Finding{
		Measured:  21,
		Threshold: 10,
		Direction: monitor.DirectionAbove,
	}, ratios)
	assert.Equal(t, monitor.SeverityHigh, c.Severity, "past 2x escalates")

	c = monitor.Classify(monitor.Finding{
		Measured:  4,
		Threshold: 10,
		Direction: monitor.DirectionBelow,
	}, ratios)
	assert.Equal(t, monitor.SeverityHigh, c.Severity, "below half escalates")
}

func TestClassifyZeroRatiosFallBack(t *testing.T) {
	c := monitor.Classify(monitor.Finding{
		Measured:  40,
		Threshold: 25,
		Direction: monitor.DirectionAbove,
	}, monitor.EscalationRatios{})

	assert.Equal(t, monitor.SeverityHigh, c.Severity)
}
