package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/roadwatch/internal/monitor"
)

func warning(subtype string) monitor.Classified {
	return monitor.Classified{
		Finding:  monitor.Finding{DetectorID: monitor.DetectorBehavior, Subtype: subtype},
		Severity: monitor.SeverityMedium,
		Tier:     monitor.TierWarning,
	}
}

func danger(subtype string) monitor.Classified {
	return monitor.Classified{
		Finding:  monitor.Finding{DetectorID: monitor.DetectorBehavior, Subtype: subtype},
		Severity: monitor.SeverityHigh,
		Tier:     monitor.TierDanger,
	}
}

func TestAggregatorInactiveUntilSampled(t *testing.T) {
	agg := NewAggregator(Config{})
	assert.Equal(t, Inactive, agg.Status().Status)

	agg.Activate()
	assert.Equal(t, Inactive, agg.Status().Status, "activation alone does not sample")

	// A no-data tick keeps the entity inactive.
	agg.ClearDetector(monitor.DetectorBehavior)
	assert.Equal(t, Inactive, agg.Status().Status)

	// The first real tick flips it to normal.
	agg.SetFindings(monitor.DetectorBehavior, nil)
	assert.Equal(t, Normal, agg.Status().Status)
}

func TestAggregatorRollup(t *testing.T) {
	tests := []struct {
		name     string
		findings []monitor.Classified
		want     Status
	}{
		{"clean tick", nil, Normal},
		{"one warning subtype", []monitor.Classified{warning("speeding")}, Warning},
		{"two warning subtypes", []monitor.Classified{warning("speeding"), warning("idling")}, Danger},
		{"single danger finding", []monitor.Classified{danger("speeding")}, Danger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(Config{})
			agg.Activate()
			agg.SetFindings(monitor.DetectorBehavior, tt.findings)
			assert.Equal(t, tt.want, agg.Status().Status)
		})
	}
}

func TestAggregatorCombinesDetectors(t *testing.T) {
	agg := NewAggregator(Config{})
	agg.Activate()

	agg.SetFindings(monitor.DetectorBehavior, []monitor.Classified{warning("speeding")})
	assert.Equal(t, Warning, agg.Status().Status)

	// A second detector's subtype pushes the combined rollup to danger.
	agg.SetFindings(monitor.DetectorFatigue, []monitor.Classified{warning("blink_rate")})
	assert.Equal(t, Danger, agg.Status().Status)

	// Clearing one of them drops back to warning.
	agg.SetFindings(monitor.DetectorFatigue, nil)
	assert.Equal(t, Warning, agg.Status().Status)
}

func TestAggregatorDeactivate(t *testing.T) {
	agg := NewAggregator(Config{})
	agg.Activate()
	agg.SetFindings(monitor.DetectorBehavior, []monitor.Classified{danger("speeding")})
	require.Equal(t, Danger, agg.Status().Status)

	agg.Deactivate()
	assert.Equal(t, Inactive, agg.Status().Status)

	// Updates after deactivation are ignored.
	agg.SetFindings(monitor.DetectorBehavior, []monitor.Classified{danger("speeding")})
	assert.Equal(t, Inactive, agg.Status().Status)
}

func TestFlashSetOnTransitionAndExpires(t *testing.T) {
	clock := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	agg := NewAggregator(Config{FlashDuration: 3 * time.Second})
	agg.now = func() time.Time { return clock }
	agg.Activate()

	agg.SetFindings(monitor.DetectorBehavior, nil)
	assert.False(t, agg.Status().Flash)

	agg.SetFindings(monitor.DetectorBehavior, []monitor.Classified{warning("speeding")})
	assert.True(t, agg.Status().Flash)

	// Still inside the flash window.
	clock = clock.Add(2 * time.Second)
	assert.True(t, agg.Status().Flash)

	// Expired; status itself is unchanged.
	clock = clock.Add(2 * time.Second)
	snap := agg.Status()
	assert.Equal(t, Warning, snap.Status)
	assert.False(t, snap.Flash)
}

func TestFlashNotRearmedWithoutTransition(t *testing.T) {
	clock := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	agg := NewAggregator(Config{FlashDuration: 3 * time.Second})
	agg.now = func() time.Time { return clock }
	agg.Activate()

	agg.SetFindings(monitor.DetectorBehavior, []monitor.Classified{warning("speeding")})
	require.True(t, agg.Status().Flash)

	// Repeated warning ticks do not extend the flash.
	clock = clock.Add(2 * time.Second)
	agg.SetFindings(monitor.DetectorBehavior, []monitor.Classified{warning("speeding")})
	clock = clock.Add(2 * time.Second)
	assert.False(t, agg.Status().Flash)

	// Escalating to danger is a transition and re-arms it.
	agg.SetFindings(monitor.DetectorBehavior, []monitor.Classified{danger("speeding")})
	assert.True(t, agg.Status().Flash)
}
