package engine_test

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/roadwatch/internal/alerting"
	"codeberg.org/mutker/roadwatch/internal/engine"
	"codeberg.org/mutker/roadwatch/internal/errors"
	"codeberg.org/mutker/roadwatch/internal/monitor"
	"codeberg.org/mutker/roadwatch/internal/status"
)

// repeatSource hands out the same values every tick.
type repeatSource struct {
	detectorID string
	values     map[string]float64
}

func (r *repeatSource) Next(context.Context) (*monitor.Sample, error) {
	return &monitor.Sample{
		DetectorID: r.detectorID,
		Timestamp:  time.Now(),
		Values:     r.values,
	}, nil
}

func speedingConfig(values map[string]float64) engine.EntityConfig {
	return engine.EntityConfig{
		Detectors: []engine.DetectorBinding{{
			Detector:   monitor.NewBehaviorDetector(),
			Source:     &repeatSource{detectorID: monitor.DetectorBehavior, values: values},
			Thresholds: monitor.DefaultBehaviorThresholds(),
			Interval:   5 * time.Millisecond,
		}},
	}
}

func TestStartMonitoringRequiresEntityID(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	err := eng.StartMonitoring("", engine.EntityConfig{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))
}

func TestStartAndStopMonitoring(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	require.NoError(t, eng.StartMonitoring("driver-1", speedingConfig(map[string]float64{
		monitor.FieldSpeedOverLimit: 2,
	})))
	assert.Equal(t, []string{"driver-1"}, eng.Entities())

	require.Eventually(t, func() bool {
		return eng.GetStatus("driver-1").Status == status.Normal
	}, time.Second, 5*time.Millisecond)

	eng.StopMonitoring("driver-1")
	assert.Equal(t, status.Inactive, eng.GetStatus("driver-1").Status)
	assert.Empty(t, eng.Entities())

	// Stopping again is a no-op.
	eng.StopMonitoring("driver-1")
}

func TestStartMonitoringRestartsSession(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	require.NoError(t, eng.StartMonitoring("driver-1", speedingConfig(map[string]float64{
		monitor.FieldSpeedOverLimit: 2,
	})))

	// Restart with a different shift window; the session is replaced.
	cfg := speedingConfig(map[string]float64{monitor.FieldSpeedOverLimit: 2})
	cfg.Info.ShiftEnd = time.Now().Add(time.Hour)
	require.NoError(t, eng.StartMonitoring("driver-1", cfg))

	info, err := eng.GetSessionInfo("driver-1")
	require.NoError(t, err)
	assert.Equal(t, "driver-1", info.EntityID)
	assert.False(t, info.ShiftEnd.IsZero())
	assert.Equal(t, []string{"driver-1"}, eng.Entities())
}

func TestConcurrentRestartLeavesNoDetectorTasks(t *testing.T) {
	baseline := runtime.NumGoroutine()

	eng := engine.New()
	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = eng.StartMonitoring("driver-1", speedingConfig(map[string]float64{
					monitor.FieldSpeedOverLimit: 2,
				}))
			}()
		}
		wg.Wait()
		eng.StopMonitoring("driver-1")
		assert.Empty(t, eng.Entities())
	}
	eng.Close()

	// Every displaced session's detector loops must wind down; only the
	// runtime's own goroutines may remain.
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline+2
	}, 2*time.Second, 10*time.Millisecond,
		"detector goroutines must not outlive their session")
}

func TestStopDuringStartNeverLeavesActiveSession(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = eng.StartMonitoring("driver-1", speedingConfig(map[string]float64{
				monitor.FieldSpeedOverLimit: 2,
			}))
		}()
		go func() {
			defer wg.Done()
			eng.StopMonitoring("driver-1")
		}()
		wg.Wait()
		eng.StopMonitoring("driver-1")

		assert.Empty(t, eng.Entities())
		assert.Equal(t, status.Inactive, eng.GetStatus("driver-1").Status)
	}
}

func TestAlertsFlowToSubscribers(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	cfg := speedingConfig(map[string]float64{monitor.FieldSpeedOverLimit: 12})
	require.NoError(t, eng.StartMonitoring("driver-1", cfg))

	var mu sync.Mutex
	var received []alerting.Alert
	handle, err := eng.SubscribeAlerts("driver-1", func(alert alerting.Alert) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, alert)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	alert := received[0]
	mu.Unlock()
	assert.Equal(t, monitor.DetectorBehavior, alert.DetectorID)
	assert.Equal(t, monitor.SubtypeSpeeding, alert.Subtype)
	assert.Equal(t, monitor.TierWarning, alert.Tier)

	history := eng.GetAlertHistory("driver-1")
	require.NotEmpty(t, history)
	assert.Equal(t, monitor.SubtypeSpeeding, history[0].Subtype)

	require.NoError(t, eng.UnsubscribeAlerts("driver-1", handle))
}

func TestUpdateConfigTakesEffect(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	require.NoError(t, eng.StartMonitoring("driver-1", speedingConfig(map[string]float64{
		monitor.FieldSpeedOverLimit: 12,
	})))

	require.Eventually(t, func() bool {
		return eng.GetStatus("driver-1").Status == status.Warning
	}, time.Second, 5*time.Millisecond)

	// Raising the threshold above the measured value clears the warning on
	// a later tick.
	updated, err := eng.UpdateConfig("driver-1", monitor.DetectorBehavior, monitor.ThresholdUpdate{
		Values: map[string]float64{monitor.FieldSpeedOverLimit: 50},
	})
	require.NoError(t, err)
	assert.InDelta(t, 50, updated.Values[monitor.FieldSpeedOverLimit], 0.0001)

	require.Eventually(t, func() bool {
		return eng.GetStatus("driver-1").Status == status.Normal
	}, time.Second, 5*time.Millisecond)
}

func TestUpdateConfigUnknownEntity(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	_, err := eng.UpdateConfig("ghost", monitor.DetectorBehavior, monitor.ThresholdUpdate{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrEntityNotFound, errors.CodeOf(err))
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateConfigUnknownDetector(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	require.NoError(t, eng.StartMonitoring("driver-1", speedingConfig(map[string]float64{
		monitor.FieldSpeedOverLimit: 2,
	})))

	_, err := eng.UpdateConfig("driver-1", "nonexistent", monitor.ThresholdUpdate{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrDetectorNotFound, errors.CodeOf(err))
}

func TestGetStatusUnknownEntity(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	snap := eng.GetStatus("ghost")
	assert.Equal(t, status.Inactive, snap.Status)
	assert.False(t, snap.Flash)
	assert.Nil(t, eng.GetAlertHistory("ghost"))
}

func TestEngineClosed(t *testing.T) {
	eng := engine.New()
	require.NoError(t, eng.StartMonitoring("driver-1", speedingConfig(map[string]float64{
		monitor.FieldSpeedOverLimit: 2,
	})))

	eng.Close()
	assert.Empty(t, eng.Entities())

	err := eng.StartMonitoring("driver-2", engine.EntityConfig{})
	require.Error(t, err)
	assert.Equal(t, engine.ErrEngineClosed, errors.CodeOf(err))
}

func TestShiftRemaining(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	info := engine.SessionInfo{
		EntityID:   "driver-1",
		ShiftStart: now.Add(-4 * time.Hour),
		ShiftEnd:   now.Add(2 * time.Hour),
	}
	assert.Equal(t, 2*time.Hour, info.ShiftRemaining(now))

	// Over or absent shift windows report zero.
	assert.Equal(t, time.Duration(0), info.ShiftRemaining(now.Add(3*time.Hour)))
	assert.Equal(t, time.Duration(0), engine.SessionInfo{}.ShiftRemaining(now))
}

func TestDefaultSafetyBindings(t *testing.T) {
	sources := map[string]monitor.Source{
		monitor.DetectorCollision: &repeatSource{detectorID: monitor.DetectorCollision},
		monitor.DetectorBehavior:  &repeatSource{detectorID: monitor.DetectorBehavior},
	}

	bindings := engine.DefaultSafetyBindings(sources, 0)
	require.Len(t, bindings, 2, "detectors without a source are left out")

	ids := []string{bindings[0].Detector.ID(), bindings[1].Detector.ID()}
	assert.ElementsMatch(t, []string{monitor.DetectorCollision, monitor.DetectorBehavior}, ids)
	for _, b := range bindings {
		assert.True(t, b.Thresholds.Enabled)
		assert.Positive(t, b.Interval)
	}
}
