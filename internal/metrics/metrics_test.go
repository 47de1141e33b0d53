package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/roadwatch/internal/metrics"
	"codeberg.org/mutker/roadwatch/internal/status"
)

func TestCollectorsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollectors(reg)

	c.SamplesEvaluated.WithLabelValues("behavior").Inc()
	c.FindingsRaised.WithLabelValues("behavior", "speeding").Inc()
	c.AlertsPublished.WithLabelValues("behavior", "warning").Inc()
	c.AlertsSuppressed.WithLabelValues("behavior").Inc()
	c.MalformedFields.WithLabelValues("behavior", "speed_over_limit_kmh").Inc()
	c.EntityStatus.WithLabelValues("driver-1").Set(metrics.StatusValue(status.Warning))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)

	got := testutil.ToFloat64(c.EntityStatus.WithLabelValues("driver-1"))
	assert.InDelta(t, 2, got, 0.0001)
}

func TestStatusValueMapping(t *testing.T) {
	assert.InDelta(t, 0, metrics.StatusValue(status.Inactive), 0.0001)
	assert.InDelta(t, 1, metrics.StatusValue(status.Normal), 0.0001)
	assert.InDelta(t, 2, metrics.StatusValue(status.Warning), 0.0001)
	assert.InDelta(t, 3, metrics.StatusValue(status.Danger), 0.0001)
}
