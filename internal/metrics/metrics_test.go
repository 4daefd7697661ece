package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()
	require.NotNil(t, pm)
	require.NotNil(t, pm.GetRegistry())

	// Registry must gather without collector conflicts.
	families, err := pm.GetRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families, "go and process collectors report immediately")
}

func TestProbeCounters(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.IncrementProbesTotal("tcp", "open")
	pm.IncrementProbesTotal("tcp", "open")
	pm.IncrementProbesTotal("udp", "unknown")
	pm.IncrementProbeErrors("tcp", "socket")
	pm.RecordProbeDuration("tcp", 25*time.Millisecond)
	pm.SetActiveProbes(7)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(pm.probesTotal.WithLabelValues("tcp", "open")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(pm.probesTotal.WithLabelValues("udp", "unknown")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(pm.probeErrors.WithLabelValues("tcp", "socket")))
	assert.Equal(t, float64(7), testutil.ToFloat64(pm.activeProbes))
}

func TestRunMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.IncrementRunsTotal("success")
	pm.IncrementRunsTotal("success")
	pm.IncrementRunsTotal("canceled")
	pm.RecordRunDuration(2 * time.Second)
	pm.RecordWorkUnits(48)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(pm.runsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(pm.runsTotal.WithLabelValues("canceled")))
}

func TestResolutionErrors(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.IncrementResolutionErrors("host.invalid")
	pm.IncrementResolutionErrors("host.invalid")

	assert.Equal(t, float64(2),
		testutil.ToFloat64(pm.resolutionErrors.WithLabelValues("host.invalid")))
}

func TestGlobalInstance(t *testing.T) {
	original := GetGlobalMetrics()
	defer SetGlobalMetrics(original)

	replacement := NewPrometheusMetrics()
	SetGlobalMetrics(replacement)
	assert.Same(t, replacement, GetGlobalMetrics())

	RecordProbe("tcp", "closed", 5*time.Millisecond)
	RecordProbeError("udp", "socket")
	RecordRun("error", 0, time.Second)
	RecordResolutionError("host.invalid")

	assert.Equal(t, float64(1),
		testutil.ToFloat64(replacement.probesTotal.WithLabelValues("tcp", "closed")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(replacement.runsTotal.WithLabelValues("error")))
}
