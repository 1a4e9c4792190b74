package monitoring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetrics_Counters(t *testing.T) {
	m := NewRunMetrics()

	m.PollRetries.Inc()
	m.PollRetries.Inc()
	m.PointsScheduled.Add(8)
	m.PointsMatched.Add(7)
	m.PointsUnmatched.Inc()
	m.Runs.WithLabelValues("sobol", "ok").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PollRetries))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.PointsScheduled))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.PointsMatched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PointsUnmatched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("sobol", "ok")))
}

func TestRunMetrics_WriteTextfile(t *testing.T) {
	m := NewRunMetrics()
	m.PointsScheduled.Add(3)
	m.StageSeconds.WithLabelValues("wait").Set(1.5)

	path := filepath.Join(t.TempDir(), "sensitivity.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "sensitivity_points_scheduled_total 3"), text)
	assert.True(t, strings.Contains(text, `sensitivity_stage_duration_seconds{stage="wait"} 1.5`), text)
}

func TestRunMetrics_WriteTextfileBadDir(t *testing.T) {
	m := NewRunMetrics()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}

func TestRunMetrics_Summary(t *testing.T) {
	m := NewRunMetrics()
	m.PointsMatched.Add(4)
	m.Runs.WithLabelValues("morris", "error").Inc()
	m.StageSeconds.WithLabelValues("wait").Set(0.25)

	keys, values, err := m.Summary()
	require.NoError(t, err)
	assert.Equal(t, 4.0, values["sensitivity_points_matched_total"])
	assert.Equal(t, 1.0, values["sensitivity_runs_total{method=morris,status=error}"])
	assert.Equal(t, 0.25, values["sensitivity_stage_duration_seconds{stage=wait}"])
	assert.Len(t, keys, len(values))
	assert.IsIncreasing(t, keys)
}
