package monitoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const metricsNamespace = "sensitivity"

// RunMetrics collects counters for one analysis run. A run is a batch job,
// so the registry is private and dumped with WriteTextfile at the end for a
// node_exporter textfile collector instead of being scraped.
type RunMetrics struct {
	Registry *prometheus.Registry

	PollRetries     prometheus.Counter
	PointsScheduled prometheus.Counter
	PointsMatched   prometheus.Counter
	PointsUnmatched prometheus.Counter
	StageSeconds    *prometheus.GaugeVec
	Runs            *prometheus.CounterVec
}

// NewRunMetrics registers the run metrics on a fresh registry.
func NewRunMetrics() *RunMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &RunMetrics{
		Registry: reg,
		PollRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "poll_retries_total",
			Help:      "Wait attempts retried because no simulation worker was active.",
		}),
		PointsScheduled: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "points_scheduled_total",
			Help:      "Design points submitted to the experiment.",
		}),
		PointsMatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "points_matched_total",
			Help:      "Design points correlated with an output record.",
		}),
		PointsUnmatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "points_unmatched_total",
			Help:      "Design points without a usable output record.",
		}),
		StageSeconds: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each workflow stage.",
		}, []string{"stage"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Workflow runs by method and outcome.",
		}, []string{"method", "status"}),
	}
}

// WriteTextfile writes the registry in text exposition format to path.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Summary flattens every counter and gauge into "name{label=value,...}"
// keys and returns the keys in sorted order with their values.
func (m *RunMetrics) Summary() ([]string, map[string]float64, error) {
	families, err := m.Registry.Gather()
	if err != nil {
		return nil, nil, fmt.Errorf("gather metrics: %w", err)
	}
	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			var v float64
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				v = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				v = metric.GetGauge().GetValue()
			default:
				continue
			}
			values[seriesKey(mf.GetName(), metric.GetLabel())] = v
		}
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, values, nil
}

func seriesKey(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.GetName() + "=" + l.GetValue()
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}
