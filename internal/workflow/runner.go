// Package workflow runs a sensitivity analysis end to end: generate the
// design, execute it on an experiment, correlate the returned records and
// submit the aggregated statistics.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/sensitivity.report/internal/engine"
	"github.com/banshee-data/sensitivity.report/internal/experiment"
	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/timeutil"
)

var (
	// ErrIncompleteResults is returned with RequireComplete when some design
	// points have no usable output record.
	ErrIncompleteResults = errors.New("not every design point produced a result")

	// ErrNoMatchedPoints is returned when no design point could be
	// correlated, leaving nothing to analyze.
	ErrNoMatchedPoints = errors.New("no design point produced a result")
)

// Options tunes one run.
type Options struct {
	Settings engine.Settings

	PollInterval time.Duration
	// WaitTimeout bounds the wait for the experiment; zero waits forever.
	WaitTimeout time.Duration

	StrictStatistics bool
	RequireComplete  bool
	CorrelateWorkers int

	// OutputPath, when set, receives a copy of the results JSON.
	OutputPath string
}

// Report is the outcome of a successful run.
type Report struct {
	ExperimentID string                     `json:"experiment_id"`
	Method       sensitivity.Method         `json:"method"`
	Points       int                        `json:"points"`
	Matched      int                        `json:"matched"`
	Unmatched    []sensitivity.PointID      `json:"unmatched,omitempty"`
	OutputIDs    []string                   `json:"output_ids"`
	Summaries    []OutputSummary            `json:"summaries"`
	Result       sensitivity.AnalysisResult `json:"result"`
	Duration     time.Duration              `json:"duration"`
}

// Runner drives runs against an engine.
type Runner struct {
	Engine  engine.Engine
	Metrics *monitoring.RunMetrics
	Clock   timeutil.Clock
	Logf    func(format string, v ...interface{})
}

// NewRunner returns a Runner with fresh metrics, the real clock and the
// package logger.
func NewRunner(eng engine.Engine) *Runner {
	return &Runner{
		Engine:  eng,
		Metrics: monitoring.NewRunMetrics(),
		Clock:   timeutil.RealClock{},
		Logf:    monitoring.Logf,
	}
}

func (r *Runner) logf(format string, v ...interface{}) {
	if r.Logf != nil {
		r.Logf(format, v...)
		return
	}
	monitoring.Logf(format, v...)
}

func (r *Runner) clock() timeutil.Clock {
	if r.Clock == nil {
		return timeutil.RealClock{}
	}
	return r.Clock
}

// stage runs fn and records its wall time under name.
func (r *Runner) stage(name string, fn func() error) error {
	start := r.clock().Now()
	err := fn()
	elapsed := r.clock().Since(start)
	if r.Metrics != nil {
		r.Metrics.StageSeconds.WithLabelValues(name).Set(elapsed.Seconds())
	}
	monitoring.Debugf("stage %s took %s", name, elapsed)
	return err
}

// Run executes the full pipeline on exp. MarkAsComplete is called only
// when every stage succeeded.
func (r *Runner) Run(ctx context.Context, exp experiment.Experiment, params sensitivity.ParameterSet, opts Options) (*Report, error) {
	start := r.clock().Now()
	method := opts.Settings.Method

	report, err := r.run(ctx, exp, params, opts)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if r.Metrics != nil {
		r.Metrics.Runs.WithLabelValues(string(method), status).Inc()
	}
	if err != nil {
		return nil, err
	}

	report.Duration = r.clock().Since(start)
	r.logf("Execution time: %s", report.Duration)
	return report, nil
}

func (r *Runner) run(ctx context.Context, exp experiment.Experiment, params sensitivity.ParameterSet, opts Options) (*Report, error) {
	settings := opts.Settings
	report := &Report{ExperimentID: exp.ID(), Method: settings.Method}

	var points []sensitivity.InputPoint
	err := r.stage("generate", func() error {
		var err error
		points, err = r.Engine.GenerateInputs(ctx, params, settings)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate inputs: %w", err)
	}
	report.Points = len(points)
	r.logf("Generated %d inputs for %s", len(points), settings.Method)

	err = r.stage("schedule", func() error {
		maps := make([]sensitivity.ValuesMap, len(points))
		for i, p := range points {
			m, err := params.ValuesMap(p)
			if err != nil {
				return err
			}
			maps[i] = m
		}
		return exp.SchedulePoints(ctx, maps)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule points: %w", err)
	}
	if r.Metrics != nil {
		r.Metrics.PointsScheduled.Add(float64(len(points)))
	}

	err = r.stage("wait", func() error { return r.wait(ctx, exp, opts) })
	if err != nil {
		return nil, fmt.Errorf("wait for experiment %s: %w", exp.ID(), err)
	}

	var records []sensitivity.OutputRecord
	err = r.stage("fetch", func() error {
		var err error
		records, err = exp.GetResults(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}

	outputIDs := sensitivity.OutputIDs(records)
	report.OutputIDs = outputIDs
	r.logf("Output ids: %v", outputIDs)

	var corr sensitivity.Correlation
	err = r.stage("correlate", func() error {
		var err error
		corr, err = sensitivity.Correlate(params, points, records, outputIDs,
			sensitivity.WithWorkers(opts.CorrelateWorkers),
			sensitivity.WithCorrelateLogger(r.logf),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("correlate: %w", err)
	}
	report.Matched = len(corr.Matched)
	report.Unmatched = corr.Unmatched
	if r.Metrics != nil {
		r.Metrics.PointsMatched.Add(float64(len(corr.Matched)))
		r.Metrics.PointsUnmatched.Add(float64(len(corr.Unmatched)))
	}
	if len(corr.Unmatched) > 0 {
		r.logf("%d of %d points have no result", len(corr.Unmatched), len(points))
		if opts.RequireComplete {
			return nil, fmt.Errorf("%d unmatched points: %w", len(corr.Unmatched), ErrIncompleteResults)
		}
	}
	if len(corr.Matched) == 0 {
		return nil, ErrNoMatchedPoints
	}

	report.Summaries = Summarize(outputIDs, corr.Matched)
	for _, s := range report.Summaries {
		r.logf("Output %s: mean %g, std %g, range [%g, %g]", s.OutputID, s.Mean, s.StdDev, s.Min, s.Max)
	}

	var results sensitivity.Results
	err = r.stage("analyze", func() error {
		var err error
		results, err = r.Engine.CalculateSensitivity(ctx, params, settings, corr.MatchedInputs(points), corr.Matched, outputIDs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("calculate sensitivity: %w", err)
	}

	policy := sensitivity.MissingZero
	if opts.StrictStatistics {
		policy = sensitivity.MissingFail
	}
	var data []byte
	err = r.stage("aggregate", func() error {
		var err error
		report.Result, err = sensitivity.NewAnalysisResult(outputIDs, results, params.IDs(), sensitivity.WithMissingPolicy(policy))
		if err != nil {
			return err
		}
		data, err = json.Marshal(report.Result)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate results: %w", err)
	}
	r.logf("Results: %s", data)

	if opts.OutputPath != "" {
		if err := writeOutput(opts.OutputPath, data); err != nil {
			return nil, err
		}
	}

	err = r.stage("complete", func() error { return exp.MarkAsComplete(ctx, data) })
	if err != nil {
		return nil, fmt.Errorf("mark experiment %s complete: %w", exp.ID(), err)
	}
	return report, nil
}

func (r *Runner) wait(ctx context.Context, exp experiment.Experiment, opts Options) error {
	if opts.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.WaitTimeout)
		defer cancel()
	}
	return sensitivity.WaitUntilDone(ctx, exp, sensitivity.PollOptions{
		Interval: opts.PollInterval,
		Clock:    r.Clock,
		Logf:     r.logf,
		OnRetry: func(int) {
			if r.Metrics != nil {
				r.Metrics.PollRetries.Inc()
			}
		},
	})
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
