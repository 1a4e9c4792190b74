// Package experiment is the execution service the analysis workflow drives:
// it accepts design points, runs them through a simulation and hands back
// the executed input/output records.
package experiment

import (
	"context"
	"encoding/json"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

// ErrNoActiveWorkers is returned by WaitForDone when points are outstanding
// but no worker is available to run them.
var ErrNoActiveWorkers = sensitivity.ErrNoActiveWorkers

// Experiment is a handle on one stored experiment.
type Experiment interface {
	ID() string
	// SchedulePoints submits input points for execution. Points whose
	// values were already scheduled for this experiment are ignored.
	SchedulePoints(ctx context.Context, points []sensitivity.ValuesMap) error
	// WaitForDone blocks until every scheduled point has finished.
	WaitForDone(ctx context.Context) error
	// GetResults returns the successfully executed points in the order
	// they were scheduled.
	GetResults(ctx context.Context) ([]sensitivity.OutputRecord, error)
	// MarkAsComplete attaches the analysis result and closes the experiment.
	MarkAsComplete(ctx context.Context, results json.RawMessage) error
}

// Status is the lifecycle state of an experiment.
type Status string

const (
	StatusCreated  Status = "created"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
)

// PointStatus is the execution state of a scheduled point.
type PointStatus string

const (
	PointPending PointStatus = "pending"
	PointRunning PointStatus = "running"
	PointDone    PointStatus = "done"
	PointFailed  PointStatus = "failed"
)

// NameForMethod returns the display name given to experiments created by
// the workflow.
func NameForMethod(m sensitivity.Method) string {
	return "Go SA " + string(m)
}
