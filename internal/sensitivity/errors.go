package sensitivity

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveWorkers signals that the execution service has no worker
	// able to run points right now. The poll loop retries on it.
	ErrNoActiveWorkers = errors.New("no active simulation workers")

	// ErrUnsupportedMethod matches any *UnsupportedMethodError.
	ErrUnsupportedMethod = errors.New("unsupported sensitivity analysis method")

	// ErrShapeMismatch matches any *ShapeMismatchError.
	ErrShapeMismatch = errors.New("output ids and results differ in length")

	// ErrMissingStatistic matches any *MissingStatisticError.
	ErrMissingStatistic = errors.New("statistic missing for parameter")
)

// UnsupportedMethodError reports a method or result kind with no analyzer.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("method type unknown: %q", e.Method)
}

func (e *UnsupportedMethodError) Is(target error) bool { return target == ErrUnsupportedMethod }

// ShapeMismatchError reports output ids and per-output results of different length.
type ShapeMismatchError struct {
	OutputIDs int
	Results   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%d output ids but %d sensitivity results", e.OutputIDs, e.Results)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// MissingStatisticError is returned under MissingFail when a series has no
// entry for a parameter index.
type MissingStatisticError struct {
	Statistic string
	Parameter string
	Index     int
}

func (e *MissingStatisticError) Error() string {
	return fmt.Sprintf("statistic %s has no value for parameter %s (index %d)", e.Statistic, e.Parameter, e.Index)
}

func (e *MissingStatisticError) Is(target error) bool { return target == ErrMissingStatistic }
