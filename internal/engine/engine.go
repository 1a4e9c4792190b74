// Package engine connects the workflow to the design generator and the
// sensitivity computation, which run outside this process.
package engine

import (
	"context"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

// DesignGenerator produces the ordered design points for a method. The
// same parameters and settings (including Seed) must give the same points.
type DesignGenerator interface {
	GenerateInputs(ctx context.Context, params sensitivity.ParameterSet, settings Settings) ([]sensitivity.InputPoint, error)
}

// Calculator computes one raw result per output id from the matched inputs
// and outputs. The returned collection's method is the settings' method.
type Calculator interface {
	CalculateSensitivity(
		ctx context.Context,
		params sensitivity.ParameterSet,
		settings Settings,
		inputs []sensitivity.InputPoint,
		outputs []sensitivity.OutputPoint,
		outputIDs []string,
	) (sensitivity.Results, error)
}

// Engine is both halves of the external computation.
type Engine interface {
	DesignGenerator
	Calculator
}
