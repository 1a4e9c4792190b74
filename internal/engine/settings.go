package engine

import (
	"fmt"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

// Settings are the method settings handed to the design generator and to
// the sensitivity computation. Only the counts of the selected method are
// used.
type Settings struct {
	Method sensitivity.Method `json:"-"`

	SobolBaseInputsCount int `json:"sobol_base_inputs_count,omitempty"`

	MorrisSamplesCount int `json:"morris_samples_count,omitempty"`
	MorrisLevelsCount  int `json:"morris_levels_count,omitempty"`

	Seed int64 `json:"seed,omitempty"`
}

// Validate checks that the counts required by Method are present.
func (s Settings) Validate() error {
	switch s.Method {
	case sensitivity.MethodSobol:
		if s.SobolBaseInputsCount <= 0 {
			return fmt.Errorf("sobol_base_inputs_count must be positive, got %d", s.SobolBaseInputsCount)
		}
	case sensitivity.MethodMorris:
		if s.MorrisSamplesCount <= 0 {
			return fmt.Errorf("morris_samples_count must be positive, got %d", s.MorrisSamplesCount)
		}
		if s.MorrisLevelsCount < 2 {
			return fmt.Errorf("morris_levels_count must be at least 2, got %d", s.MorrisLevelsCount)
		}
	default:
		return &sensitivity.UnsupportedMethodError{Method: string(s.Method)}
	}
	return nil
}

// ExpectedPoints is the size of the design for params parameters, as
// produced by Saltelli sampling without second-order indices (N·(D+2)) or
// Morris trajectories (N·(D+1)).
func (s Settings) ExpectedPoints(params int) int {
	switch s.Method {
	case sensitivity.MethodSobol:
		return s.SobolBaseInputsCount * (params + 2)
	case sensitivity.MethodMorris:
		return s.MorrisSamplesCount * (params + 1)
	}
	return 0
}
