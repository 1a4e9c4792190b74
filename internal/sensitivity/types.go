// Package sensitivity correlates executed design points with their inputs
// and turns per-output sensitivity results into the nested MoE result map
// that is submitted back to the experiment.
package sensitivity

import (
	"fmt"
	"strings"
)

// Method names a sensitivity-analysis method. The value is also the
// "sensitivity_analysis_method" field of the serialized result.
type Method string

const (
	MethodSobol  Method = "sobol"
	MethodMorris Method = "morris"
)

// ParseMethod converts a configuration string into a Method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodSobol, MethodMorris:
		return m, nil
	default:
		return "", &UnsupportedMethodError{Method: s}
	}
}

// Parameter is a named input dimension with its sampling range.
type Parameter struct {
	ID  string  `json:"id"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ParameterSet is the ordered collection of parameters for one analysis.
// Its order is the projection order for every value vector in the run.
type ParameterSet struct {
	params []Parameter
}

// NewParameterSet validates params and returns them as an ordered set.
// Ids must be non-empty and unique, and Min must not exceed Max.
func NewParameterSet(params []Parameter) (ParameterSet, error) {
	seen := make(map[string]struct{}, len(params))
	out := make([]Parameter, 0, len(params))
	for i, p := range params {
		if p.ID == "" {
			return ParameterSet{}, fmt.Errorf("parameter %d: empty id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return ParameterSet{}, fmt.Errorf("parameter %d: duplicate id %q", i, p.ID)
		}
		if p.Min > p.Max {
			return ParameterSet{}, fmt.Errorf("parameter %q: min %g exceeds max %g", p.ID, p.Min, p.Max)
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return ParameterSet{params: out}, nil
}

// Len returns the number of parameters.
func (s ParameterSet) Len() int { return len(s.params) }

// Parameters returns a copy of the parameters in set order.
func (s ParameterSet) Parameters() []Parameter {
	out := make([]Parameter, len(s.params))
	copy(out, s.params)
	return out
}

// IDs returns the parameter ids in set order.
func (s ParameterSet) IDs() []string {
	ids := make([]string, len(s.params))
	for i, p := range s.params {
		ids[i] = p.ID
	}
	return ids
}

// ValuesMap labels a point's values with the parameter ids, in set order.
// This is the shape submitted to the execution service.
func (s ParameterSet) ValuesMap(p InputPoint) (ValuesMap, error) {
	if len(p.Values) != len(s.params) {
		return ValuesMap{}, fmt.Errorf("point %d: %d values for %d parameters", p.ID, len(p.Values), len(s.params))
	}
	var m ValuesMap
	for i, param := range s.params {
		m.Set(param.ID, p.Values[i])
	}
	return m, nil
}

// PointID identifies a generated design point. Its meaning is method
// specific (sample index for Sobol, trajectory step for Morris).
type PointID int

// InputPoint is one row of the design matrix, ordered like the ParameterSet.
type InputPoint struct {
	ID     PointID   `json:"id"`
	Values []float64 `json:"values"`
}

// OutputPoint carries the outputs of an executed point, ordered like the
// run's output ids.
type OutputPoint struct {
	ID     PointID   `json:"id"`
	Values []float64 `json:"values"`
}

// OutputRecord is one executed point as returned by the execution service:
// the submitted input values and the produced output values.
type OutputRecord struct {
	Inputs  ValuesMap `json:"input"`
	Outputs ValuesMap `json:"output"`
}
