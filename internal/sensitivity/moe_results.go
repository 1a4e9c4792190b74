package sensitivity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Statistic is one named value computed for a parameter.
type Statistic struct {
	Name  string
	Value float64
}

// ParameterResult holds the statistics of one parameter, in analyzer order.
type ParameterResult struct {
	ParameterID string
	Statistics  []Statistic
}

// ParameterStats maps parameter id → statistic name → value for one MoE,
// in ParameterSet order. It serializes as a JSON object keeping that order.
type ParameterStats []ParameterResult

// Get returns the value of stat for param.
func (ps ParameterStats) Get(param, stat string) (float64, bool) {
	for _, pr := range ps {
		if pr.ParameterID != param {
			continue
		}
		for _, s := range pr.Statistics {
			if s.Name == stat {
				return s.Value, true
			}
		}
		return 0, false
	}
	return 0, false
}

// MarshalJSON encodes {"<parameter>": {"<statistic>": value}}.
func (ps ParameterStats) MarshalJSON() ([]byte, error) {
	keys := make([]string, len(ps))
	for i, pr := range ps {
		keys[i] = pr.ParameterID
	}
	var buf bytes.Buffer
	err := writeObject(&buf, keys, func(i int) (interface{}, error) {
		return statisticsObject(ps[i].Statistics), nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object form written by MarshalJSON.
func (ps *ParameterStats) UnmarshalJSON(data []byte) error {
	*ps = nil
	return readObject(data, func(key string, raw json.RawMessage) error {
		var stats statisticsObject
		if err := json.Unmarshal(raw, &stats); err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
		*ps = append(*ps, ParameterResult{ParameterID: key, Statistics: stats})
		return nil
	})
}

type statisticsObject []Statistic

func (so statisticsObject) MarshalJSON() ([]byte, error) {
	keys := make([]string, len(so))
	for i, s := range so {
		keys[i] = s.Name
	}
	var buf bytes.Buffer
	err := writeObject(&buf, keys, func(i int) (interface{}, error) {
		return so[i].Value, nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (so *statisticsObject) UnmarshalJSON(data []byte) error {
	*so = nil
	return readObject(data, func(key string, raw json.RawMessage) error {
		v, err := parseNumber(raw)
		if err != nil {
			return fmt.Errorf("statistic %q: %w", key, err)
		}
		*so = append(*so, Statistic{Name: key, Value: v})
		return nil
	})
}

// MoeResult is the statistics of every parameter for one output variable.
type MoeResult struct {
	MoeID      string
	Parameters ParameterStats
}

// MoeResultMap maps output id → parameter id → statistic → value. MoEs keep
// the order they were aggregated in, which is the order of the run's output ids.
type MoeResultMap []MoeResult

// MoeIDs returns the MoE ids in order.
func (m MoeResultMap) MoeIDs() []string {
	ids := make([]string, len(m))
	for i, r := range m {
		ids[i] = r.MoeID
	}
	return ids
}

// Lookup returns the parameter statistics for moe.
func (m MoeResultMap) Lookup(moe string) (ParameterStats, bool) {
	for _, r := range m {
		if r.MoeID == moe {
			return r.Parameters, true
		}
	}
	return nil, false
}

// Get returns a single statistic value.
func (m MoeResultMap) Get(moe, param, stat string) (float64, bool) {
	ps, ok := m.Lookup(moe)
	if !ok {
		return 0, false
	}
	return ps.Get(param, stat)
}

// MarshalJSON encodes {"<moe>": {"<parameter>": {"<statistic>": value}}}.
func (m MoeResultMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	err := writeObject(&buf, m.MoeIDs(), func(i int) (interface{}, error) {
		return m[i].Parameters, nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object form written by MarshalJSON.
func (m *MoeResultMap) UnmarshalJSON(data []byte) error {
	*m = nil
	return readObject(data, func(key string, raw json.RawMessage) error {
		var ps ParameterStats
		if err := json.Unmarshal(raw, &ps); err != nil {
			return fmt.Errorf("moe %q: %w", key, err)
		}
		*m = append(*m, MoeResult{MoeID: key, Parameters: ps})
		return nil
	})
}

// AnalysisResult is the top-level artifact submitted when an experiment completes.
type AnalysisResult struct {
	Method Method       `json:"sensitivity_analysis_method"`
	Moes   MoeResultMap `json:"moes"`
}
