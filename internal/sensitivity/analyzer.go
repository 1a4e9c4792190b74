package sensitivity

import "fmt"

// Statistic names of the serialized result. They are part of the output
// contract and must not change.
const (
	StatSensitivityIndices = "sensitivity_indices"
	StatTotalEffectIndices = "total_effect_indices"

	StatAbsoluteMean              = "absolute_mean"
	StatMean                      = "mean"
	StatAbsoluteStandardDeviation = "absolute_standard_deviation"
	StatStandardDeviation         = "standard_deviation"
)

// MissingPolicy decides what an analyzer does when a series has no entry
// for a parameter index.
type MissingPolicy int

const (
	// MissingZero reports 0 for the absent entry (first-or-default lookup).
	MissingZero MissingPolicy = iota
	// MissingFail returns a *MissingStatisticError.
	MissingFail
)

// Analyzer extracts the fixed per-parameter statistics of one method from
// the raw result of a single output variable.
type Analyzer interface {
	Method() Method
	// Statistics lists the statistic names produced for every parameter.
	Statistics() []string
	// MoeResult returns, for each parameter id in order, its statistics.
	// parameterIDs[i] is labelled with the series entries for index i.
	MoeResult(raw Result, parameterIDs []string) (ParameterStats, error)
}

// statisticSource binds an output statistic name to the series it is read from.
type statisticSource struct {
	name   string
	series func(Result) Series
}

type tableAnalyzer struct {
	method  Method
	sources []statisticSource
	policy  MissingPolicy
}

func (a *tableAnalyzer) Method() Method { return a.method }

func (a *tableAnalyzer) Statistics() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.name
	}
	return names
}

func (a *tableAnalyzer) MoeResult(raw Result, parameterIDs []string) (ParameterStats, error) {
	if raw == nil {
		return nil, fmt.Errorf("%s analyzer: nil result", a.method)
	}
	if raw.Method() != a.method {
		return nil, &UnsupportedMethodError{Method: string(raw.Method())}
	}

	stats := make(ParameterStats, 0, len(parameterIDs))
	for i, id := range parameterIDs {
		pr := ParameterResult{ParameterID: id, Statistics: make([]Statistic, 0, len(a.sources))}
		for _, src := range a.sources {
			v, ok := src.series(raw).lookup(i)
			if !ok && a.policy == MissingFail {
				return nil, &MissingStatisticError{Statistic: src.name, Parameter: id, Index: i}
			}
			pr.Statistics = append(pr.Statistics, Statistic{Name: src.name, Value: v})
		}
		stats = append(stats, pr)
	}
	return stats, nil
}

// AnalyzerOption configures analyzers built by the constructors and SelectAnalyzer.
type AnalyzerOption func(*tableAnalyzer)

// WithMissingPolicy sets how absent series entries are handled.
func WithMissingPolicy(p MissingPolicy) AnalyzerOption {
	return func(a *tableAnalyzer) { a.policy = p }
}

// NewSobolAnalyzer returns the analyzer for SobolResult, producing
// sensitivity_indices and total_effect_indices.
func NewSobolAnalyzer(opts ...AnalyzerOption) Analyzer {
	a := &tableAnalyzer{
		method: MethodSobol,
		sources: []statisticSource{
			{StatSensitivityIndices, func(r Result) Series { return asSobol(r).SensitivityIndices }},
			{StatTotalEffectIndices, func(r Result) Series { return asSobol(r).TotalEffectIndices }},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewMorrisAnalyzer returns the analyzer for MorrisResult. Only the
// normalized statistics are reported, under their short names.
func NewMorrisAnalyzer(opts ...AnalyzerOption) Analyzer {
	a := &tableAnalyzer{
		method: MethodMorris,
		sources: []statisticSource{
			{StatAbsoluteMean, func(r Result) Series { return asMorris(r).NormalizedAbsoluteMeans }},
			{StatMean, func(r Result) Series { return asMorris(r).NormalizedMeans }},
			{StatAbsoluteStandardDeviation, func(r Result) Series { return asMorris(r).NormalizedAbsoluteStandardDeviations }},
			{StatStandardDeviation, func(r Result) Series { return asMorris(r).NormalizedStandardDeviations }},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func asSobol(r Result) SobolResult {
	switch v := r.(type) {
	case SobolResult:
		return v
	case *SobolResult:
		return *v
	}
	return SobolResult{}
}

func asMorris(r Result) MorrisResult {
	switch v := r.(type) {
	case MorrisResult:
		return v
	case *MorrisResult:
		return *v
	}
	return MorrisResult{}
}

// SelectAnalyzer returns the analyzer for m. The set of methods is closed:
// supporting another method means adding a Result type, an analyzer
// constructor and a case here.
func SelectAnalyzer(m Method, opts ...AnalyzerOption) (Analyzer, error) {
	switch m {
	case MethodSobol:
		return NewSobolAnalyzer(opts...), nil
	case MethodMorris:
		return NewMorrisAnalyzer(opts...), nil
	default:
		return nil, &UnsupportedMethodError{Method: string(m)}
	}
}
