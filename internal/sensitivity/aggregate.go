package sensitivity

import "fmt"

// Aggregate builds the MoE result map: for each i, the analyzer's
// statistics of results.At(i) stored under outputIDs[i]. The two must have
// the same length and the analyzer must belong to the results' method.
func Aggregate(outputIDs []string, results Results, parameterIDs []string, analyzer Analyzer) (MoeResultMap, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("aggregate: nil analyzer")
	}
	if results == nil {
		return nil, &ShapeMismatchError{OutputIDs: len(outputIDs), Results: 0}
	}
	if len(outputIDs) != results.Len() {
		return nil, &ShapeMismatchError{OutputIDs: len(outputIDs), Results: results.Len()}
	}
	if analyzer.Method() != results.Method() {
		return nil, &UnsupportedMethodError{Method: string(results.Method())}
	}

	moes := make(MoeResultMap, 0, len(outputIDs))
	for i, moe := range outputIDs {
		stats, err := analyzer.MoeResult(results.At(i), parameterIDs)
		if err != nil {
			return nil, fmt.Errorf("moe %s: %w", moe, err)
		}
		moes = append(moes, MoeResult{MoeID: moe, Parameters: stats})
	}
	return moes, nil
}

// NewAnalysisResult selects the analyzer for the results' method, aggregates
// and wraps the map with its method name.
func NewAnalysisResult(outputIDs []string, results Results, parameterIDs []string, opts ...AnalyzerOption) (AnalysisResult, error) {
	if results == nil {
		return AnalysisResult{}, &ShapeMismatchError{OutputIDs: len(outputIDs), Results: 0}
	}
	analyzer, err := SelectAnalyzer(results.Method(), opts...)
	if err != nil {
		return AnalysisResult{}, err
	}
	moes, err := Aggregate(outputIDs, results, parameterIDs, analyzer)
	if err != nil {
		return AnalysisResult{}, err
	}
	return AnalysisResult{Method: results.Method(), Moes: moes}, nil
}
