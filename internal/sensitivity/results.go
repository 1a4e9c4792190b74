package sensitivity

// IndexedValue is one entry of a statistic series: the value computed for
// the parameter at position ParameterID of the ParameterSet.
type IndexedValue struct {
	ParameterID int     `json:"parameter"`
	Value       float64 `json:"value"`
}

// Series is a named statistic's values across parameters. Entries are not
// required to be ordered or complete.
type Series []IndexedValue

// lookup returns the first entry for index, as the upstream engines may
// repeat or omit indices.
func (s Series) lookup(index int) (float64, bool) {
	for _, iv := range s {
		if iv.ParameterID == index {
			return iv.Value, true
		}
	}
	return 0, false
}

// Result is the raw sensitivity result for one output variable. The
// concrete types are SobolResult and MorrisResult.
type Result interface {
	Method() Method
}

// SobolResult holds the Sobol first-order and total-effect indices.
type SobolResult struct {
	SensitivityIndices Series `json:"sensitivity_indices"`
	TotalEffectIndices Series `json:"total_effect_indices"`
}

// Method returns MethodSobol.
func (SobolResult) Method() Method { return MethodSobol }

// MorrisResult holds the normalized elementary-effect statistics.
type MorrisResult struct {
	NormalizedAbsoluteMeans              Series `json:"normalized_absolute_means"`
	NormalizedMeans                      Series `json:"normalized_means"`
	NormalizedAbsoluteStandardDeviations Series `json:"normalized_absolute_standard_deviations"`
	NormalizedStandardDeviations         Series `json:"normalized_standard_deviations"`
}

// Method returns MethodMorris.
func (MorrisResult) Method() Method { return MethodMorris }

// Results is the per-output collection produced by a sensitivity
// computation, position i belonging to output id i. The method is fixed by
// the collection type at the point where results are produced.
type Results interface {
	Method() Method
	Len() int
	At(i int) Result
}

// SobolResults is a Results of SobolResult.
type SobolResults []SobolResult

func (SobolResults) Method() Method    { return MethodSobol }
func (r SobolResults) Len() int        { return len(r) }
func (r SobolResults) At(i int) Result { return r[i] }

// MorrisResults is a Results of MorrisResult.
type MorrisResults []MorrisResult

func (MorrisResults) Method() Method    { return MethodMorris }
func (r MorrisResults) Len() int        { return len(r) }
func (r MorrisResults) At(i int) Result { return r[i] }
