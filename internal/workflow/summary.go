package workflow

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

// OutputSummary describes the spread of one output over the matched points.
type OutputSummary struct {
	OutputID string  `json:"output_id"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Summarize computes an OutputSummary per output id. Column i of the
// matched points' values belongs to outputIDs[i].
func Summarize(outputIDs []string, matched []sensitivity.OutputPoint) []OutputSummary {
	summaries := make([]OutputSummary, 0, len(outputIDs))
	col := make([]float64, len(matched))
	for i, id := range outputIDs {
		for j, p := range matched {
			col[j] = p.Values[i]
		}
		s := OutputSummary{OutputID: id, Count: len(col)}
		if len(col) > 0 {
			s.Mean, s.StdDev = stat.MeanStdDev(col, nil)
			if len(col) == 1 {
				s.StdDev = 0
			}
			s.Min = floats.Min(col)
			s.Max = floats.Max(col)
		}
		summaries = append(summaries, s)
	}
	return summaries
}
