// Package report renders analysis results as charts: one grouped bar chart
// per MoE, with a bar per statistic for every parameter.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

// Table is the statistics of one MoE laid out for plotting.
type Table struct {
	MoeID      string
	Parameters []string
	Statistics []string
	// Values[s][p] is statistic s of parameter p.
	Values [][]float64
}

// Tables lays out every MoE of result in order. The statistic order is
// taken from the first parameter; absent values are plotted as 0.
func Tables(result sensitivity.AnalysisResult) []Table {
	tables := make([]Table, 0, len(result.Moes))
	for _, moe := range result.Moes {
		t := Table{MoeID: moe.MoeID}
		for _, pr := range moe.Parameters {
			t.Parameters = append(t.Parameters, pr.ParameterID)
		}
		if len(moe.Parameters) > 0 {
			for _, s := range moe.Parameters[0].Statistics {
				t.Statistics = append(t.Statistics, s.Name)
			}
		}
		t.Values = make([][]float64, len(t.Statistics))
		for i, stat := range t.Statistics {
			t.Values[i] = make([]float64, len(t.Parameters))
			for j, param := range t.Parameters {
				t.Values[i][j], _ = moe.Parameters.Get(param, stat)
			}
		}
		tables = append(tables, t)
	}
	return tables
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// fileName returns a file name for a MoE id.
func fileName(moe, ext string) string {
	name := unsafeFileChars.ReplaceAllString(moe, "_")
	if name == "" || name == "." || name == ".." {
		name = "moe"
	}
	return "moe_" + name + ext
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return nil
}

// Write renders result into dir: a PNG per MoE and an index.html page
// holding all charts. It returns the written paths.
func Write(dir string, result sensitivity.AnalysisResult, opts HTMLOptions) ([]string, error) {
	files, err := WritePNG(dir, result)
	if err != nil {
		return nil, err
	}

	index := filepath.Join(dir, "index.html")
	f, err := os.Create(index)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", index, err)
	}
	if err := RenderHTML(f, result, opts); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", index, err)
	}
	return append(files, index), nil
}
