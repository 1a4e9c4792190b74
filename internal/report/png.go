package report

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

const barWidth = 12

// BarPlot builds the grouped bar chart of one table.
func BarPlot(t Table, method sensitivity.Method) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %s sensitivity", t.MoeID, method)
	p.X.Label.Text = "Parameter"
	p.Y.Label.Text = "Value"

	n := len(t.Statistics)
	for i, stat := range t.Statistics {
		bars, err := plotter.NewBarChart(plotter.Values(t.Values[i]), vg.Points(barWidth))
		if err != nil {
			return nil, fmt.Errorf("%s bars: %w", stat, err)
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		// Center the group of n bars on each parameter tick.
		bars.Offset = vg.Points(barWidth * (float64(i) - float64(n-1)/2))
		p.Add(bars)
		p.Legend.Add(stat, bars)
	}
	p.NominalX(t.Parameters...)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG saves one PNG per MoE in dir and returns the file paths. MoEs
// without parameters are skipped.
func WritePNG(dir string, result sensitivity.AnalysisResult) ([]string, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	var files []string
	for _, t := range Tables(result) {
		if len(t.Parameters) == 0 {
			continue
		}
		p, err := BarPlot(t, result.Method)
		if err != nil {
			return nil, fmt.Errorf("moe %s: %w", t.MoeID, err)
		}
		width := vg.Length(2+len(t.Parameters)) * vg.Inch
		if width < 6*vg.Inch {
			width = 6 * vg.Inch
		}
		file := filepath.Join(dir, fileName(t.MoeID, ".png"))
		if err := p.Save(width, 4*vg.Inch, file); err != nil {
			return nil, fmt.Errorf("save %s plot: %w", t.MoeID, err)
		}
		files = append(files, file)
	}
	return files, nil
}
