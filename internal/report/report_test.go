package report

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

func sobolResult(t *testing.T) sensitivity.AnalysisResult {
	t.Helper()
	res, err := sensitivity.NewAnalysisResult(
		[]string{"y", "wait time/s"},
		sensitivity.SobolResults{
			{
				SensitivityIndices: sensitivity.Series{{ParameterID: 0, Value: 0.3}, {ParameterID: 1, Value: 0.5}},
				TotalEffectIndices: sensitivity.Series{{ParameterID: 0, Value: 0.4}, {ParameterID: 1, Value: 0.6}},
			},
			{
				SensitivityIndices: sensitivity.Series{{ParameterID: 1, Value: 0.9}},
				TotalEffectIndices: sensitivity.Series{{ParameterID: 0, Value: 0.1}, {ParameterID: 1, Value: 0.95}},
			},
		},
		[]string{"a", "b"},
	)
	require.NoError(t, err)
	return res
}

func TestTables(t *testing.T) {
	got := Tables(sobolResult(t))
	want := []Table{
		{
			MoeID:      "y",
			Parameters: []string{"a", "b"},
			Statistics: []string{sensitivity.StatSensitivityIndices, sensitivity.StatTotalEffectIndices},
			Values:     [][]float64{{0.3, 0.5}, {0.4, 0.6}},
		},
		{
			MoeID:      "wait time/s",
			Parameters: []string{"a", "b"},
			Statistics: []string{sensitivity.StatSensitivityIndices, sensitivity.StatTotalEffectIndices},
			Values:     [][]float64{{0, 0.9}, {0.1, 0.95}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tables() mismatch (-want +got):\n%s", diff)
	}
}

func TestTables_Empty(t *testing.T) {
	res := sensitivity.AnalysisResult{Method: sensitivity.MethodSobol}
	assert.Empty(t, Tables(res))
}

func TestFileName(t *testing.T) {
	tests := []struct {
		moe  string
		want string
	}{
		{"y", "moe_y.png"},
		{"wait time/s", "moe_wait_time_s.png"},
		{"../etc", "moe_.._etc.png"},
		{"..", "moe_moe.png"},
		{"", "moe_moe.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fileName(tt.moe, ".png"), tt.moe)
	}
}

func TestWritePNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	files, err := WritePNG(dir, sobolResult(t))
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "moe_y.png"),
		filepath.Join(dir, "moe_wait_time_s.png"),
	}, files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err, f)
		assert.Greater(t, img.Bounds().Dx(), 0)
	}
}

func TestBarPlot_Morris(t *testing.T) {
	res, err := sensitivity.NewAnalysisResult(
		[]string{"y"},
		sensitivity.MorrisResults{{
			NormalizedAbsoluteMeans:              sensitivity.Series{{ParameterID: 0, Value: 1}},
			NormalizedMeans:                      sensitivity.Series{{ParameterID: 0, Value: -1}},
			NormalizedAbsoluteStandardDeviations: sensitivity.Series{{ParameterID: 0, Value: 0.5}},
			NormalizedStandardDeviations:         sensitivity.Series{{ParameterID: 0, Value: 0.25}},
		}},
		[]string{"a"},
	)
	require.NoError(t, err)

	tables := Tables(res)
	require.Len(t, tables, 1)
	p, err := BarPlot(tables[0], res.Method)
	require.NoError(t, err)
	assert.Equal(t, "y - morris sensitivity", p.Title.Text)
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	err := RenderHTML(&buf, sobolResult(t), HTMLOptions{AssetsHost: "/static/"})
	require.NoError(t, err)

	page := buf.String()
	assert.Contains(t, page, "Sensitivity analysis (sobol)")
	assert.Contains(t, page, "/static/echarts.min.js")
	assert.Contains(t, page, "total_effect_indices")
	assert.Contains(t, page, "wait time")
	assert.Equal(t, 2, strings.Count(page, "echarts.init("))
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	files, err := Write(dir, sobolResult(t), HTMLOptions{Title: "run 42"})
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "index.html"), files[2])

	page, err := os.ReadFile(files[2])
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>run 42</title>")
}
