package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

// HTMLOptions tunes the rendered page.
type HTMLOptions struct {
	// Title is the page title; empty uses the experiment-agnostic default.
	Title string
	// AssetsHost overrides where echarts.min.js is loaded from.
	AssetsHost string
}

// BarChart builds the echarts bar chart of one table.
func BarChart(t Table, method sensitivity.Method, o HTMLOptions) *charts.Bar {
	bar := charts.NewBar()
	initOpts := opts.Initialization{Width: "100%", Height: "480px"}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: t.MoeID, Subtitle: fmt.Sprintf("method=%s parameters=%d", method, len(t.Parameters))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
	)
	bar.SetXAxis(t.Parameters)
	for i, stat := range t.Statistics {
		data := make([]opts.BarData, len(t.Values[i]))
		for j, v := range t.Values[i] {
			data[j] = opts.BarData{Name: t.Parameters[j], Value: v}
		}
		bar.AddSeries(stat, data)
	}
	return bar
}

// RenderHTML writes a page with one bar chart per MoE to w.
func RenderHTML(w io.Writer, result sensitivity.AnalysisResult, o HTMLOptions) error {
	page := components.NewPage()
	title := o.Title
	if title == "" {
		title = fmt.Sprintf("Sensitivity analysis (%s)", result.Method)
	}
	page.SetPageTitle(title)
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	for _, t := range Tables(result) {
		page.AddCharts(BarChart(t, result.Method, o))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report page: %w", err)
	}
	return nil
}
