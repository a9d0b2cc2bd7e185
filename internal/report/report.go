// Package report renders a static HTML summary of one conversion run.
//
// The page is built from manifest rows rather than the artifacts on disk,
// so it stays cheap even for long recordings. It is self-contained HTML
// with ECharts panels and can be opened straight from the output
// directory without a server.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/tensor.report/internal/extract"
	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/manifest"
	"github.com/banshee-data/tensor.report/internal/monitoring"
)

const (
	chartWidth  = "900px"
	chartHeight = "450px"
)

// classTotalsChart shows how many boxes of each class the run produced.
func classTotalsChart(summary *manifest.RunSummary) *charts.Bar {
	x := []string{"vehicles", "pedestrians", "cyclists"}
	y := []opts.BarData{
		{Value: summary.Vehicles},
		{Value: summary.Pedestrians},
		{Value: summary.Cyclists},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Label Classes",
			Subtitle: fmt.Sprintf("run=%s boxes=%d", summary.RunID, summary.Vehicles+summary.Pedestrians+summary.Cyclists),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("boxes", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// splitSizesChart shows how frames are distributed across dataset splits.
func splitSizesChart(summary *manifest.RunSummary) *charts.Bar {
	x := []string{extract.SplitTrain, extract.SplitValidation, extract.SplitTest}
	y := make([]opts.BarData, 0, len(x))
	for _, split := range x {
		y = append(y, opts.BarData{Value: summary.SplitCounts[split]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Dataset Splits",
			Subtitle: fmt.Sprintf("frames=%d", summary.Frames),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("frames", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// pointsPerFrameChart plots the lidar return count of every frame so
// dropouts and occlusions stand out.
func pointsPerFrameChart(stats []manifest.FrameStats) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(stats))
	maxIndex := 0.0
	maxPoints := 0.0
	for _, fs := range stats {
		if float64(fs.FrameIndex) > maxIndex {
			maxIndex = float64(fs.FrameIndex)
		}
		if float64(fs.PointCount) > maxPoints {
			maxPoints = float64(fs.PointCount)
		}
		data = append(data, opts.ScatterData{Value: []interface{}{fs.FrameIndex, fs.PointCount}})
	}

	xPad := maxIndex * 1.05
	if xPad == 0 {
		xPad = 1.0
	}
	yPad := maxPoints * 1.05
	if yPad == 0 {
		yPad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Points per Frame",
			Subtitle: fmt.Sprintf("frames=%d", len(stats)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: xPad, Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: yPad, Name: "points", NameLocation: "middle", NameGap: 45}),
	)
	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}

// Write renders the run report and writes it to path.
func Write(fs fsutil.FileSystem, path string, summary *manifest.RunSummary, stats []manifest.FrameStats) error {
	if summary == nil {
		return fmt.Errorf("no run summary to report")
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Conversion %s", summary.Recording)
	page.AddCharts(
		classTotalsChart(summary),
		splitSizesChart(summary),
		pointsPerFrameChart(stats),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render run report: %w", err)
	}
	if err := fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}
	monitoring.Logf("report: wrote %s (%d frames, status %s)", path, summary.Frames, summary.Status)
	return nil
}
