// Package report renders kinematics charts for a stored obstacle
// history. Output is a self-contained HTML page built with go-echarts,
// one line chart each for speed, acceleration magnitude and heading.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/prediction/internal/obstacle"
	"github.com/banshee-data/prediction/internal/units"
)

// Options controls chart rendering.
type Options struct {
	// Title is the page/chart title; defaults to "Obstacle kinematics".
	Title string
	// SpeedUnits selects the unit for the speed chart (units package
	// constants); defaults to m/s.
	SpeedUnits string
}

// Render writes an HTML report for one obstacle's feature history.
// The history may be in any order; charts are drawn oldest to newest.
func Render(w io.Writer, history []obstacle.Feature, options Options) error {
	if len(history) == 0 {
		return fmt.Errorf("render report: empty feature history")
	}

	title := options.Title
	if title == "" {
		title = "Obstacle kinematics"
	}
	speedUnits := options.SpeedUnits
	if !units.IsValid(speedUnits) {
		speedUnits = units.MPS
	}

	// History is stored newest first; plot oldest to newest.
	ordered := make([]obstacle.Feature, len(history))
	copy(ordered, history)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	timestamps := make([]string, len(ordered))
	speedData := make([]opts.LineData, len(ordered))
	accData := make([]opts.LineData, len(ordered))
	headingData := make([]opts.LineData, len(ordered))
	for i, f := range ordered {
		timestamps[i] = fmt.Sprintf("%.3f", f.Timestamp)
		speedData[i] = opts.LineData{Value: units.ConvertSpeed(f.Speed, speedUnits)}
		accData[i] = opts.LineData{Value: f.AccelerationNorm}
		headingData[i] = opts.LineData{Value: f.VelocityHeading}
	}

	speedChart := newLineChart(
		title,
		fmt.Sprintf("%s: speed", title),
		units.SpeedLabel(speedUnits),
		timestamps,
	)
	speedChart.AddSeries("speed", speedData)

	accChart := newLineChart(
		title,
		fmt.Sprintf("%s: acceleration", title),
		"acceleration (m/s²)",
		timestamps,
	)
	accChart.AddSeries("acceleration", accData)

	headingChart := newLineChart(
		title,
		fmt.Sprintf("%s: velocity heading", title),
		"heading (rad)",
		timestamps,
	)
	headingChart.AddSeries("heading", headingData)

	page := components.NewPage()
	page.AddCharts(speedChart, accChart, headingChart)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// RenderFile writes the report to an HTML file.
func RenderFile(path string, history []obstacle.Feature, options Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	if err := Render(f, history, options); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newLineChart(pageTitle, title, yAxisName string, xLabels []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yAxisName, NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(xLabels)
	return line
}
