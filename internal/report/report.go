// Package report renders the histograms of estimation runs as a standalone
// HTML page with go-echarts.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/agbru/fibqpe/pkg/models"
)

// PageTitle is the title of the rendered page.
const PageTitle = "Fibonacci period estimation"

func toBarItems(vals []int) []opts.BarData {
	out := make([]opts.BarData, len(vals))
	for i, v := range vals {
		out[i] = opts.BarData{Value: v}
	}
	return out
}

func newBar(title, subtitle string, labels []string, values []int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: PageTitle, Width: "1200px", Height: "500px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
	)
	bar.SetXAxis(labels).
		AddSeries("count", toBarItems(values)).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(len(labels) <= 32)}))
	return bar
}

// OutcomeChart plots the raw counts of a run, bitstrings in ascending order.
func OutcomeChart(r models.EstimationResult) *charts.Bar {
	keys := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]int, len(keys))
	for i, k := range keys {
		values[i] = r.Counts[k]
	}
	subtitle := fmt.Sprintf("%d shots over %d counting qubits, seed %d", r.Shots, r.CountingQubits, r.Seed)
	return newBar(fmt.Sprintf("N = %d: measured outcomes", r.Modulus), subtitle, keys, values)
}

// PeriodChart plots the aggregated period histogram of a run.
func PeriodChart(r models.EstimationResult) *charts.Bar {
	periods := make([]int, 0, len(r.Histogram))
	for p := range r.Histogram {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	labels := make([]string, len(periods))
	values := make([]int, len(periods))
	for i, p := range periods {
		labels[i] = strconv.Itoa(p)
		values[i] = r.Histogram[p]
	}
	subtitle := fmt.Sprintf("most frequent %d, Pisano period %d", r.Mode, r.Pisano)
	return newBar(fmt.Sprintf("N = %d: candidate periods", r.Modulus), subtitle, labels, values)
}

// Render writes one page with the outcome and period charts of every result.
func Render(w io.Writer, results []models.EstimationResult) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to plot")
	}
	page := components.NewPage()
	page.PageTitle = PageTitle
	for _, r := range results {
		page.AddCharts(OutcomeChart(r), PeriodChart(r))
	}
	return page.Render(w)
}

// WriteFile renders results to path, creating its directory if needed.
func WriteFile(path string, results []models.EstimationResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html: %w", err)
	}
	if err := Render(f, results); err != nil {
		f.Close()
		return fmt.Errorf("render html: %w", err)
	}
	return f.Close()
}
