package export

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/arbitrage/core/model"
)

const chartTimeLayout = "2006-01-02 15:04"

// PriceChartHTML renders the price series as a standalone HTML line chart.
func PriceChartHTML(w io.Writer, title string, series model.PriceSeries) error {
	line := newLine(title)
	xAxis := make([]string, 0, len(series))
	prices := make([]opts.LineData, 0, len(series))
	for _, p := range series {
		xAxis = append(xAxis, p.Time.Format(chartTimeLayout))
		prices = append(prices, opts.LineData{Value: p.Price})
	}
	line.SetXAxis(xAxis).AddSeries("Price", prices)
	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// DispatchChartHTML renders price and state of charge of a dispatch trace on
// two y axes, with the SoC drawn as a step line.
func DispatchChartHTML(w io.Writer, title string, records []model.DispatchRecord) error {
	line := newLine(title)
	line.ExtendYAxis(opts.YAxis{Name: "SoC (%)", Type: "value", Position: "right", Min: 0, Max: 100})

	xAxis := make([]string, 0, len(records))
	prices := make([]opts.LineData, 0, len(records))
	soc := make([]opts.LineData, 0, len(records))
	for _, r := range records {
		xAxis = append(xAxis, r.Time.Format(chartTimeLayout))
		prices = append(prices, opts.LineData{Value: r.Price})
		soc = append(soc, opts.LineData{Value: round2(r.SoCAfter * 100), Name: r.Action.String()})
	}
	line.SetXAxis(xAxis).
		AddSeries("Price", prices).
		AddSeries("SoC", soc, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, Step: "end"}))
	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func newLine(title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date & Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price (€/MWh)"}),
	)
	return line
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
