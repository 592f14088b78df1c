package expenses

import (
	"errors"
	"fmt"
	"io"

	"expensebook/internal/models"

	"github.com/wcharczuk/go-chart/v2"
)

// ErrNoChartData is returned when there is nothing positive to plot.
var ErrNoChartData = errors.New("no chart data")

var chartBackground = chart.Style{
	Padding: chart.Box{
		Top:    30,
		Left:   30,
		Right:  30,
		Bottom: 30,
	},
	FillColor: chart.ColorWhite,
}

// CategoryChart renders a PNG pie chart of spending per category.
func CategoryChart(w io.Writer, totals []models.CategoryTotal) error {
	var sum float64
	for _, ct := range totals {
		if ct.Total > 0 {
			sum += ct.Total
		}
	}

	values := make([]chart.Value, 0, len(totals))
	for _, ct := range totals {
		if ct.Total <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.0f%%", ct.Category, ct.Total/sum*100),
			Value: ct.Total,
		})
	}
	if len(values) == 0 {
		return ErrNoChartData
	}

	pie := chart.PieChart{
		Width:      480,
		Height:     480,
		Values:     values,
		Background: chartBackground,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render category chart: %w", err)
	}
	return nil
}

// MonthChart renders a PNG bar chart of monthly spending. totals arrive
// newest first and are drawn oldest first.
func MonthChart(w io.Writer, totals []models.MonthTotal) error {
	bars := make([]chart.Value, 0, len(totals))
	var top float64
	for i := len(totals) - 1; i >= 0; i-- {
		mt := totals[i]
		if mt.Total <= 0 {
			continue
		}
		bars = append(bars, chart.Value{Label: mt.Month, Value: mt.Total})
		if mt.Total > top {
			top = mt.Total
		}
	}
	if len(bars) == 0 {
		return ErrNoChartData
	}

	graph := chart.BarChart{
		Width:      640,
		Height:     360,
		BarWidth:   40,
		Bars:       bars,
		Background: chartBackground,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render month chart: %w", err)
	}
	return nil
}
