package api

import (
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

// ErrNoChartData is returned when there is nothing to plot
var ErrNoChartData = errors.New("no data available for visualization")

const (
	chartWidth  = 960
	chartHeight = 420
)

var seriesColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorRed,
	chart.ColorGreen,
	chart.ColorOrange,
	chart.ColorCyan,
	chart.ColorAlternateGray,
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    3,
	}
}

// RenderCasesChart draws one line per (location, year) with cases by month
func RenderCasesChart(w io.Writer, points []entities.SeriesPoint) error {
	if len(points) == 0 {
		return ErrNoChartData
	}

	type key struct {
		location string
		year     int
	}
	var order []key
	values := make(map[key][]float64)
	maxCases := 0
	for _, p := range points {
		k := key{p.Location, p.Year}
		if _, ok := values[k]; !ok {
			order = append(order, k)
			values[k] = make([]float64, entities.MonthCount)
		}
		values[k][int(p.Month)-1] = float64(p.Cases)
		if p.Cases > maxCases {
			maxCases = p.Cases
		}
	}

	xs := make([]float64, entities.MonthCount)
	ticks := make([]chart.Tick, entities.MonthCount)
	for i, m := range entities.Months {
		xs[i] = float64(i + 1)
		ticks[i] = chart.Tick{Value: xs[i], Label: m.String()[:3]}
	}

	series := make([]chart.Series, 0, len(order))
	for i, k := range order {
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s (%d)", k.location, k.year),
			XValues: xs,
			YValues: values[k],
			Style:   lineStyle(seriesColors[i%len(seriesColors)]),
		})
	}

	ch := chart.Chart{
		Title:      "Monthly Reported Dengue Cases",
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "Month", Ticks: ticks, Range: &chart.ContinuousRange{Min: 0.5, Max: 12.5}},
		YAxis: chart.YAxis{
			Name:  "Cases",
			Range: &chart.ContinuousRange{Min: 0, Max: niceCeil(float64(maxCases))},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render cases chart: %w", err)
	}
	return nil
}

// RenderFumigationChart draws the expected progress timeline for a city
func RenderFumigationChart(w io.Writer, city entities.FumigationCity, timeline []entities.TimelinePoint) error {
	if len(timeline) == 0 {
		return ErrNoChartData
	}

	// Start at the origin so a one day timeline still has two points
	xs := []float64{0}
	ys := []float64{0}
	for _, p := range timeline {
		xs = append(xs, float64(p.Day))
		ys = append(ys, p.Progress*100)
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("Expected Fumigation Progress in %s", city.City),
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  "Day",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(timeline))},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%d", int(f))
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name:  "Progress (%)",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
			Ticks: []chart.Tick{{Value: 0, Label: "0"}, {Value: 25, Label: "25"}, {Value: 50, Label: "50"}, {Value: 75, Label: "75"}, {Value: 100, Label: "100"}},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: city.City, XValues: xs, YValues: ys, Style: lineStyle(chart.ColorBlue)},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render fumigation chart: %w", err)
	}
	return nil
}

// niceCeil rounds up to 1, 2 or 5 times a power of ten, and never below 1
func niceCeil(v float64) float64 {
	if v <= 1 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}
