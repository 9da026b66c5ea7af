package report

import (
	"bytes"
	"fmt"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/alextanhongpin/podreport/pkg/youtube"
)

// Chart canvas in pixels.
const (
	chartWidth  = 800
	chartHeight = 450
)

var palette = []drawing.Color{
	drawing.ColorFromHex("8b5cf6"),
	drawing.ColorFromHex("3b82f6"),
	drawing.ColorFromHex("10b981"),
	drawing.ColorFromHex("f59e0b"),
	drawing.ColorFromHex("ef4444"),
	drawing.ColorFromHex("6b7280"),
}

// Charts renders the fixed chart set as PNGs: retention over time, age
// groups and device types.
func Charts(a *youtube.Analytics) ([][]byte, error) {
	renders := []struct {
		name   string
		render func(*youtube.Analytics) ([]byte, error)
	}{
		{"retention", retentionChart},
		{"age groups", func(a *youtube.Analytics) ([]byte, error) {
			return donutChart("Audience by Age Group", a.AgeGroups)
		}},
		{"devices", func(a *youtube.Analytics) ([]byte, error) {
			return donutChart("Views by Device", a.Devices)
		}},
	}

	charts := make([][]byte, 0, len(renders))
	for _, r := range renders {
		b, err := r.render(a)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s chart: %w", r.name, err)
		}
		charts = append(charts, b)
	}

	return charts, nil
}

func retentionChart(a *youtube.Analytics) ([]byte, error) {
	ys := append([]float64(nil), a.RetentionCurve...)

	// A line needs two points to span the x axis.
	switch len(ys) {
	case 0:
		ys = []float64{0, 0}
	case 1:
		ys = append(ys, ys[0])
	}

	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i + 1)
	}

	indigo := drawing.ColorFromHex("6366f1")
	graph := chart.Chart{
		Title:  "Audience Retention",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis: chart.XAxis{
			Name: "Day",
		},
		YAxis: chart.YAxis{
			Name: "Average % viewed",
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: 100,
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Retention",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: indigo,
					StrokeWidth: 3,
					FillColor:   indigo.WithAlpha(25),
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func donutChart(title string, shares map[string]float64) ([]byte, error) {
	labels := make([]string, 0, len(shares))
	for k, v := range shares {
		if v > 0 {
			labels = append(labels, k)
		}
	}
	sort.Strings(labels)

	values := make([]chart.Value, 0, len(labels))
	for i, k := range labels {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", k, shares[k]),
			Value: shares[k],
			Style: chart.Style{
				FillColor: palette[i%len(palette)],
			},
		})
	}
	if len(values) == 0 {
		values = []chart.Value{{Label: "No data", Value: 1}}
	}

	graph := chart.DonutChart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
