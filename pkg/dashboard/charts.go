package dashboard

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

var eighths = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// ChartLines renders the newest samples of a series as a filled chart of
// height rows, with the max and 0 scale on the left. Each column is one
// sample, oldest on the left.
func ChartLines(values []int, width, height int) []string {
	if height < 1 || width < 1 {
		return nil
	}

	maxVal := 0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	maxStr := fmt.Sprintf("%d", maxVal)
	labelWidth := len(maxStr) + 1

	columns := width - labelWidth
	if columns < 1 {
		return make([]string, height)
	}
	if len(values) > columns {
		values = values[len(values)-columns:]
	}

	lines := make([]string, height)
	for row := 0; row < height; row++ {
		var b strings.Builder
		switch row {
		case 0:
			fmt.Fprintf(&b, "%*s ", labelWidth-1, maxStr)
		case height - 1:
			fmt.Fprintf(&b, "%*s ", labelWidth-1, "0")
		default:
			fmt.Fprintf(&b, "%*s ", labelWidth-1, "")
		}

		// Rows count from the top; level is the fill below this row's floor.
		floor := float64(height - 1 - row)
		for _, v := range values {
			filled := 0.0
			if maxVal > 0 {
				filled = float64(v) / float64(maxVal) * float64(height)
			}
			remainder := filled - floor
			switch {
			case remainder >= 1:
				b.WriteRune(eighths[8])
			case remainder <= 0:
				b.WriteRune(eighths[0])
			default:
				b.WriteRune(eighths[int(remainder*8)])
			}
		}
		lines[row] = b.String()
	}
	return lines
}

// TimeAxis returns the first and last non-empty label of a window.
func TimeAxis(labels []string) (first, last string) {
	for _, l := range labels {
		if l != "" {
			first = l
			break
		}
	}
	if len(labels) > 0 {
		last = labels[len(labels)-1]
	}
	return first, last
}

// ExportPNG writes one PNG chart per series into dir and returns the paths
// written. File names are the lower-cased series names.
func ExportPNG(dir string, series ...*traffic.RollingSeries) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	paths := make([]string, 0, len(series))
	for _, s := range series {
		var buf bytes.Buffer
		if err := renderSeriesPNG(s, &buf); err != nil {
			return paths, fmt.Errorf("render %s chart: %w", s.Name(), err)
		}
		path := filepath.Join(dir, strings.ToLower(s.Name())+".png")
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func seriesColor(name string) drawing.Color {
	if strings.EqualFold(name, "suspicious") {
		return drawing.ColorRed
	}
	return drawing.ColorGreen
}

func renderSeriesPNG(s *traffic.RollingSeries, buf *bytes.Buffer) error {
	values := s.Values()
	labels := s.Labels()

	xs := make([]float64, len(values))
	ys := make([]float64, len(values))
	for i, v := range values {
		xs[i] = float64(i)
		ys[i] = float64(v)
	}

	var ticks []chart.Tick
	for i, l := range labels {
		if l != "" && i%5 == 0 {
			ticks = append(ticks, chart.Tick{Value: float64(i), Label: l})
		}
	}
	if len(ticks) < 2 {
		ticks = nil
	}

	col := seriesColor(s.Name())
	ch := chart.Chart{
		Title:      s.Name() + " traffic",
		Width:      900,
		Height:     300,
		Background: chart.Style{Padding: chart.Box{Top: 30, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "time", Ticks: ticks},
		YAxis: chart.YAxis{
			Name:  "events",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max(1, s.Max()))},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    s.Name(),
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: col,
					StrokeWidth: 2,
					FillColor:   col.WithAlpha(64),
				},
			},
		},
	}
	return ch.Render(chart.PNG, buf)
}
