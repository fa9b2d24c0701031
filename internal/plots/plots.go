// Package plots renders the statistics figures as PNG files.
package plots

import (
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KI7MT/ki7mt-flare-lab/internal/interval"
)

// Figure sizes.
const (
	Width       = 6 * vg.Inch
	Height      = 4.5 * vg.Inch
	StripHeight = 2 * vg.Inch
)

var (
	barFill    = color.Gray{Y: 160}
	laneA      = color.RGBA{B: 200, A: 255}
	laneB      = color.RGBA{R: 200, A: 255}
	laneRegion = color.RGBA{G: 160, A: 255}
)

// Bar is one labelled bar.
type Bar struct {
	Label string
	Value float64
}

// DurationBoxPlot draws one box per class letter, without outliers.
func DurationBoxPlot(path string, letters []string, minutes map[string][]float64) error {
	p := plot.New()
	p.X.Label.Text = "GOES Class"
	p.Y.Label.Text = "Flare Duration (Minutes)"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	var names []string
	for _, l := range letters {
		values := minutes[l]
		if len(values) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(len(names)), plotter.Values(values))
		if err != nil {
			return errors.Wrapf(err, "boxplot %s", l)
		}
		box.Outside = nil
		p.Add(box)
		names = append(names, l)
	}
	if len(names) == 0 {
		return errors.New("boxplot: no durations")
	}
	p.NominalX(names...)
	return save(p, path, Width, Height)
}

// BarChart draws grey bars with their values printed above them.
func BarChart(path, title, xLabel, yLabel string, bars []Bar) error {
	if len(bars) == 0 {
		return errors.New("bar chart: no bars")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	values := make(plotter.Values, len(bars))
	names := make([]string, len(bars))
	xys := make(plotter.XYs, len(bars))
	labels := make([]string, len(bars))
	for i, b := range bars {
		values[i] = b.Value
		names[i] = b.Label
		xys[i] = plotter.XY{X: float64(i), Y: b.Value}
		labels[i] = strconv.FormatFloat(b.Value, 'f', -1, 64)
	}

	chart, err := plotter.NewBarChart(values, vg.Points(25))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	chart.Color = barFill
	chart.LineStyle.Width = vg.Length(1)
	p.Add(chart)

	valueLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return errors.Wrap(err, "bar labels")
	}
	for i := range valueLabels.TextStyle {
		valueLabels.TextStyle[i].XAlign = -0.5
		valueLabels.TextStyle[i].YAlign = 0.2
	}
	p.Add(valueLabels)

	p.NominalX(names...)
	p.Y.Min = 0
	return save(p, path, Width, Height)
}

// IntervalOverlap draws intervals a and b on separate lanes with their
// intersection between them.
func IntervalOverlap(path string, a, b []interval.Interval[float64]) error {
	p := plot.New()
	p.X.Label.Text = "Number Line"
	p.Add(plotter.NewGrid())

	lanes := []struct {
		name  string
		y     float64
		col   color.Color
		spans []interval.Interval[float64]
	}{
		{"A", 1, laneA, a},
		{"Overlap", 1.5, laneRegion, interval.Intersect(a, b)},
		{"B", 2, laneB, b},
	}

	var ticks []plot.Tick
	for _, lane := range lanes {
		ticks = append(ticks, plot.Tick{Value: lane.y, Label: lane.name})
		for i, iv := range lane.spans {
			line, err := plotter.NewLine(plotter.XYs{{X: iv.Start, Y: lane.y}, {X: iv.End, Y: lane.y}})
			if err != nil {
				return errors.Wrap(err, "interval line")
			}
			line.Color = lane.col
			line.Width = vg.Points(6)
			p.Add(line)
			if i == 0 {
				p.Legend.Add(lane.name, line)
			}
		}
	}

	p.Y.Min, p.Y.Max = 0.5, 2.5
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	return save(p, path, Width, StripHeight)
}

func save(p *plot.Plot, path string, w, h vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create plot directory")
	}
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
