// Package plotkit is the plotting surface exposed to model-generated chart
// code. The chart executor injects a fresh *Figure as plotkit.Current into
// the sandboxed interpreter before every run; the code draws onto it and the
// executor captures and saves the result afterwards.
package plotkit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"
)

type figureKind int

const (
	kindNone figureKind = iota
	kindBar
	kindLine
	kindPie
)

// Figure accumulates one chart definition. Methods are not safe for
// concurrent use; each run gets its own instance.
type Figure struct {
	kind   figureKind
	title  string
	xlabel string
	ylabel string
	labels []string
	values []float64
	xs     []float64
	ys     []float64
}

// Current is the well-known handle chart code draws on. The executor swaps
// in a fresh figure per invocation, so state never leaks between runs.
var Current = NewFigure()

func NewFigure() *Figure {
	return &Figure{}
}

// Bar replaces the figure with a bar chart of label/value pairs.
func (f *Figure) Bar(labels []string, values []float64) {
	f.kind = kindBar
	f.labels = labels
	f.values = values
}

// Line replaces the figure with a line chart over x/y points.
func (f *Figure) Line(xs, ys []float64) {
	f.kind = kindLine
	f.xs = xs
	f.ys = ys
}

// Pie replaces the figure with a pie chart of label/value pairs.
func (f *Figure) Pie(labels []string, values []float64) {
	f.kind = kindPie
	f.labels = labels
	f.values = values
}

func (f *Figure) Title(title string)  { f.title = title }
func (f *Figure) XLabel(label string) { f.xlabel = label }
func (f *Figure) YLabel(label string) { f.ylabel = label }

// Show is a no-op: rendering is headless and the executor saves the figure
// itself after the code returns.
func (f *Figure) Show() {}

// Drawn reports whether the code produced anything to save.
func (f *Figure) Drawn() bool {
	return f.kind != kindNone
}

// Save renders the figure as PNG at path, creating parent directories.
func (f *Figure) Save(path string) error {
	if !f.Drawn() {
		return errors.New("figure is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating chart directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	defer out.Close()

	switch f.kind {
	case kindBar:
		return f.renderBar(out)
	case kindLine:
		return f.renderLine(out)
	case kindPie:
		return f.renderPie(out)
	}
	return errors.New("unknown figure kind")
}

func (f *Figure) chartValues() ([]chart.Value, error) {
	if len(f.labels) != len(f.values) {
		return nil, fmt.Errorf("labels/values length mismatch: %d vs %d", len(f.labels), len(f.values))
	}
	if len(f.values) == 0 {
		return nil, errors.New("no values to plot")
	}
	values := make([]chart.Value, len(f.values))
	for i := range f.values {
		values[i] = chart.Value{Label: f.labels[i], Value: f.values[i]}
	}
	return values, nil
}

func (f *Figure) renderBar(out *os.File) error {
	bars, err := f.chartValues()
	if err != nil {
		return err
	}
	graph := chart.BarChart{
		Title:    f.title,
		Width:    720,
		Height:   480,
		BarWidth: 48,
		Bars:     bars,
	}
	return graph.Render(chart.PNG, out)
}

func (f *Figure) renderLine(out *os.File) error {
	if len(f.xs) == 0 || len(f.xs) != len(f.ys) {
		return fmt.Errorf("invalid line series: %d x values, %d y values", len(f.xs), len(f.ys))
	}
	graph := chart.Chart{
		Title:  f.title,
		Width:  720,
		Height: 480,
		XAxis:  chart.XAxis{Name: f.xlabel},
		YAxis:  chart.YAxis{Name: f.ylabel},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: f.xs, YValues: f.ys},
		},
	}
	return graph.Render(chart.PNG, out)
}

func (f *Figure) renderPie(out *os.File) error {
	values, err := f.chartValues()
	if err != nil {
		return err
	}
	graph := chart.PieChart{
		Title:  f.title,
		Width:  512,
		Height: 512,
		Values: values,
	}
	return graph.Render(chart.PNG, out)
}
