package server

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/YuminosukeSato/automl/dataframe"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is drawn at
// the top.
type corrGrid struct {
	m *mat.SymDense
	n int
}

func (g corrGrid) Dims() (c, r int)   { return g.n, g.n }
func (g corrGrid) Z(c, r int) float64 { return g.m.At(g.n-1-r, c) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// writeHeatmap renders the correlation matrix with one annotated cell per
// column pair.
func writeHeatmap(w io.Writer, corr *dataframe.Correlation) error {
	n := len(corr.Columns)
	if n == 0 {
		return errors.NewValueError("correlation heatmap", "no numeric columns")
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	grid := corrGrid{m: corr.Values, n: n}
	hm := plotter.NewHeatMap(grid, cmap.Palette(255))
	hm.NaN = color.Gray{Y: 200}

	p := plot.New()
	p.Title.Text = "Correlation"
	p.Add(hm)

	xticks := make([]plot.Tick, n)
	yticks := make([]plot.Tick, n)
	labels := plotter.XYLabels{XYs: make(plotter.XYs, 0, n*n)}
	for i, name := range corr.Columns {
		xticks[i] = plot.Tick{Value: float64(i), Label: name}
		yticks[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
		for j := 0; j < n; j++ {
			v := corr.Values.At(i, j)
			text := "nan"
			if !math.IsNaN(v) {
				text = fmt.Sprintf("%.2f", v)
			}
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			labels.Labels = append(labels.Labels, text)
		}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight

	l, err := plotter.NewLabels(labels)
	if err != nil {
		return errors.Wrap(err, "heatmap labels")
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(l)

	side := vg.Length(40+15*n) * vg.Millimeter
	return writePNG(w, p, side, side)
}

// writeValueCounts renders a bar chart of counts, most frequent first.
func writeValueCounts(w io.Writer, name string, counts []dataframe.ValueCount) error {
	if len(counts) == 0 {
		return errors.NewValueError("value counts", fmt.Sprintf("column %q has no values", name))
	}
	values := make(plotter.Values, len(counts))
	names := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count)
		names[i] = c.Value
	}

	p := plot.New()
	p.Title.Text = name
	p.Y.Label.Text = "count"

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	bars.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)
	if len(names) > 8 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
	}

	width := vg.Length(max(4, len(counts))) * vg.Centimeter
	return writePNG(w, p, width, 8*vg.Centimeter)
}

func writePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	c := vgimg.New(width, height)
	p.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return errors.Wrap(err, "write png")
	}
	return nil
}
