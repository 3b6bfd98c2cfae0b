// Package plotting renders the correlation and confusion-matrix heatmaps
// with gonum/plot.
package plotting

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/stepml/metrics"
	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/stats"
)

// Default image size for rendered heatmaps.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

const paletteSize = 255

// nanColor fills cells whose value is undefined, e.g. zero-variance features.
var nanColor = color.Gray{Y: 200}

// squareGrid adapts a square matrix to plotter.GridXYZ. Row 0 of the matrix
// is drawn at the top, the way tabular heatmaps are usually read.
type squareGrid struct {
	n        int
	at       func(i, j int) float64
	min, max float64
}

func (g squareGrid) Dims() (c, r int)   { return g.n, g.n }
func (g squareGrid) Z(c, r int) float64 { return g.at(g.n-1-r, c) }
func (g squareGrid) X(c int) float64    { return float64(c) }
func (g squareGrid) Y(r int) float64    { return float64(r) }
func (g squareGrid) Min() float64       { return g.min }
func (g squareGrid) Max() float64       { return g.max }

func reversed(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[len(names)-1-i] = n
	}
	return out
}

func newHeatmapPlot(title string, grid squareGrid, pal palette.Palette, xNames, yNames []string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title

	h := plotter.NewHeatMap(grid, pal)
	h.NaN = nanColor
	p.Add(h)

	p.NominalX(xNames...)
	p.NominalY(reversed(yNames)...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return p
}

// CorrelationHeatmap draws a correlation matrix on a diverging blue-red
// scale fixed to [-1, 1].
func CorrelationHeatmap(c *stats.Correlation) (*plot.Plot, error) {
	if c == nil || c.Size() == 0 {
		return nil, errors.NewValueError("CorrelationHeatmap", "empty correlation matrix")
	}

	grid := squareGrid{n: c.Size(), at: c.At, min: -1, max: 1}
	pal := moreland.SmoothBlueRed().Palette(paletteSize)
	return newHeatmapPlot("Feature correlation", grid, pal, c.Names, c.Names), nil
}

// ConfusionHeatmap draws a confusion matrix with the count annotated in each
// cell. Rows are true labels, columns predicted labels.
func ConfusionHeatmap(cm *metrics.ConfusionMatrix) (*plot.Plot, error) {
	if cm == nil || len(cm.Labels) == 0 {
		return nil, errors.NewValueError("ConfusionHeatmap", "empty confusion matrix")
	}

	n := len(cm.Labels)
	maxCount := 1.0
	for _, row := range cm.Rows() {
		for _, v := range row {
			maxCount = math.Max(maxCount, float64(v))
		}
	}

	grid := squareGrid{n: n, at: cm.Counts.At, min: 0, max: maxCount}
	pal := moreland.Kindlmann().Palette(paletteSize)
	names := cm.LabelNames()
	p := newHeatmapPlot("Confusion matrix", grid, pal, names, names)
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"

	var cells plotter.XYLabels
	for i, row := range cm.Rows() {
		for j, v := range row {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			cells.Labels = append(cells.Labels, fmt.Sprint(v))
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, errors.Wrap(err, "annotate confusion matrix")
	}
	// The palette runs dark to light, so light cells get dark text.
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
		labels.TextStyle[i].Color = color.White
		if cm.Counts.At(i/n, i%n) > maxCount/2 {
			labels.TextStyle[i].Color = color.Black
		}
	}
	p.Add(labels)
	return p, nil
}

// WritePNG renders p as PNG into w.
func WritePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return errors.Wrap(err, "render png")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write png")
	}
	return nil
}

// SavePNG writes p to dir/name at the default size, creating dir if needed,
// and returns the file path.
func SavePNG(dir, name string, p *plot.Plot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create output directory %s", dir)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	if err := WritePNG(f, p, DefaultWidth, DefaultHeight); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "close %s", path)
	}
	return path, nil
}
