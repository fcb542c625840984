package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/leed_phase_go/internal/parser"
)

// shiftGrid exposes the read rows of a table as a plotter.GridXYZ with
// columns indexed by energy and rows by channel.
type shiftGrid struct {
	t *parser.Table
	n int
}

func (g shiftGrid) Dims() (c, r int)   { return g.n, g.t.Channels() }
func (g shiftGrid) Z(c, r int) float64 { return g.t.PhaseShift(c, r) }
func (g shiftGrid) X(c int) float64    { return float64(c) }
func (g shiftGrid) Y(r int) float64    { return float64(r) }

// CreatePhaseShiftHeatmap draws the phase shifts as an energy x channel grid.
func CreatePhaseShiftHeatmap(t *parser.Table, plotTitle string) ([]byte, error) {
	if t == nil || t.ActualEnergyCount() == 0 {
		return nil, fmt.Errorf("no phase shifts to plot heatmap")
	}
	grid := shiftGrid{t: t, n: t.ActualEnergyCount()}
	numCols, numRows := grid.Dims()

	p := plot.New()
	p.Title.Text = plotTitle
	p.X.Label.Text = "Energy (Hartree)"
	p.Y.Label.Text = "Angular Momentum l"

	yTicks := make([]plot.Tick, numRows)
	for l := range yTicks {
		yTicks[l] = plot.Tick{Value: float64(l), Label: fmt.Sprintf("%d", l)}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.Y.Min = -0.5
	p.Y.Max = float64(numRows) - 0.5

	// Label about eight columns with their energy.
	step := int(math.Max(1, math.Ceil(float64(numCols)/8)))
	var xTicks []plot.Tick
	for c := 0; c < numCols; c += step {
		xTicks = append(xTicks, plot.Tick{Value: float64(c), Label: fmt.Sprintf("%.2f", t.Energy(c))})
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.X.Min = -0.5
	p.X.Max = float64(numCols) - 0.5

	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	hm.Min, hm.Max = zRange(grid)
	hm.NaN = color.Gray{Y: 200}
	p.Add(hm)

	return renderPNG(p, vg.Points(1000), vg.Points(500))
}

// zRange returns the finite extremes of g, widened when they coincide.
func zRange(g shiftGrid) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	c, r := g.Dims()
	for i := 0; i < c; i++ {
		for j := 0; j < r; j++ {
			z := g.Z(i, j)
			if math.IsNaN(z) || math.IsInf(z, 0) {
				continue
			}
			lo = math.Min(lo, z)
			hi = math.Max(hi, z)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi
}
