package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/leed_phase_go/internal/parser"
)

var plotColors = []color.Color{
	color.RGBA{R: 255, A: 255},                 // Red
	color.RGBA{G: 160, A: 255},                 // Green
	color.RGBA{B: 255, A: 255},                 // Blue
	color.RGBA{R: 255, G: 165, A: 255},         // Orange
	color.RGBA{R: 128, B: 128, A: 255},         // Purple
	color.RGBA{G: 128, B: 128, A: 255},         // Teal
	color.RGBA{R: 100, G: 100, B: 100, A: 255}, // Grey
}

// CreatePhaseShiftPlot draws one line per channel, phase shift against
// energy, over the energies that were read. A nil channels slice plots every
// channel.
func CreatePhaseShiftPlot(t *parser.Table, channels []int) ([]byte, error) {
	if t == nil || t.ActualEnergyCount() == 0 {
		return nil, fmt.Errorf("no phase shifts to plot")
	}
	if channels == nil {
		for l := 0; l < t.Channels(); l++ {
			channels = append(channels, l)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Phase Shifts (lmax = %d)", t.LMax())
	p.X.Label.Text = "Energy (Hartree)"
	p.Y.Label.Text = "Phase Shift (rad)"
	p.Add(plotter.NewGrid())

	n := t.ActualEnergyCount()
	for idx, l := range channels {
		if l < 0 || l >= t.Channels() {
			return nil, fmt.Errorf("channel l=%d out of range [0, %d]", l, t.LMax())
		}
		pts := make(plotter.XYs, n)
		for i := 0; i < n; i++ {
			pts[i].X = t.Energy(i)
			pts[i].Y = t.PhaseShift(i, l)
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create line for l=%d: %w", l, err)
		}
		line.Color = plotColors[idx%len(plotColors)]
		line.LineStyle.Width = vg.Points(1.5)

		p.Add(line)
		p.Legend.Add(fmt.Sprintf("l = %d", l), line)
	}

	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-10)

	return renderPNG(p, vg.Points(800), vg.Points(400))
}

func renderPNG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	writer, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}
