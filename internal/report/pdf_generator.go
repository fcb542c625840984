package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/leed_phase_go/internal/analysis"
	"github.com/user/leed_phase_go/internal/parser"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)
)

// Plot keys understood by BuildPDFReport.
const (
	PlotLines   = "phase_shift_lines"
	PlotHeatmap = "phase_shift_heatmap"
)

// pdfStyler holds reusable styling and state for PDF generation
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	styles      map[string]func()
	lineHeight  float64
	currentY    float64 // To manually track Y position for flowing content
	pageHeight  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		styles:      make(map[string]func()),
		lineHeight:  6,
		pageHeight:  pdfPageHeightLandscape - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 14)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["warning"] = func() {
		s.pdf.SetFont("Arial", "I", 10)
		s.pdf.SetTextColor(200, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200) // Light grey
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageHeight {
		s.newPage()
	}
}

func (s *pdfStyler) writeParagraph(text string, styleName string, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitLines([]byte(text), pdfContentWidth)
	s.checkAddPage(float64(len(lines)) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

// writeTable draws a header row and data rows with equal-width columns,
// repeating the header after a page break.
func (s *pdfStyler) writeTable(headers []string, rows [][]string) {
	colWidth := pdfContentWidth / float64(len(headers))

	writeHeader := func() {
		s.applyStyle("tableHeader")
		x := pdfMargin
		for _, h := range headers {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(colWidth, s.lineHeight, h, "1", 0, "C", true, 0, "")
			x += colWidth
		}
		s.currentY += s.lineHeight
	}

	s.checkAddPage(2 * s.lineHeight)
	writeHeader()
	for _, row := range rows {
		if s.currentY+s.lineHeight > s.pageHeight {
			s.newPage()
			writeHeader()
		}
		s.applyStyle("tableCell")
		x := pdfMargin
		for _, cell := range row {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(colWidth, s.lineHeight, cell, "1", 0, "C", false, 0, "")
			x += colWidth
		}
		s.currentY += s.lineHeight
	}
}

func (s *pdfStyler) addImage(imageBytes []byte, imageName string, width, height float64, caption string) {
	s.pdf.RegisterImageOptionsReader(imageName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(imageBytes))

	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	s.pdf.ImageOptions(imageName, pdfMargin+(pdfContentWidth-width)/2, s.currentY, width, height, false,
		gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "normal", "C")
	}
	s.addSpacer(2)
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "--"
	}
	return fmt.Sprintf("%.4f", v)
}

// WritePDFReport renders the report for one table to w.
func WritePDFReport(w io.Writer, t *parser.Table, res *analysis.TableAnalysis, plotImages map[string][]byte) error {
	if t == nil || res == nil {
		return fmt.Errorf("no table to report")
	}

	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AddPage()

	styler := newPDFStyler(pdf)

	styler.writeParagraph(fmt.Sprintf("Phase Shift Report: %s", filepath.Base(t.SourcePath())), "h1", "C")
	styler.addSpacer(5)

	d := t.Displacement()
	styler.writeParagraph(fmt.Sprintf("Source: %s", t.SourcePath()), "normal", "L")
	styler.writeParagraph(fmt.Sprintf("Checksum (xxhash64): %016x", t.Checksum()), "normal", "L")
	styler.writeParagraph(fmt.Sprintf("Displacement: (%.4f, %.4f, %.4f)", d[0], d[1], d[2]), "normal", "L")
	styler.writeParagraph(fmt.Sprintf("Energy input unit: %s, lmax = %d", t.Unit(), t.LMax()), "normal", "L")
	styler.writeParagraph(fmt.Sprintf("Energies read: %d of %d declared", res.ActualEnergyCount, res.DeclaredEnergyCount), "normal", "L")
	styler.writeParagraph(fmt.Sprintf("Energy range: %s to %s Hartree (last energy read: %s)",
		formatStat(res.EnergyMin), formatStat(res.EnergyMax), formatStat(res.LegacyMaxEnergy)), "normal", "L")
	styler.addSpacer(3)

	for _, msg := range res.Warnings {
		styler.writeParagraph("Warning: "+msg, "warning", "L")
	}
	styler.addSpacer(5)

	styler.writeParagraph("Channel Statistics", "h2", "L")
	statRows := make([][]string, 0, len(res.Channels))
	for _, cs := range res.Channels {
		statRows = append(statRows, []string{
			fmt.Sprintf("%d", cs.L),
			formatStat(cs.Mean),
			formatStat(cs.StdDev),
			formatStat(cs.Min),
			formatStat(cs.Max),
			formatStat(cs.Range),
			fmt.Sprintf("%d", cs.ZeroCount),
		})
	}
	styler.writeTable([]string{"l", "Mean", "Std Dev", "Min", "Max", "Range", "Zero"}, statRows)
	styler.addSpacer(5)

	styler.newPage()
	styler.writeParagraph("Phase Shifts", "h2", "L")
	headers := []string{"E (H)"}
	for l := 0; l < t.Channels(); l++ {
		headers = append(headers, fmt.Sprintf("l=%d", l))
	}
	shiftRows := make([][]string, 0, t.ActualEnergyCount())
	for i := 0; i < t.ActualEnergyCount(); i++ {
		row := []string{fmt.Sprintf("%.4f", t.Energy(i))}
		for l := 0; l < t.Channels(); l++ {
			if v := t.PhaseShift(i, l); v != 0 {
				row = append(row, fmt.Sprintf("%.4f", v))
			} else {
				row = append(row, "--")
			}
		}
		shiftRows = append(shiftRows, row)
	}
	styler.writeTable(headers, shiftRows)

	plotDefs := []struct {
		Key     string
		Title   string
		Caption string
	}{
		{PlotLines, "Phase Shifts against Energy", "Phase shift per angular-momentum channel (rad)"},
		{PlotHeatmap, "Phase Shift Map", "Phase shift over energy and channel (rad)"},
	}

	imgWidth := pdfContentWidth * 0.9
	imgHeight := imgWidth * (3.8 / 10.0)
	for _, pDef := range plotDefs {
		styler.newPage()
		styler.writeParagraph(pDef.Title, "h2", "L")
		if imgBytes, ok := plotImages[pDef.Key]; ok && len(imgBytes) > 0 {
			styler.addImage(imgBytes, pDef.Key, imgWidth, imgHeight, pDef.Caption)
		} else {
			styler.writeParagraph(fmt.Sprintf("Plot for %s not available.", pDef.Title), "normal", "L")
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build PDF: %w", err)
	}
	return pdf.Output(w)
}

// BuildPDFReport writes the report for one table to path.
func BuildPDFReport(path string, t *parser.Table, res *analysis.TableAnalysis, plotImages map[string][]byte) error {
	var buf bytes.Buffer
	if err := WritePDFReport(&buf, t, res, plotImages); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
