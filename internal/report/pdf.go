package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"

	"github.com/breast-dx-server/internal/domain"
)

const (
	pdfMargin     = 54.0
	pdfLineHeight = 12.0
	pdfCellPad    = 5.0
)

var (
	colorBlack     = Color{0, 0, 0}
	colorWhite     = Color{255, 255, 255}
	colorLightGrey = Color{211, 211, 211}
	colorDarkGrey  = Color{169, 169, 169}
)

// PDFRenderer draws documents with fpdf. When the style's TrueType family cannot
// be loaded from FontDir it falls back to the built-in Helvetica.
type PDFRenderer struct {
	logger *logrus.Logger
}

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer(logger *logrus.Logger) *PDFRenderer {
	return &PDFRenderer{logger: logger}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Extension() string { return "pdf" }

// Render lays the document out on pages of style.PageSize.
func (r *PDFRenderer) Render(doc *Document, style Style) (out []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = &domain.RenderError{Format: string(FormatPDF), Err: fmt.Errorf("layout panic: %v", p)}
		}
	}()

	w := r.newWriter(style)
	w.pdf.SetTitle(doc.Title, true)
	w.pdf.SetCreator("breast-dx-server", true)
	w.pdf.AddPage()

	w.title(doc.Title)
	for _, s := range doc.Sections {
		w.heading(s.Heading)
		for _, n := range s.Nodes {
			w.node(n)
		}
	}
	w.footer(doc.Footer)

	if w.pdf.Err() {
		return nil, &domain.RenderError{Format: string(FormatPDF), Err: w.pdf.Error()}
	}
	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, &domain.RenderError{Format: string(FormatPDF), Err: err}
	}
	return buf.Bytes(), nil
}

// newWriter builds the page with the configured font family, or with Helvetica
// when the family's files are missing or unreadable.
func (r *PDFRenderer) newWriter(style Style) *pdfWriter {
	if style.FontDir != "" && style.FontFamily != "" {
		fonts, err := loadFontFiles(style.FontDir, style.FontFamily)
		if err == nil {
			w := newPDFWriter(style, style.FontFamily, fonts)
			if !w.pdf.Err() {
				return w
			}
			err = w.pdf.Error()
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{
				"font_family": style.FontFamily,
				"font_dir":    style.FontDir,
				"error":       err.Error(),
			}).Warn("Report font unavailable, using Helvetica")
		}
	}
	return newPDFWriter(style, "Helvetica", nil)
}

// loadFontFiles reads <Family>.ttf, <family>b.ttf and the optional <family>i.ttf,
// e.g. Calibri.ttf, calibrib.ttf, calibrii.ttf.
func loadFontFiles(dir, family string) (map[string][]byte, error) {
	lower := strings.ToLower(family)
	files := map[string]string{
		"":  family + ".ttf",
		"B": lower + "b.ttf",
		"I": lower + "i.ttf",
	}
	fonts := make(map[string][]byte, len(files))
	for style, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if style == "I" {
				continue
			}
			return nil, err
		}
		fonts[style] = data
	}
	return fonts, nil
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	style  Style
	family string
	utf8   bool
	tr     func(string) string
	left   float64
	width  float64
	bottom float64
	pageH  float64
}

func newPDFWriter(style Style, family string, fonts map[string][]byte) *pdfWriter {
	pageSize := style.PageSize
	if pageSize == "" {
		pageSize = "A4"
	}
	pdf := fpdf.New("P", "pt", pageSize, "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)

	w := &pdfWriter{pdf: pdf, style: style, family: family, tr: func(s string) string { return s }}
	if fonts != nil {
		for s, data := range fonts {
			pdf.AddUTF8FontFromBytes(family, s, data)
		}
		w.utf8 = true
	} else {
		w.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pageW, pageH := pdf.GetPageSize()
	w.left = pdfMargin
	w.width = pageW - 2*pdfMargin
	w.bottom = pdfMargin
	w.pageH = pageH
	return w
}

func (w *pdfWriter) font(bold bool, size float64) {
	s := ""
	if bold {
		s = "B"
	}
	w.pdf.SetFont(w.family, s, size)
}

func (w *pdfWriter) textColor(c Color) { w.pdf.SetTextColor(c.R, c.G, c.B) }
func (w *pdfWriter) fillColor(c Color) { w.pdf.SetFillColor(c.R, c.G, c.B) }
func (w *pdfWriter) drawColor(c Color) { w.pdf.SetDrawColor(c.R, c.G, c.B) }

// text prepares a string for output in the current font encoding.
func (w *pdfWriter) text(s string) string {
	return w.tr(s)
}

// encodable replaces runes the core font metrics do not cover.
func (w *pdfWriter) encodable(s string) string {
	if w.utf8 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r > 0xff {
			return '?'
		}
		return r
	}, s)
}

// split wraps s to width using the current font.
func (w *pdfWriter) split(s string, width float64) []string {
	if s == "" {
		return []string{""}
	}
	lines := w.pdf.SplitText(w.encodable(s), width)
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func (w *pdfWriter) ensureSpace(h float64) {
	if w.pdf.GetY()+h > w.pageH-w.bottom {
		w.pdf.AddPage()
	}
}

func (w *pdfWriter) title(s string) {
	w.font(true, 18)
	w.textColor(w.style.Accent)
	w.pdf.CellFormat(w.width, 24, w.text(s), "", 1, "C", false, 0, "")
	w.pdf.Ln(6)
	w.fillColor(w.style.Primary)
	w.pdf.Rect(w.left, w.pdf.GetY(), w.width, 2, "F")
	w.pdf.Ln(14)
}

func (w *pdfWriter) heading(s string) {
	w.ensureSpace(48)
	w.pdf.Ln(6)
	w.font(true, 12)
	w.textColor(w.style.Accent)
	w.pdf.CellFormat(w.width, 16, w.text(s), "", 1, "L", false, 0, "")
	w.pdf.Ln(4)
}

func (w *pdfWriter) node(n Node) {
	switch n := n.(type) {
	case Paragraph:
		w.pdf.SetX(w.left)
		w.runs(n.Runs, 10)
		w.pdf.Ln(pdfLineHeight + 4)
	case Subheading:
		w.font(true, 11)
		w.textColor(w.style.Accent)
		w.pdf.CellFormat(w.width, 16, w.text(n.Text), "", 1, "L", false, 0, "")
		w.pdf.Ln(2)
	case BulletList:
		w.bullets(n.Items)
	case NumberedList:
		for i, item := range n.Items {
			w.pdf.SetX(w.left)
			w.font(false, 10)
			w.textColor(colorBlack)
			w.pdf.Write(pdfLineHeight, strconv.Itoa(i+1)+". ")
			w.runs(item, 10)
			w.pdf.Ln(pdfLineHeight + 4)
		}
		w.pdf.Ln(4)
	case Table:
		w.table(n)
	case Callout:
		w.callout(n)
	case Rule:
		w.pdf.Ln(4)
		w.drawColor(colorLightGrey)
		w.pdf.SetLineWidth(1)
		y := w.pdf.GetY()
		w.pdf.Line(w.left, y, w.left+w.width, y)
		w.pdf.Ln(6)
	}
}

// runs writes mixed bold and regular text that wraps at the current margins.
func (w *pdfWriter) runs(runs []Run, size float64) {
	w.textColor(colorBlack)
	for _, r := range runs {
		w.font(r.Bold, size)
		w.pdf.Write(pdfLineHeight, w.text(r.Text))
	}
}

func (w *pdfWriter) bullets(items []string) {
	w.font(false, 10)
	w.textColor(colorBlack)
	for _, item := range items {
		w.pdf.SetX(w.left + 10)
		w.pdf.CellFormat(10, pdfLineHeight, w.text("•"), "", 0, "L", false, 0, "")
		w.pdf.MultiCell(w.width-20, pdfLineHeight, w.text(item), "", "L", false)
		w.pdf.Ln(2)
	}
	w.pdf.Ln(6)
}

func (w *pdfWriter) columnWidths(weights []float64, n int) []float64 {
	if len(weights) != n {
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1
		}
	}
	var total float64
	for _, v := range weights {
		total += v
	}
	widths := make([]float64, n)
	for i, v := range weights {
		widths[i] = w.width * v / total
	}
	return widths
}

func (w *pdfWriter) table(t Table) {
	cols := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return
	}
	widths := w.columnWidths(t.Widths, cols)

	if len(t.Header) > 0 {
		header := make([]Cell, len(t.Header))
		for i, h := range t.Header {
			header[i] = BoldCell(h)
		}
		w.row(header, widths, w.style.Primary, colorWhite)
	}
	for i, row := range t.Rows {
		fill := w.style.Secondary
		if t.Striped && i%2 == 1 {
			fill = colorWhite
		}
		w.row(row, widths, fill, colorBlack)
	}
	w.pdf.Ln(10)
}

// row draws one table row. A cell is bold when its first run is.
func (w *pdfWriter) row(cells []Cell, widths []float64, fill, text Color) {
	lines := make([][]string, len(widths))
	bold := make([]bool, len(widths))
	maxLines := 1
	for i := range widths {
		var c Cell
		if i < len(cells) {
			c = cells[i]
		}
		bold[i] = len(c.Runs) > 0 && c.Runs[0].Bold
		w.font(bold[i], 9)
		lines[i] = w.split(c.Text(), widths[i]-2*pdfCellPad)
		if len(lines[i]) > maxLines {
			maxLines = len(lines[i])
		}
	}

	h := float64(maxLines)*pdfLineHeight + 2*pdfCellPad
	w.ensureSpace(h)

	x, y := w.left, w.pdf.GetY()
	w.pdf.SetLineWidth(0.5)
	for i, width := range widths {
		w.fillColor(fill)
		w.drawColor(colorLightGrey)
		w.pdf.Rect(x, y, width, h, "FD")
		w.font(bold[i], 9)
		w.textColor(text)
		for j, line := range lines[i] {
			w.pdf.SetXY(x+pdfCellPad, y+pdfCellPad+float64(j)*pdfLineHeight)
			w.pdf.CellFormat(width-2*pdfCellPad, pdfLineHeight, w.tr(line), "", 0, "L", false, 0, "")
		}
		x += width
	}
	w.pdf.SetXY(w.left, y+h)
}

func (w *pdfWriter) callout(c Callout) {
	border, bar := w.style.Primary, w.style.Primary
	if c.Tone == ToneElevated {
		border, bar = w.style.Elevated, w.style.Elevated
	}

	const pad = 15.0
	inner := w.width - 2*pad

	w.font(false, 10)
	bodyLines := 0
	for _, l := range c.Lines {
		bodyLines += len(w.split(runsText(l), inner))
	}
	titleH := 0.0
	if c.Title != "" {
		titleH = 22
	}
	h := titleH + float64(bodyLines)*pdfLineHeight + float64(len(c.Lines))*6 + 6
	w.ensureSpace(h)

	x, y := w.left, w.pdf.GetY()
	if titleH > 0 {
		w.fillColor(bar)
		w.pdf.Rect(x, y, w.width, titleH, "F")
		w.pdf.SetXY(x, y)
		w.font(true, 11)
		w.textColor(colorWhite)
		w.pdf.CellFormat(w.width, titleH, w.text(c.Title), "", 0, "C", false, 0, "")
	}
	w.fillColor(w.style.Secondary)
	w.pdf.Rect(x, y+titleH, w.width, h-titleH, "F")
	w.drawColor(border)
	w.pdf.SetLineWidth(1)
	w.pdf.Rect(x, y, w.width, h, "D")

	w.pdf.SetLeftMargin(x + pad)
	w.pdf.SetRightMargin(pdfMargin + pad)
	w.pdf.SetXY(x+pad, y+titleH+6)
	for _, l := range c.Lines {
		w.runs(l, 10)
		w.pdf.Ln(pdfLineHeight + 6)
	}
	w.pdf.SetLeftMargin(pdfMargin)
	w.pdf.SetRightMargin(pdfMargin)
	w.pdf.SetXY(w.left, y+h)
	w.pdf.Ln(8)
}

func (w *pdfWriter) footer(s string) {
	if s == "" {
		return
	}
	w.ensureSpace(24)
	w.font(false, 8)
	w.textColor(colorDarkGrey)
	w.pdf.MultiCell(w.width, 10, w.text(s), "", "C", false)
}
