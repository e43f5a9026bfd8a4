package report

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format names an output encoding.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts "pdf", "markdown" and "md". Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// Renderer turns a document into bytes. Failures are *domain.RenderError.
type Renderer interface {
	Render(doc *Document, style Style) ([]byte, error)
	ContentType() string
	Extension() string
}

// NewRenderer returns the renderer for a format.
func NewRenderer(format Format, logger *logrus.Logger) (Renderer, error) {
	switch format {
	case FormatPDF:
		return NewPDFRenderer(logger), nil
	case FormatMarkdown:
		return NewMarkdownRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// Filename is the download name for a rendered document,
// e.g. "breast_cancer_report_Jane Doe.pdf".
func Filename(doc *Document, r Renderer) string {
	return "breast_cancer_report_" + safeName(doc.PatientName) + "." + r.Extension()
}

func safeName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == ' ', c == '-', c == '_', c == '.':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "patient"
	}
	return b.String()
}
