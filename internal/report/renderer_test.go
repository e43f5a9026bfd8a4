package report

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breast-dx-server/internal/domain"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatPDF, false},
		{"PDF", FormatPDF, false},
		{"markdown", FormatMarkdown, false},
		{" md ", FormatMarkdown, false},
		{"docx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer(FormatPDF, logrus.New())
	require.NoError(t, err)
	assert.IsType(t, &PDFRenderer{}, r)

	r, err = NewRenderer(FormatMarkdown, logrus.New())
	require.NoError(t, err)
	assert.IsType(t, &MarkdownRenderer{}, r)

	_, err = NewRenderer("docx", logrus.New())
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	r := NewMarkdownRenderer()
	assert.Equal(t, "breast_cancer_report_Jane Doe.md", Filename(&Document{PatientName: "Jane Doe"}, r))
	assert.Equal(t, "breast_cancer_report_.._etc_passwd.md", Filename(&Document{PatientName: "../etc/passwd"}, r))
	assert.Equal(t, "breast_cancer_report_patient.md", Filename(&Document{}, r))
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#E76F51")
	require.NoError(t, err)
	assert.Equal(t, Color{0xE7, 0x6F, 0x51}, c)

	c, err = ParseHexColor("006d77")
	require.NoError(t, err)
	assert.Equal(t, Color{0x00, 0x6D, 0x77}, c)

	_, err = ParseHexColor("#FFF")
	assert.Error(t, err)
	_, err = ParseHexColor("#GGGGGG")
	assert.Error(t, err)
}

func TestStyleFromConfig(t *testing.T) {
	s := StyleFromConfig(domain.ReportConfig{
		FontDir:       "/fonts",
		PageSize:      "Letter",
		AccentColor:   "#112233",
		ElevatedColor: "nonsense",
	})

	assert.Equal(t, "/fonts", s.FontDir)
	assert.Equal(t, "Calibri", s.FontFamily)
	assert.Equal(t, "Letter", s.PageSize)
	assert.Equal(t, Color{0x11, 0x22, 0x33}, s.Accent)
	assert.Equal(t, DefaultStyle().Elevated, s.Elevated)
	assert.Equal(t, DefaultStyle().Primary, s.Primary)
}
