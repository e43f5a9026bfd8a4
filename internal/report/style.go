package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/breast-dx-server/internal/domain"
)

// Color is an RGB triple.
type Color struct {
	R, G, B int
}

// ParseHexColor parses "#RRGGBB" (the hash is optional).
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: int(n >> 16 & 0xff), G: int(n >> 8 & 0xff), B: int(n & 0xff)}, nil
}

// Style carries the visual parameters handed to a renderer.
type Style struct {
	FontDir    string
	FontFamily string
	PageSize   string

	Primary   Color
	Secondary Color
	Accent    Color
	Highlight Color
	Elevated  Color
}

// DefaultStyle is the pastel teal theme on A4.
func DefaultStyle() Style {
	return Style{
		FontFamily: "Calibri",
		PageSize:   "A4",
		Primary:    Color{0x83, 0xC5, 0xBE},
		Secondary:  Color{0xED, 0xF6, 0xF9},
		Accent:     Color{0x00, 0x6D, 0x77},
		Highlight:  Color{0xFF, 0xDD, 0xD2},
		Elevated:   Color{0xE7, 0x6F, 0x51},
	}
}

// StyleFromConfig overlays configured values on DefaultStyle. Unparseable colours
// keep their defaults.
func StyleFromConfig(cfg domain.ReportConfig) Style {
	s := DefaultStyle()
	s.FontDir = cfg.FontDir
	if cfg.FontFamily != "" {
		s.FontFamily = cfg.FontFamily
	}
	if cfg.PageSize != "" {
		s.PageSize = cfg.PageSize
	}
	overlay := func(dst *Color, hex string) {
		if hex == "" {
			return
		}
		if c, err := ParseHexColor(hex); err == nil {
			*dst = c
		}
	}
	overlay(&s.Primary, cfg.PrimaryColor)
	overlay(&s.Secondary, cfg.SecondaryColor)
	overlay(&s.Accent, cfg.AccentColor)
	overlay(&s.Elevated, cfg.ElevatedColor)
	return s
}
