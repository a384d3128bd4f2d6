package canvas

import (
	"strings"

	"workwithme/internal/usecase/drawing"
)

// FillText draws text anchored at (x, y) in the fill color. Text is
// skipped when no face can be built.
func (c *Canvas) FillText(text string, x, y float64, style drawing.TextStyle) {
	if text == "" || style.Size <= 0 {
		return
	}
	face, err := c.faces.face(style.Font, style.Size)
	if err != nil {
		return
	}
	c.dc.SetFontFace(face)
	c.dc.DrawStringAnchored(text, x, y, alignAnchor(style.Align), baselineAnchor(style.Baseline))
}

// alignAnchor maps a canvas textAlign to gg's horizontal anchor.
func alignAnchor(align string) float64 {
	switch strings.ToLower(align) {
	case "center":
		return 0.5
	case "right", "end":
		return 1
	default:
		return 0
	}
}

// baselineAnchor maps a canvas textBaseline to gg's vertical anchor, where
// 0 puts the alphabetic baseline on y and 1 hangs the text below it.
func baselineAnchor(baseline string) float64 {
	switch strings.ToLower(baseline) {
	case "top", "hanging":
		return 1
	case "middle":
		return 0.5
	default:
		return 0
	}
}
