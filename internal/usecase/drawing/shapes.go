package drawing

import (
	"math"
	"strings"
)

// Canned shapes drawn without a language model.
const (
	ShapeStar     = "star"
	ShapeCircle   = "circle"
	ShapeSquare   = "square"
	ShapeHeart    = "heart"
	ShapeTriangle = "triangle"
	ShapeFlower   = "flower"
	ShapeSmiley   = "smiley"
)

// RandomShapes are the candidates when a request names no known shape.
var RandomShapes = []string{ShapeStar, ShapeCircle, ShapeHeart, ShapeFlower, ShapeSmiley}

// Fixed palette of the canned shapes.
const (
	paletteGold = "#FFD700"
	palettePink = "#FF6B9D"
	paletteRose = "#FF69B4"
	paletteDark = "#333"
)

type shapeMatch struct {
	keywords []string
	shape    string
	reply    string
}

// shapeMatches is checked in order; the first match wins.
var shapeMatches = []shapeMatch{
	{[]string{"star"}, ShapeStar, "I drew a star! ⭐ Now it's your turn. Try adding to it or create something new!"},
	{[]string{"circle", "round"}, ShapeCircle, "Here's a circle! Try adding details to it or draw around it! 🔵"},
	{[]string{"square", "box"}, ShapeSquare, "I drew a square! Maybe turn it into a house or robot? 🏠"},
	{[]string{"heart"}, ShapeHeart, "Here's a heart for you! ❤️ Feel free to decorate it!"},
	{[]string{"triangle"}, ShapeTriangle, "Triangle drawn! 🔺 Great for geometry or creative designs!"},
	{[]string{"flower"}, ShapeFlower, "A flower for you! 🌸 Try adding a stem and leaves!"},
	{[]string{"smiley", "face"}, ShapeSmiley, "Here's a smiley face! 😊 Spread some joy!"},
}

// ShapeForMessage picks the canned shape a chat message asks for and the
// reply to post after drawing it. ok is false when no shape is named.
func ShapeForMessage(msg string) (shape, reply string, ok bool) {
	lower := strings.ToLower(msg)
	for _, m := range shapeMatches {
		for _, kw := range m.keywords {
			if strings.Contains(lower, kw) {
				return m.shape, m.reply, true
			}
		}
	}
	return "", "", false
}

// ShapesInResponse lists the shapes an assistant reply explicitly offers
// to draw ("draw a star", "draw heart"), in a fixed order without repeats.
func ShapesInResponse(response string) []string {
	lower := strings.ToLower(response)
	var shapes []string
	for _, shape := range []string{ShapeStar, ShapeCircle, ShapeHeart, ShapeSquare, ShapeTriangle, ShapeFlower, ShapeSmiley} {
		if strings.Contains(lower, "draw a "+shape) || strings.Contains(lower, "draw "+shape) {
			shapes = append(shapes, shape)
		}
	}
	return shapes
}

// DrawShape paints a canned shape centered on (cx, cy). currentColor is
// the user's brush color, used by the plain geometric shapes. It reports
// false for an unknown shape.
func DrawShape(p Painter, shape string, cx, cy float64, currentColor string) bool {
	p.Save()
	defer p.Restore()

	switch shape {
	case ShapeStar:
		drawStar(p, cx, cy, 5, 50, 25, paletteGold)
	case ShapeCircle:
		p.SetStrokeColor(currentColor)
		p.SetFillColor(translucent(currentColor))
		p.SetLineWidth(3)
		p.BeginPath()
		p.Arc(cx, cy, 60, 0, 2*math.Pi)
		p.Stroke()
		p.Fill()
	case ShapeSquare:
		p.SetStrokeColor(currentColor)
		p.SetFillColor(translucent(currentColor))
		p.SetLineWidth(3)
		p.BeginPath()
		p.Rect(cx-50, cy-50, 100, 100)
		p.Stroke()
		p.Fill()
	case ShapeHeart:
		drawHeart(p, cx, cy, 60, palettePink)
	case ShapeTriangle:
		const size = 80
		top := cy - 40
		p.SetStrokeColor(currentColor)
		p.SetFillColor(translucent(currentColor))
		p.SetLineWidth(3)
		p.BeginPath()
		p.MoveTo(cx, top)
		p.LineTo(cx-size/2, top+size)
		p.LineTo(cx+size/2, top+size)
		p.ClosePath()
		p.Stroke()
		p.Fill()
	case ShapeFlower:
		drawFlower(p, cx, cy, 40, paletteRose, paletteGold)
	case ShapeSmiley:
		drawSmiley(p, cx, cy, 50, paletteGold)
	default:
		return false
	}
	return true
}

// translucent appends a 25% alpha channel to a #rrggbb color.
func translucent(c string) string {
	if len(c) == 7 && strings.HasPrefix(c, "#") {
		return c + "40"
	}
	return c
}

func drawStar(p Painter, cx, cy float64, spikes int, outer, inner float64, color string) {
	p.SetFillColor(color)
	p.SetStrokeColor(color)
	p.SetLineWidth(2)

	p.BeginPath()
	rot := math.Pi / 2 * 3
	step := math.Pi / float64(spikes)
	p.MoveTo(cx, cy-outer)
	for range spikes {
		p.LineTo(cx+math.Cos(rot)*outer, cy+math.Sin(rot)*outer)
		rot += step
		p.LineTo(cx+math.Cos(rot)*inner, cy+math.Sin(rot)*inner)
		rot += step
	}
	p.LineTo(cx, cy-outer)
	p.ClosePath()
	p.Stroke()
	p.Fill()
}

func drawHeart(p Painter, cx, cy, size float64, color string) {
	p.SetFillColor(color)
	p.SetStrokeColor(color)
	p.SetLineWidth(2)

	top := size * 0.3
	half := size / 2
	p.BeginPath()
	p.MoveTo(cx, cy+top)
	p.BezierCurveTo(cx, cy, cx-half, cy, cx-half, cy+top)
	p.BezierCurveTo(cx-half, cy+(size+top)/2, cx, cy+(size+top)/1.2, cx, cy+size)
	p.BezierCurveTo(cx, cy+(size+top)/1.2, cx+half, cy+(size+top)/2, cx+half, cy+top)
	p.BezierCurveTo(cx+half, cy, cx, cy, cx, cy+top)
	p.ClosePath()
	p.Fill()
	p.Stroke()
}

func drawFlower(p Painter, cx, cy, petal float64, petalColor, centerColor string) {
	p.SetFillColor(petalColor)
	for i := range 6 {
		angle := math.Pi * 2 * float64(i) / 6
		p.BeginPath()
		p.Arc(cx+math.Cos(angle)*petal*0.8, cy+math.Sin(angle)*petal*0.8, petal/2, 0, 2*math.Pi)
		p.Fill()
	}

	p.SetFillColor(centerColor)
	p.BeginPath()
	p.Arc(cx, cy, petal/2.5, 0, 2*math.Pi)
	p.Fill()
}

func drawSmiley(p Painter, cx, cy, r float64, color string) {
	p.SetFillColor(color)
	p.SetStrokeColor(paletteDark)
	p.SetLineWidth(2)
	p.BeginPath()
	p.Arc(cx, cy, r, 0, 2*math.Pi)
	p.Fill()
	p.Stroke()

	p.SetFillColor(paletteDark)
	p.BeginPath()
	p.Arc(cx-r/3, cy-r/4, r/8, 0, 2*math.Pi)
	p.Fill()
	p.BeginPath()
	p.Arc(cx+r/3, cy-r/4, r/8, 0, 2*math.Pi)
	p.Fill()

	p.SetLineWidth(3)
	p.BeginPath()
	p.Arc(cx, cy, r/2, 0, math.Pi)
	p.Stroke()
}

// MathExampleReply follows the worked equation drawn by DrawMathExample.
const MathExampleReply = "See how I solved it step by step? Draw your own equation and I'll help you solve it!"

// DrawMathExample writes a solved linear equation near the top-left corner
// and ticks it.
func DrawMathExample(p Painter) {
	const x, y = 100, 100

	p.Save()
	defer p.Restore()

	heading := TextStyle{Size: 24, Font: defaultFont, Align: "left", Baseline: "alphabetic"}
	step := TextStyle{Size: 18, Font: defaultFont, Align: "left", Baseline: "alphabetic"}

	p.SetFillColor("#667eea")
	p.FillText("Example: 2x + 5 = 15", x, y, heading)

	p.SetFillColor(paletteDark)
	p.FillText("Step 1: 2x = 15 - 5", x+20, y+40, step)
	p.FillText("Step 2: 2x = 10", x+20, y+70, step)
	p.FillText("Step 3: x = 5", x+20, y+100, step)

	p.SetStrokeColor("#00FF00")
	p.SetLineWidth(3)
	p.BeginPath()
	p.MoveTo(x+200, y+90)
	p.LineTo(x+210, y+100)
	p.LineTo(x+230, y+70)
	p.Stroke()
}
