// Package canvas implements the drawing surface on top of gg: an opaque
// white raster with browser-canvas painting semantics, text rendered with
// the bundled Go fonts, and PNG data URL import and export.
package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"
)

// Canvas is a paintable raster. It is not safe for concurrent use; a
// session serializes access to its canvas.
type Canvas struct {
	img      *image.RGBA
	dc       *gg.Context
	faces    faceCache
	maxBytes int
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithMaxImageBytes bounds the decoded size of imported images. Zero or
// less leaves imports unbounded.
func WithMaxImageBytes(n int) Option {
	return func(c *Canvas) { c.maxBytes = n }
}

// New returns a blank w×h canvas.
func New(w, h int, fonts *Fonts, opts ...Option) *Canvas {
	c := &Canvas{faces: faceCache{fonts: fonts}}
	for _, opt := range opts {
		opt(c)
	}
	c.attach(image.NewRGBA(image.Rect(0, 0, w, h)))
	c.Clear()
	return c
}

func (c *Canvas) attach(img *image.RGBA) {
	c.img = img
	c.dc = gg.NewContextForRGBA(img)
	c.dc.SetColor(color.Black)
	c.dc.SetLineWidth(1)
}

// Clear paints the whole canvas white and drops the current path.
func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.White, image.Point{}, draw.Src)
	c.dc.ClearPath()
}

// Bounds returns the canvas rectangle, anchored at the origin.
func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

// RGBAAt returns the pixel at (x, y).
func (c *Canvas) RGBAAt(x, y int) color.RGBA { return c.img.RGBAAt(x, y) }

// Size returns the canvas dimensions in pixels.
func (c *Canvas) Size() (w, h int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image returns a copy of the current pixels.
func (c *Canvas) Image() *image.RGBA {
	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

// replace swaps in new pixels, composited over white. The canvas takes the
// size of img.
func (c *Canvas) replace(img image.Image) {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	c.attach(dst)
}

// Painter implementation. Paths persist across Fill and Stroke until the
// next BeginPath, matching the browser canvas.

func (c *Canvas) Save()    { c.dc.Push() }
func (c *Canvas) Restore() { c.dc.Pop() }

// SetStrokeColor sets the stroke color. Unparseable colors are ignored.
func (c *Canvas) SetStrokeColor(s string) {
	if col, ok := ParseColor(s); ok {
		c.dc.SetStrokeStyle(gg.NewSolidPattern(col))
	}
}

// SetFillColor sets the fill and text color. Unparseable colors are ignored.
func (c *Canvas) SetFillColor(s string) {
	if col, ok := ParseColor(s); ok {
		c.dc.SetFillStyle(gg.NewSolidPattern(col))
	}
}

// SetLineWidth sets the stroke width. Non-positive widths are ignored.
func (c *Canvas) SetLineWidth(w float64) {
	if w > 0 {
		c.dc.SetLineWidth(w)
	}
}

func (c *Canvas) SetRoundCaps() {
	c.dc.SetLineCapRound()
	c.dc.SetLineJoinRound()
}

func (c *Canvas) BeginPath()          { c.dc.ClearPath() }
func (c *Canvas) MoveTo(x, y float64) { c.dc.MoveTo(x, y) }
func (c *Canvas) LineTo(x, y float64) { c.dc.LineTo(x, y) }
func (c *Canvas) ClosePath()          { c.dc.ClosePath() }
func (c *Canvas) Fill()               { c.dc.FillPreserve() }
func (c *Canvas) Stroke()             { c.dc.StrokePreserve() }

func (c *Canvas) BezierCurveTo(c1x, c1y, c2x, c2y, x, y float64) {
	c.dc.CubicTo(c1x, c1y, c2x, c2y, x, y)
}

// Arc adds a circular arc, joined to the current point by a straight
// line when there is one.
func (c *Canvas) Arc(cx, cy, r, startAngle, endAngle float64) {
	c.dc.DrawArc(cx, cy, r, startAngle, endAngle)
}

// Rect adds a closed rectangle subpath.
func (c *Canvas) Rect(x, y, w, h float64) {
	c.dc.DrawRectangle(x, y, w, h)
}
