// Package drawing turns structured drawing plans into bounded paint
// operations on a canvas, aligning new shapes with existing artwork.
package drawing

import (
	"math"

	"workwithme/internal/domain"
)

// nominalGrid is the canvas size models often assume when they emit
// coordinates without knowing the real surface.
const nominalGrid = 400

// Axis selects which canvas dimension bounds a coordinate.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// Resolver maps loosely specified coordinates and lengths onto a canvas of
// a fixed size.
type Resolver struct {
	Width  float64
	Height float64
}

// NewResolver returns a resolver for a w×h surface.
func NewResolver(w, h int) Resolver {
	return Resolver{Width: float64(w), Height: float64(h)}
}

func (r Resolver) size(axis Axis) float64 {
	if axis == AxisY {
		return r.Height
	}
	return r.Width
}

// Coordinate resolves v to a pixel position along axis. Ambiguous values
// are decided by a fixed priority: in-bounds absolute, offset from the
// midpoint, a 400-unit nominal grid, then clamping.
func (r Resolver) Coordinate(v domain.Value, axis Axis, relative bool) float64 {
	size := r.size(axis)
	center := size / 2

	if p, ok := v.Percent(); ok {
		return clamp(p/100*size, 0, size)
	}

	n := v.Float()
	if !finite(n) {
		return center
	}
	if relative {
		return center + n
	}

	switch {
	case n >= 0 && n <= size:
		return n
	case n >= -center && n <= center:
		return center + n
	case n >= 0 && n <= nominalGrid:
		return n / nominalGrid * size
	case n < 0:
		return math.Max(0, center+n)
	default:
		return clamp(n, 0, size)
	}
}

// Length resolves v to a non-negative length no larger than axisSize.
// Non-finite input defaults to a tenth of the axis.
func (r Resolver) Length(v domain.Value, axisSize float64) float64 {
	if p, ok := v.Percent(); ok {
		return clamp(p/100*axisSize, 0, axisSize)
	}

	n := v.Float()
	if !finite(n) {
		return axisSize * 0.1
	}

	n = math.Abs(n)
	switch {
	case n <= axisSize:
		return n
	case n <= nominalGrid:
		return n / nominalGrid * axisSize
	default:
		return math.Min(axisSize, n)
	}
}

// ClampPoint keeps (x, y) inside the canvas.
func (r Resolver) ClampPoint(x, y float64) (float64, float64) {
	return clamp(x, 0, r.Width), clamp(y, 0, r.Height)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// jsRound rounds half toward positive infinity, matching how browser
// canvases index pixels.
func jsRound(f float64) int {
	return int(math.Floor(f + 0.5))
}
