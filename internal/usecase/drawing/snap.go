package drawing

import "math"

// Snap defaults.
const (
	defaultMinSamples   = 25
	defaultSearchRadius = 80
)

// SnapOptions tunes SnapToContent. Zero fields take defaults.
type SnapOptions struct {
	SearchRadius float64
	MinSamples   int
	MaxShift     float64
}

// Snap is an adjusted position for a shape.
type Snap struct {
	X       float64
	Y       float64
	Shifted float64 // distance from the target to the ink centroid
	Samples int
	Clamped bool // the move was limited to MaxShift
}

// SnapToContent looks for existing ink around (tx, ty) and proposes a new
// position pulled toward it. ok is false when too little ink was found to
// trust the centroid; the caller then keeps its original position.
func SnapToContent(img Raster, tx, ty, radius float64, opts SnapOptions) (Snap, bool) {
	search := opts.SearchRadius
	if search == 0 {
		search = defaultSearchRadius
		if radius != 0 {
			search = radius*1.5 + 20
		}
	}

	c, ok := WeightedContentCenter(img, tx, ty, search)
	if !ok {
		return Snap{}, false
	}

	minSamples := opts.MinSamples
	if minSamples == 0 {
		minSamples = defaultMinSamples
	}
	if c.Samples < minSamples {
		return Snap{}, false
	}

	dx, dy := c.X-tx, c.Y-ty
	dist := math.Hypot(dx, dy)
	maxShift := opts.MaxShift
	if maxShift == 0 {
		maxShift = math.Max(40, search*0.75)
	}

	if dist > maxShift {
		ratio := maxShift / dist
		return Snap{
			X:       tx + dx*ratio,
			Y:       ty + dy*ratio,
			Shifted: dist,
			Samples: c.Samples,
			Clamped: true,
		}, true
	}
	return Snap{X: c.X, Y: c.Y, Shifted: dist, Samples: c.Samples}, true
}
