package drawing

import (
	"image"
	"image/color"
	"math"
)

// Raster is read access to canvas pixels. *image.RGBA satisfies it.
type Raster interface {
	Bounds() image.Rectangle
	RGBAAt(x, y int) color.RGBA
}

// IsBackgroundPixel reports whether c counts as empty canvas: nearly
// transparent, or near-white.
func IsBackgroundPixel(c color.RGBA) bool {
	if c.A < 10 {
		return true
	}
	return c.R > 245 && c.G > 245 && c.B > 245
}

// Centroid is the inverse-distance weighted center of ink near a target.
type Centroid struct {
	X       float64
	Y       float64
	Weight  float64
	Samples int
}

// samplesPerRadius bounds how many grid steps a search takes across its radius.
const samplesPerRadius = 24

// WeightedContentCenter scans a disc around (tx, ty) on a strided grid and
// returns the weighted centroid of non-background pixels. ok is false when
// no ink was found.
func WeightedContentCenter(img Raster, tx, ty, radius float64) (c Centroid, ok bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	search := math.Min(math.Max(radius, 30), float64(max(w, h)))
	r := jsRound(search)
	step := max(1, int(math.Floor(search/samplesPerRadius)))

	var total, sumX, sumY float64
	for dy := -r; dy <= r; dy += step {
		y := jsRound(ty + float64(dy))
		if y < 0 || y >= h {
			continue
		}
		for dx := -r; dx <= r; dx += step {
			d2 := dx*dx + dy*dy
			if d2 > r*r {
				continue
			}
			x := jsRound(tx + float64(dx))
			if x < 0 || x >= w {
				continue
			}
			if IsBackgroundPixel(img.RGBAAt(b.Min.X+x, b.Min.Y+y)) {
				continue
			}

			c.Samples++
			weight := 1 / (1 + math.Sqrt(float64(d2)))
			total += weight
			sumX += float64(x) * weight
			sumY += float64(y) * weight
		}
	}

	if total == 0 {
		return Centroid{}, false
	}
	c.X = sumX / total
	c.Y = sumY / total
	c.Weight = total
	return c, true
}
