package drawing

import (
	"image/color"
	"math"

	"workwithme/internal/domain"
)

// colorBucket is the channel width used to group similar colors.
const colorBucket = 50

// IsDrawnPixel reports whether c counts as ink for coverage: any channel
// below 250 on a visible pixel.
func IsDrawnPixel(c color.RGBA) bool {
	if c.A < 10 {
		return false
	}
	return c.R < 250 || c.G < 250 || c.B < 250
}

// Stats measures how much of img is drawn on and how many distinct color
// buckets the ink uses. Coverage is a percentage rounded to two decimals.
func Stats(img Raster) domain.CanvasStats {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return domain.CanvasStats{}
	}

	drawn := 0
	buckets := make(map[[3]uint8]struct{})
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if !IsDrawnPixel(c) {
				continue
			}
			drawn++
			buckets[[3]uint8{c.R / colorBucket, c.G / colorBucket, c.B / colorBucket}] = struct{}{}
		}
	}

	coverage := float64(drawn) / float64(total) * 100
	return domain.CanvasStats{
		CoveragePercent: math.Round(coverage*100) / 100,
		ColorCount:      len(buckets),
		DrawnPixels:     drawn,
	}
}
