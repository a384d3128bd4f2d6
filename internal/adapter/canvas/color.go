package canvas

import (
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

var rgbFuncRe = regexp.MustCompile(`^rgba?\(\s*([^,\s]+)\s*,\s*([^,\s]+)\s*,\s*([^,\s)]+)\s*(?:,\s*([^)\s]+)\s*)?\)$`)

// ParseColor reads a CSS color: #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(),
// rgba(), a named color or "transparent". ok is false for anything else;
// callers keep their previous color, as a browser canvas does.
func ParseColor(s string) (color.NRGBA, bool) {
	css := strings.ToLower(strings.TrimSpace(s))
	switch {
	case css == "":
		return color.NRGBA{}, false
	case css == "transparent":
		return color.NRGBA{}, true
	case strings.HasPrefix(css, "#"):
		return parseHex(css[1:])
	case strings.HasPrefix(css, "rgb"):
		return parseRGBFunc(css)
	}
	if c, ok := colornames.Map[css]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, true
	}
	return color.NRGBA{}, false
}

func parseHex(h string) (color.NRGBA, bool) {
	switch len(h) {
	case 3, 4:
		var expanded strings.Builder
		for _, r := range h {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		return parseHex(expanded.String())
	case 6, 8:
	default:
		return color.NRGBA{}, false
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	if len(h) == 6 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

func parseRGBFunc(css string) (color.NRGBA, bool) {
	m := rgbFuncRe.FindStringSubmatch(css)
	if m == nil {
		return color.NRGBA{}, false
	}
	var ch [3]uint8
	for i := range 3 {
		v, ok := channel(m[i+1])
		if !ok {
			return color.NRGBA{}, false
		}
		ch[i] = v
	}
	alpha := uint8(0xff)
	if m[4] != "" {
		a, err := strconv.ParseFloat(strings.TrimSuffix(m[4], "%"), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		if strings.HasSuffix(m[4], "%") {
			a /= 100
		}
		alpha = uint8(math.Round(clamp01(a) * 255))
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: alpha}, true
}

func channel(s string) (uint8, bool) {
	pct := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, false
	}
	if pct {
		v = v / 100 * 255
	}
	return uint8(math.Round(math.Min(255, math.Max(0, v)))), true
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
