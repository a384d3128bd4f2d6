package canvas

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

type fontFamily int

const (
	familyRegular fontFamily = iota
	familyBold
	familyItalic
	familyMono
)

// familyFor maps a CSS font family onto one of the bundled Go fonts.
func familyFor(name string) fontFamily {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "mono"), strings.Contains(n, "courier"), strings.Contains(n, "consolas"):
		return familyMono
	case strings.Contains(n, "bold"):
		return familyBold
	case strings.Contains(n, "italic"), strings.Contains(n, "cursive"):
		return familyItalic
	default:
		return familyRegular
	}
}

type faceKey struct {
	family fontFamily
	size   float64
}

// Fonts holds the bundled fonts, parsed once. Parsed fonts are read-only
// and shared by every canvas; faces are not, since each keeps a glyph
// cache, so canvases create and cache their own.
type Fonts struct {
	once  sync.Once
	err   error
	fonts map[fontFamily]*truetype.Font
}

// NewFonts creates the font set. Fonts are parsed on first use.
func NewFonts() *Fonts {
	return &Fonts{}
}

func (f *Fonts) load() {
	sources := map[fontFamily][]byte{
		familyRegular: goregular.TTF,
		familyBold:    gobold.TTF,
		familyItalic:  goitalic.TTF,
		familyMono:    gomono.TTF,
	}
	f.fonts = make(map[fontFamily]*truetype.Font, len(sources))
	for fam, data := range sources {
		parsed, err := truetype.Parse(data)
		if err != nil {
			f.err = fmt.Errorf("parse bundled font: %w", err)
			return
		}
		f.fonts[fam] = parsed
	}
}

func (f *Fonts) newFace(key faceKey) (font.Face, error) {
	f.once.Do(f.load)
	if f.err != nil {
		return nil, f.err
	}
	return truetype.NewFace(f.fonts[key.family], &truetype.Options{
		Size:    key.size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// faceCache is a per-canvas set of faces keyed by family and size.
type faceCache struct {
	fonts *Fonts
	faces map[faceKey]font.Face
}

// face returns a face for the CSS family name at size pixels. Sizes are
// rounded to half pixels to bound the cache.
func (c *faceCache) face(family string, size float64) (font.Face, error) {
	key := faceKey{family: familyFor(family), size: math.Round(size*2) / 2}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	f, err := c.fonts.newFace(key)
	if err != nil {
		return nil, err
	}
	if c.faces == nil {
		c.faces = make(map[faceKey]font.Face)
	}
	c.faces[key] = f
	return f, nil
}
