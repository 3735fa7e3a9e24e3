package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBAColor represents an RGBA color with 8-bit components including alpha.
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"` // 0 = fully transparent, 255 = fully opaque
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a sampled colour and an annotation colour that reads
// well on top of it.
type ColorResult struct {
	Hex  string    `json:"hex"` // "#rrggbb", alpha excluded
	RGBA RGBAColor `json:"rgba"`
	HSL  HSLColor  `json:"hsl"`

	// Contrast is the palette entry furthest from the sample in CIE Lab
	// space.
	Contrast string `json:"contrast"`
}

// AnnotationPalette is the set of colours offered to authors, in the order
// the editor uses them for new annotations.
var AnnotationPalette = []string{"#3b82f6", "#22c55e", "#8b5cf6", "#ef4444", "#f59e0b", "#0f172a", "#ffffff"}

// SampleColor returns the colour of the pixel containing the logical point
// (x, y) of a background fitted to its logical size.
//
// # Errors
//
// Returns an error if the point is outside the image bounds.
func SampleColor(img image.Image, x, y float64) (*ColorResult, error) {
	b := img.Bounds()
	px, py := b.Min.X+int(math.Floor(x)), b.Min.Y+int(math.Floor(y))
	if math.IsNaN(x) || math.IsNaN(y) || px < b.Min.X || px >= b.Max.X || py < b.Min.Y || py >= b.Max.Y {
		return nil, fmt.Errorf("coordinates (%v,%v) outside image bounds", x, y)
	}

	native := img.At(px, py)
	_, _, _, a := native.RGBA()
	// MakeColor rejects fully transparent pixels; they sample as black.
	c, _ := colorful.MakeColor(native)

	r8, g8, b8 := c.Clamped().RGB255()
	h, s, l := c.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	return &ColorResult{
		Hex:      c.Clamped().Hex(),
		RGBA:     RGBAColor{R: r8, G: g8, B: b8, A: uint8(a >> 8)},
		HSL:      HSLColor{H: int(h), S: int(math.Round(s * 100)), L: int(math.Round(l * 100))},
		Contrast: ContrastColor(c, AnnotationPalette),
	}, nil
}

// ContrastColor returns the palette entry with the largest CIEDE2000
// distance from c. Entries that do not parse are skipped; an empty palette
// gives the empty string.
func ContrastColor(c colorful.Color, palette []string) string {
	best, bestDist := "", -1.0
	for _, hex := range palette {
		p, err := colorful.Hex(strings.ToLower(hex))
		if err != nil {
			continue
		}
		if d := c.DistanceCIEDE2000(p); d > bestDist {
			best, bestDist = hex, d
		}
	}
	return best
}

// ParseHexColor parses "#rrggbb", "#rgb" or "#rrggbbaa". The leading '#'
// is optional.
func ParseHexColor(s string) (colorful.Color, uint8, error) {
	hex := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "#")
	alpha := uint8(255)
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	case 8:
		if _, err := fmt.Sscanf(hex[6:], "%02x", &alpha); err != nil {
			return colorful.Color{}, 0, fmt.Errorf("invalid alpha in %q: %w", s, err)
		}
		hex = hex[:6]
	default:
		return colorful.Color{}, 0, fmt.Errorf("invalid hex color length %q", s)
	}
	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return colorful.Color{}, 0, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return c, alpha, nil
}
