package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

var (
	// ErrUnavailable means no OCR engine is compiled in or installed.
	ErrUnavailable = errors.New("ocr unavailable")

	// ErrEmptyArea means the requested area does not overlap the image.
	ErrEmptyArea = errors.New("area outside image")
)

// Labeler defaults.
const (
	DefaultLanguage = "eng"
	DefaultPadding  = 4.0
	DefaultScale    = 2.0
)

// Engine runs recognition on an encoded PNG.
type Engine interface {
	Text(ctx context.Context, png []byte, language string) (string, error)
}

// Labeler recognizes the caption inside an area of a diagram background.
// Zero fields take the package defaults.
type Labeler struct {
	Language string
	Padding  float64
	Scale    float64

	Engine Engine
}

// NewLabeler returns a Labeler backed by Tesseract. tessdataPrefix may be
// empty to use the system location.
func NewLabeler(language, tessdataPrefix string) *Labeler {
	return &Labeler{
		Language: language,
		Engine:   &Tesseract{TessdataPrefix: tessdataPrefix},
	}
}

// Recognize returns the first non-empty line of text found in area, which
// is in the pixel coordinates of img. An area without text gives the empty
// string and no error.
func (l *Labeler) Recognize(ctx context.Context, img image.Image, area geometry.Rect) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if l.Engine == nil {
		return "", ErrUnavailable
	}
	lang := l.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	prepared, err := l.prepare(img, area)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prepared, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode crop: %w", err)
	}

	text, err := l.Engine.Text(ctx, buf.Bytes(), lang)
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return firstLine(text), nil
}

// prepare crops the padded area out of img, upscales it and converts it to
// grayscale.
func (l *Labeler) prepare(img image.Image, area geometry.Rect) (image.Image, error) {
	pad := l.Padding
	if pad <= 0 {
		pad = DefaultPadding
	}
	scale := l.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	crop, ok := clampRect(area.Inset(pad), img.Bounds())
	if !ok {
		return nil, fmt.Errorf("%w: %+v", ErrEmptyArea, area)
	}
	out := imaging.Crop(img, crop)
	if scale != 1 {
		out = imaging.Resize(out, int(math.Round(float64(crop.Dx())*scale)), 0, imaging.Lanczos)
	}
	return imaging.Grayscale(out), nil
}

// clampRect converts r to whole pixels, rounding outward, and intersects it
// with bounds.
func clampRect(r geometry.Rect, bounds image.Rectangle) (image.Rectangle, bool) {
	if math.IsNaN(r.Min.X) || math.IsNaN(r.Min.Y) || math.IsNaN(r.Max.X) || math.IsNaN(r.Max.Y) {
		return image.Rectangle{}, false
	}
	px := image.Rect(
		bounds.Min.X+int(math.Floor(r.Min.X)),
		bounds.Min.Y+int(math.Floor(r.Min.Y)),
		bounds.Min.X+int(math.Ceil(r.Max.X)),
		bounds.Min.Y+int(math.Ceil(r.Max.Y)),
	).Intersect(bounds)
	return px, !px.Empty()
}

// firstLine returns the first line of s with visible text, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
