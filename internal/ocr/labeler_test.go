package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// drawText draws text on an image using basicfont
func drawText(img *image.RGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// diagramWithCaption returns a white 400x200 image with text drawn in black
// with its baseline at (x, y).
func diagramWithCaption(text string, x, y int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	drawText(img, x, y, text, color.Black)
	return img
}

func rect(x0, y0, x1, y1 float64) geometry.Rect {
	return geometry.Rect{Min: r2.Vec{X: x0, Y: y0}, Max: r2.Vec{X: x1, Y: y1}}
}

type fakeEngine struct {
	text string
	err  error

	lang string
	img  image.Image
}

func (f *fakeEngine) Text(_ context.Context, data []byte, language string) (string, error) {
	f.lang = language
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	f.img = img
	return f.text, f.err
}

func TestRecognize_PreparesCrop(t *testing.T) {
	eng := &fakeEngine{text: "\n  \nAorta\nvalve\n"}
	l := &Labeler{Engine: eng}

	got, err := l.Recognize(context.Background(), diagramWithCaption("Aorta", 50, 50), rect(40, 30, 100, 60))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if got != "Aorta" {
		t.Errorf("text: got %q, want %q", got, "Aorta")
	}
	if eng.lang != DefaultLanguage {
		t.Errorf("language: got %q", eng.lang)
	}

	// 60x30 area + 4px padding on each side, doubled.
	if b := eng.img.Bounds(); b.Dx() != 136 || b.Dy() != 76 {
		t.Errorf("prepared size: got %dx%d, want 136x76", b.Dx(), b.Dy())
	}
}

func TestRecognize_Errors(t *testing.T) {
	img := diagramWithCaption("x", 10, 20)
	ctx := context.Background()

	tests := []struct {
		name    string
		labeler *Labeler
		area    geometry.Rect
		want    error
	}{
		{"no engine", &Labeler{}, rect(0, 0, 10, 10), ErrUnavailable},
		{"outside", &Labeler{Engine: &fakeEngine{}}, rect(1000, 1000, 1100, 1100), ErrEmptyArea},
		{"engine failure", &Labeler{Engine: &fakeEngine{err: ErrUnavailable}}, rect(0, 0, 10, 10), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.labeler.Recognize(ctx, img, tt.area); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := (&Labeler{Engine: &fakeEngine{}}).Recognize(cancelled, img, rect(0, 0, 10, 10)); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: got %v", err)
	}
}

func TestClampRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)
	tests := []struct {
		name   string
		in     geometry.Rect
		want   image.Rectangle
		wantOK bool
	}{
		{"inside", rect(10.2, 5.7, 20.1, 15), image.Rect(10, 5, 21, 15), true},
		{"clamped", rect(-10, -10, 200, 200), bounds, true},
		{"outside", rect(150, 0, 160, 10), image.Rectangle{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := clampRect(tt.in, bounds)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("got %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Left Atrium", "Left Atrium"},
		{"\n\n  Left Atrium  \nmore", "Left Atrium"},
		{"   \n\t\n", ""},
	}
	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecognize_Tesseract(t *testing.T) {
	if _, err := Version(); err != nil {
		t.Skip("Tesseract not available")
	}
	img := diagramWithCaption("VALVE", 60, 100)
	got, err := NewLabeler("eng", "").Recognize(context.Background(), img, rect(50, 80, 110, 110))
	if err != nil {
		if strings.Contains(err.Error(), "tesseract") || errors.Is(err, ErrUnavailable) {
			t.Skip("Tesseract not available")
		}
		t.Fatalf("Recognize failed: %v", err)
	}
	if !strings.Contains(strings.ToUpper(got), "VALVE") {
		t.Logf("OCR result: %q (may vary by Tesseract version)", got)
	}
}
