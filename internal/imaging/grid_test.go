package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func decodeGrid(t *testing.T, result *GridOverlayResult) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	return img
}

func TestGridOverlay(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{128, 128, 128, 255})

	result, err := GridOverlay(img, 25, false, "#FF0000")
	if err != nil {
		t.Fatalf("GridOverlay failed: %v", err)
	}

	if result.Width != 100 || result.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 100x100", result.Width, result.Height)
	}
	if result.GridSpacing != 25 {
		t.Errorf("GridSpacing: got %d, want 25", result.GridSpacing)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}
	decodeGrid(t, result)
}

func TestGridOverlay_GridLines(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{0, 0, 0, 255})

	result, err := GridOverlay(img, 25, false, "#FF0000FF")
	if err != nil {
		t.Fatalf("GridOverlay failed: %v", err)
	}
	gridImg := decodeGrid(t, result)

	r, g, b, _ := gridImg.At(25, 50).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("grid line color at (25,50): got (%d,%d,%d), want (255,0,0)", r>>8, g>>8, b>>8)
	}

	r, g, b, _ = gridImg.At(15, 15).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("non-grid position at (15,15): got (%d,%d,%d), want black", r>>8, g>>8, b>>8)
	}
}

func TestGridOverlay_InvalidInput(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{128, 128, 128, 255})

	for _, hex := range []string{"invalid", ""} {
		result, err := GridOverlay(img, 50, false, hex)
		if err != nil {
			t.Fatalf("GridOverlay(%q) failed: %v", hex, err)
		}
		// Falls back to semi-transparent red over grey.
		r, g, _, _ := decodeGrid(t, result).At(50, 10).RGBA()
		if r>>8 <= g>>8 {
			t.Errorf("color %q: line at (50,10) is not reddish", hex)
		}
	}

	if _, err := GridOverlay(img, 0, false, "#FF0000"); err == nil {
		t.Error("expected error for zero spacing")
	}
}

func TestDrawGrid_RebasesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 60, 60))
	out := DrawGrid(src, 20, false, color.RGBA{0, 0, 255, 255})
	if out.Bounds() != image.Rect(0, 0, 50, 50) {
		t.Errorf("bounds: got %v", out.Bounds())
	}
	if _, _, b, _ := out.At(20, 5).RGBA(); b>>8 != 255 {
		t.Error("grid line missing at x=20")
	}
}

func TestDrawLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	drawLabel(img, 10, 10, "50,50")

	hasWhite, hasDark := false, false
	for y := 9; y < 25; y++ {
		for x := 9; x < 50; x++ {
			r, _, _, a := img.At(x, y).RGBA()
			if r > 200<<8 {
				hasWhite = true
			}
			if a > 0 && r < 50<<8 {
				hasDark = true
			}
		}
	}
	if !hasWhite {
		t.Error("label should have white pixels (text)")
	}
	if !hasDark {
		t.Error("label should have dark pixels (background)")
	}
}

func TestDrawLabel_BoundsCheck(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))

	// None of these may panic.
	drawLabel(img, 15, 15, "100,100")
	drawLabel(img, 0, 0, "0,0")
	drawLabel(img, -5, -5, "test")
	drawLabel(img, 10, 10, "")
}
