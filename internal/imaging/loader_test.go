package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createTestImage writes a w x h PNG filled by fill(x, y) into a temp
// directory and returns its path.
func createTestImage(t *testing.T, width, height int, fill func(x, y int) color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill(x, y))
		}
	}

	path := filepath.Join(t.TempDir(), "diagram.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func solidFill(c color.Color) func(x, y int) color.Color {
	return func(int, int) color.Color { return c }
}

// halves is red on the left half and blue on the right.
func halves(width int) func(x, y int) color.Color {
	return func(x, _ int) color.Color {
		if x < width/2 {
			return color.RGBA{255, 0, 0, 255}
		}
		return color.RGBA{0, 0, 255, 255}
	}
}

func TestImageCache_Load(t *testing.T) {
	path := createTestImage(t, 100, 50, solidFill(color.RGBA{255, 0, 0, 255}))
	cache := NewImageCache()

	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("dimensions: got %dx%d, want 100x50", b.Dx(), b.Dy())
	}

	again, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if again != img {
		t.Error("second Load did not return the cached image")
	}
}

func TestImageCache_Load_Errors(t *testing.T) {
	cache := NewImageCache()
	if _, err := cache.Load("/nonexistent/path/image.png"); err == nil {
		t.Error("expected error for non-existent file")
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := cache.Load(bad); err == nil {
		t.Error("expected error for invalid image")
	}
}

func TestImageCache_LoadFitted(t *testing.T) {
	path := createTestImage(t, 200, 100, halves(200))
	cache := NewImageCache()

	tests := []struct {
		name          string
		width, height float64
		wantW, wantH  int
	}{
		{"same aspect", 400, 200, 400, 200},
		{"square crops sides", 100, 100, 100, 100},
		{"rounded", 99.6, 50.2, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := cache.LoadFitted(path, tt.width, tt.height)
			if err != nil {
				t.Fatalf("LoadFitted failed: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size: got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}

	// Centre crop keeps the red/blue split in the middle.
	img, _ := cache.LoadFitted(path, 100, 100)
	if r, _, _, _ := img.At(5, 50).RGBA(); r>>8 < 200 {
		t.Error("left edge of the crop should be red")
	}
	if _, _, b, _ := img.At(95, 50).RGBA(); b>>8 < 200 {
		t.Error("right edge of the crop should be blue")
	}

	if _, err := cache.LoadFitted(path, 0, 10); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestImageCache_EvictAndClear(t *testing.T) {
	path := createTestImage(t, 10, 10, solidFill(color.White))
	cache := NewImageCache()

	if _, err := cache.LoadFitted(path, 20, 20); err != nil {
		t.Fatalf("LoadFitted failed: %v", err)
	}
	if len(cache.images) != 1 || len(cache.fitted) != 1 {
		t.Fatalf("cache sizes: %d images, %d fitted", len(cache.images), len(cache.fitted))
	}

	cache.Evict(path)
	if len(cache.images) != 0 || len(cache.fitted) != 0 {
		t.Errorf("after Evict: %d images, %d fitted", len(cache.images), len(cache.fitted))
	}
	cache.Evict("/not/cached.png")

	cache.LoadFitted(path, 20, 20)
	cache.Clear()
	if len(cache.images) != 0 || len(cache.fitted) != 0 {
		t.Errorf("after Clear: %d images, %d fitted", len(cache.images), len(cache.fitted))
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	path := createTestImage(t, 50, 50, solidFill(color.Black))
	cache := NewImageCache()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := cache.LoadFitted(path, float64(20+i%3), 20); err != nil {
				t.Errorf("concurrent LoadFitted failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestLoadImageInfo(t *testing.T) {
	path := createTestImage(t, 200, 100, solidFill(color.RGBA{0, 128, 0, 255}))
	cache := NewImageCache()

	info, err := LoadImageInfo(cache, path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}
	if info.Width != 200 || info.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 200x100", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.AspectRatio != 2 {
		t.Errorf("AspectRatio: got %v, want 2", info.AspectRatio)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("FileSizeBytes: got %d", info.FileSizeBytes)
	}

	if _, err := LoadImageInfo(cache, "/nonexistent/image.png"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(createInMemoryImage(4, 4, color.White))
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}
