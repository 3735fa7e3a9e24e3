package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageCache provides thread-safe caching of diagram backgrounds, both as
// decoded from disk and fitted to a logical size.
//
// Images are keyed by the exact path string. Fitted variants are keyed by
// path and logical size, and are dropped together with their source on
// Evict.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	bg, err := cache.LoadFitted("/diagrams/heart.png", 800, 600)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// bg is 800x600, cropped like preserveAspectRatio="xMidYMid slice".
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	fitted map[fitKey]image.Image
}

type fitKey struct {
	path string
	w, h int
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
		fitted: make(map[fitKey]image.Image),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Supported formats are PNG, JPEG, and GIF.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid PNG, JPEG, or GIF image
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// LoadFitted returns the image at path scaled and centre-cropped to fill a
// width x height logical space, so that one pixel of the result is one
// logical unit. Non-integer sizes are rounded.
func (c *ImageCache) LoadFitted(path string, width, height float64) (image.Image, error) {
	w, h := int(math.Round(width)), int(math.Round(height))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("invalid logical size %vx%v", width, height)
	}
	key := fitKey{path: path, w: w, h: h}

	c.mu.RLock()
	if img, ok := c.fitted[key]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	src, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	img := Fit(src, w, h)

	c.mu.Lock()
	c.fitted[key] = img
	c.mu.Unlock()

	return img, nil
}

// Fit scales and centre-crops img to exactly w x h pixels.
func Fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.fitted = make(map[fitKey]image.Image)
	c.mu.Unlock()
}

// Evict removes an image and all of its fitted variants. Unknown paths are
// ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	for k := range c.fitted {
		if k.path == path {
			delete(c.fitted, k)
		}
	}
	c.mu.Unlock()
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageInfo contains metadata about a diagram background.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "gif", or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// AspectRatio is Width / Height.
	AspectRatio float64 `json:"aspect_ratio"`
}

// LoadImageInfo loads an image and returns metadata authors need to choose
// a logical size for it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	hasAlpha := false
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
	}

	b := img.Bounds()
	return &ImageInfo{
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        format,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
		AspectRatio:   float64(b.Dx()) / float64(b.Dy()),
	}, nil
}
