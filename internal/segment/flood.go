package segment

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// Flood defaults.
const (
	DefaultTolerance   = 64.0
	DefaultBlurRadius  = 1.5
	DefaultCloseRadius = 2.0
	DefaultMinArea     = 64.0
	DefaultMaxCoverage = 0.6
	DefaultSimplify    = 1.5
)

// Flood grows a region from the clicked pixel over neighbours whose
// luminance is within Tolerance of the seed, after fitting the background
// to the logical size and smoothing it. Small gaps in the region are closed
// with a dilate/erode pass before the outer boundary is traced and
// simplified. Zero fields take the package defaults.
type Flood struct {
	// Tolerance is the allowed luminance difference on a 0-255 scale.
	Tolerance float64
	// BlurRadius is the Gaussian radius applied before filling.
	BlurRadius float64
	// CloseRadius is the morphological closing radius. Negative disables it.
	CloseRadius float64
	// MinArea is the smallest accepted region in square logical units.
	MinArea float64
	// MaxCoverage is the largest accepted share of the image, in (0,1].
	MaxCoverage float64
	// Simplify is the Douglas-Peucker tolerance in logical units.
	Simplify float64
}

func (f *Flood) withDefaults() Flood {
	out := *f
	if out.Tolerance <= 0 {
		out.Tolerance = DefaultTolerance
	}
	if out.BlurRadius <= 0 {
		out.BlurRadius = DefaultBlurRadius
	}
	if out.CloseRadius == 0 {
		out.CloseRadius = DefaultCloseRadius
	}
	if out.MinArea <= 0 {
		out.MinArea = DefaultMinArea
	}
	if out.MaxCoverage <= 0 || out.MaxCoverage > 1 {
		out.MaxCoverage = DefaultMaxCoverage
	}
	if out.Simplify <= 0 {
		out.Simplify = DefaultSimplify
	}
	return out
}

// Segment implements Segmenter.
func (f *Flood) Segment(ctx context.Context, req Request) (*Proposal, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("%w: no background image", ErrUnavailable)
	}
	w := int(math.Round(req.Width))
	h := int(math.Round(req.Height))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: invalid size %vx%v", ErrNoRegion, req.Width, req.Height)
	}
	cfg := f.withDefaults()

	sx, sy := int(math.Floor(req.Point.X)), int(math.Floor(req.Point.Y))
	if sx < 0 || sy < 0 || sx >= w || sy >= h {
		return nil, fmt.Errorf("%w: point (%v, %v) outside image", ErrNoRegion, req.Point.X, req.Point.Y)
	}

	fitted := imaging.Fill(req.Image, w, h, imaging.Center, imaging.Lanczos)
	var gray image.Image = effect.Grayscale(blur.Gaussian(fitted, cfg.BlurRadius))
	lum := luminance(gray, w, h)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask, area, err := floodFill(ctx, lum, w, h, sx, sy, cfg.Tolerance)
	if err != nil {
		return nil, err
	}
	if float64(area) < cfg.MinArea {
		return nil, fmt.Errorf("%w: region of %d px is below the minimum", ErrNoRegion, area)
	}
	if float64(area) > cfg.MaxCoverage*float64(w*h) {
		return nil, fmt.Errorf("%w: region covers %.0f%% of the image", ErrNoRegion, 100*float64(area)/float64(w*h))
	}

	if cfg.CloseRadius > 0 {
		mask = closeMask(mask, w, h, cfg.CloseRadius)
	}
	component := connected(mask, w, h, sx, sy)

	outline := traceMoore(component, w, h)
	if len(outline) < 3 {
		return nil, fmt.Errorf("%w: degenerate outline", ErrNoRegion)
	}

	closed := append(outline, outline[0])
	simplified := geometry.Simplify(closed, cfg.Simplify)
	simplified = simplified[:len(simplified)-1]
	if len(simplified) < 3 {
		return nil, fmt.Errorf("%w: degenerate outline", ErrNoRegion)
	}

	// Pixel grid to logical units; the grid is the rounded logical size.
	sxScale, syScale := req.Width/float64(w), req.Height/float64(h)
	for i, p := range simplified {
		simplified[i] = r2.Vec{X: p.X * sxScale, Y: p.Y * syScale}
	}

	return &Proposal{
		Points: geometry.Points(simplified),
		Label:  DefaultLabel,
		Color:  DefaultColor,
	}, nil
}

func luminance(img image.Image, w, h int) []uint8 {
	b := img.Bounds()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	return out
}

// floodFill marks the 4-connected pixels reachable from the seed whose
// luminance is within tol of the seed's.
func floodFill(ctx context.Context, lum []uint8, w, h, sx, sy int, tol float64) ([]bool, int, error) {
	mask := make([]bool, w*h)
	seed := float64(lum[sy*w+sx])
	stack := []int{sy*w + sx}
	mask[sy*w+sx] = true
	area := 0

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		area++
		if area%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}

		x, y := i%w, i/w
		for _, n := range [4][2]int{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}} {
			nx, ny := n[0], n[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			j := ny*w + nx
			if mask[j] || math.Abs(float64(lum[j])-seed) > tol {
				continue
			}
			mask[j] = true
			stack = append(stack, j)
		}
	}
	return mask, area, nil
}

// closeMask fills small gaps with a dilate then erode pass.
func closeMask(mask []bool, w, h int, radius float64) []bool {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, on := range mask {
		if on {
			img.Pix[(i/w)*img.Stride+i%w] = 255
		}
	}
	var closed image.Image = effect.Erode(effect.Dilate(img, radius), radius)

	out := make([]bool, w*h)
	b := closed.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = color.GrayModel.Convert(closed.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y > 127
		}
	}
	// Closing never removes original pixels.
	for i, on := range mask {
		if on {
			out[i] = true
		}
	}
	return out
}

// connected returns the 8-connected component of mask containing the seed.
func connected(mask []bool, w, h, sx, sy int) []bool {
	out := make([]bool, w*h)
	start := sy*w + sx
	if !mask[start] {
		return out
	}
	out[start] = true
	stack := []int{start}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if mask[j] && !out[j] {
					out[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}
