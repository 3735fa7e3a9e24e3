package segment

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// outlineImage returns a white w x h image with a 1px black outline drawn
// for each rectangle.
func outlineImage(w, h int, rects ...image.Rectangle) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	black := color.RGBA{0, 0, 0, 255}
	for _, r := range rects {
		for x := r.Min.X; x <= r.Max.X; x++ {
			img.Set(x, r.Min.Y, black)
			img.Set(x, r.Max.Y, black)
		}
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			img.Set(r.Min.X, y, black)
			img.Set(r.Max.X, y, black)
		}
	}
	return img
}

func checkBounds(t *testing.T, got geometry.Rect, x0, y0, x1, y1, tol float64) {
	t.Helper()
	for _, c := range []struct {
		name      string
		got, want float64
	}{
		{"min x", got.Min.X, x0},
		{"min y", got.Min.Y, y0},
		{"max x", got.Max.X, x1},
		{"max y", got.Max.Y, y1},
	} {
		if math.Abs(c.got-c.want) > tol {
			t.Errorf("%s: got %v, want %v within %v", c.name, c.got, c.want, tol)
		}
	}
}

func TestShapes_FilledSquare(t *testing.T) {
	img := squareImage(120, 120, 40, 40, 80, 80)
	p, err := (&Shapes{}).Segment(context.Background(), Request{
		Point:  r2.Vec{X: 60, Y: 60},
		Width:  120,
		Height: 120,
		Image:  img,
	})
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if len(p.Points) != 4 {
		t.Fatalf("points: got %d, want 4", len(p.Points))
	}
	if p.Label != DefaultLabel || p.Color != DefaultColor {
		t.Errorf("label/color: got %q %q", p.Label, p.Color)
	}
	checkBounds(t, geometry.Bounds(geometry.Vecs(p.Points)), 40, 40, 80, 80, 1.5)
}

func TestShapes_NestedOutlines(t *testing.T) {
	img := outlineImage(120, 120, image.Rect(10, 10, 110, 110), image.Rect(40, 40, 80, 80))
	req := Request{Width: 120, Height: 120, Image: img}
	s := &Shapes{}

	boxes, err := s.Detect(context.Background(), req)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("boxes: got %d, want 2", len(boxes))
	}
	if boxes[0].Bounds.Dx() < boxes[1].Bounds.Dx() {
		t.Error("boxes not sorted largest first")
	}

	tests := []struct {
		name           string
		at             r2.Vec
		x0, y0, x1, y1 float64
	}{
		{"inner", r2.Vec{X: 60, Y: 60}, 40, 40, 80, 80},
		{"outer", r2.Vec{X: 20, Y: 20}, 10, 10, 110, 110},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Point = tt.at
			p, err := s.Segment(context.Background(), req)
			if err != nil {
				t.Fatalf("Segment failed: %v", err)
			}
			checkBounds(t, geometry.Bounds(geometry.Vecs(p.Points)), tt.x0, tt.y0, tt.x1, tt.y1, 1.5)
		})
	}
}

func TestShapes_Errors(t *testing.T) {
	ctx := context.Background()
	img := outlineImage(120, 120, image.Rect(40, 40, 80, 80))

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no image", Request{Width: 120, Height: 120}, ErrUnavailable},
		{"outside every box", Request{Point: r2.Vec{X: 5, Y: 5}, Width: 120, Height: 120, Image: img}, ErrNoRegion},
		{"blank", Request{Point: r2.Vec{X: 60, Y: 60}, Width: 120, Height: 120, Image: squareImage(120, 120, 0, 0, 0, 0)}, ErrNoRegion},
		{"too small", Request{Point: r2.Vec{X: 12, Y: 12}, Width: 120, Height: 120, Image: squareImage(120, 120, 10, 10, 14, 14)}, ErrNoRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (&Shapes{}).Segment(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
