package segment

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// Shapes defaults.
const (
	DefaultShapeMinArea        = 400
	DefaultShapeRectangularity = 0.85
	DefaultEdgeThreshold       = 30
)

// minContour is the smallest edge component considered a shape.
const minContour = 10

// Shapes finds axis-aligned boxes drawn on the diagram and proposes the
// smallest one containing the click. Boxes are found by thresholding the
// luminance gradient, grouping edge pixels into 8-connected contours and
// keeping contours whose pixels cover the sides of their bounding box.
// Zero fields take the package defaults.
type Shapes struct {
	// MinArea is the smallest box in square logical units.
	MinArea float64
	// Rectangularity is the share of the bounding box's sides that must be
	// covered by edge pixels, in (0,1].
	Rectangularity float64
	// EdgeThreshold is the luminance step, 0-255, that counts as an edge.
	EdgeThreshold float64
}

// Box is a detected rectangle in logical units.
type Box struct {
	Bounds geometry.Rect
	// Score is the side coverage in [0,1].
	Score float64
}

// Segment implements Segmenter.
func (s *Shapes) Segment(ctx context.Context, req Request) (*Proposal, error) {
	boxes, err := s.Detect(ctx, req)
	if err != nil {
		return nil, err
	}
	var best *Box
	for i := range boxes {
		b := &boxes[i]
		if !inside(req.Point, b.Bounds) {
			continue
		}
		if best == nil || b.Bounds.Dx()*b.Bounds.Dy() < best.Bounds.Dx()*best.Bounds.Dy() {
			best = b
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no box around (%v, %v)", ErrNoRegion, req.Point.X, req.Point.Y)
	}
	p := best.Proposal()
	return &p, nil
}

// Proposal returns the box as a four-corner region proposal.
func (b Box) Proposal() Proposal {
	r := b.Bounds
	return Proposal{
		Points: []annotation.Point{
			{r.Min.X, r.Min.Y},
			{r.Max.X, r.Min.Y},
			{r.Max.X, r.Max.Y},
			{r.Min.X, r.Max.Y},
		},
		Label: DefaultLabel,
		Color: DefaultColor,
	}
}

// Detect returns every box on the background, largest first.
func (s *Shapes) Detect(ctx context.Context, req Request) ([]Box, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("%w: no background image", ErrUnavailable)
	}
	w := int(math.Round(req.Width))
	h := int(math.Round(req.Height))
	if w < 3 || h < 3 {
		return nil, fmt.Errorf("%w: invalid size %vx%v", ErrNoRegion, req.Width, req.Height)
	}
	minArea := s.MinArea
	if minArea <= 0 {
		minArea = DefaultShapeMinArea
	}
	minScore := s.Rectangularity
	if minScore <= 0 || minScore > 1 {
		minScore = DefaultShapeRectangularity
	}
	threshold := s.EdgeThreshold
	if threshold <= 0 {
		threshold = DefaultEdgeThreshold
	}

	fitted := imaging.Fill(req.Image, w, h, imaging.Center, imaging.Lanczos)
	var gray image.Image = effect.Grayscale(fitted)
	edges := gradientEdges(luminance(gray, w, h), w, h, threshold)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sx, sy := req.Width/float64(w), req.Height/float64(h)
	var boxes []Box
	for _, contour := range edgeContours(edges, w, h) {
		minX, minY, maxX, maxY := w, h, -1, -1
		for _, i := range contour {
			x, y := i%w, i/w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
		bw, bh := maxX-minX, maxY-minY
		if float64(bw*bh)*sx*sy < minArea {
			continue
		}
		// Textured blobs have far more edge pixels than a box outline.
		if len(contour) > 8*(bw+bh+2) {
			continue
		}
		score := sideCoverage(edges, w, minX, minY, maxX, maxY)
		if score < minScore {
			continue
		}
		boxes = append(boxes, Box{
			Bounds: geometry.Rect{
				Min: r2.Vec{X: (float64(minX) + 0.5) * sx, Y: (float64(minY) + 0.5) * sy},
				Max: r2.Vec{X: (float64(maxX) + 0.5) * sx, Y: (float64(maxY) + 0.5) * sy},
			},
			Score: score,
		})
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Bounds.Dx()*boxes[i].Bounds.Dy() > boxes[j].Bounds.Dx()*boxes[j].Bounds.Dy()
	})
	return boxes, nil
}

// gradientEdges marks pixels whose luminance differs from the right or lower
// neighbour by more than threshold. The last row and column are never edges.
func gradientEdges(lum []uint8, w, h int, threshold float64) []bool {
	edges := make([]bool, w*h)
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			c := float64(lum[y*w+x])
			if math.Abs(c-float64(lum[y*w+x+1])) > threshold || math.Abs(c-float64(lum[(y+1)*w+x])) > threshold {
				edges[y*w+x] = true
			}
		}
	}
	return edges
}

// edgeContours groups edge pixels into 8-connected components, dropping
// components smaller than minContour.
func edgeContours(edges []bool, w, h int) [][]int {
	visited := make([]bool, len(edges))
	var contours [][]int
	for start, on := range edges {
		if !on || visited[start] {
			continue
		}
		var contour []int
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			contour = append(contour, i)
			x, y := i%w, i/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if edges[j] && !visited[j] {
						visited[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		if len(contour) >= minContour {
			contours = append(contours, contour)
		}
	}
	return contours
}

// sideCoverage returns the share of positions along the four sides of the
// box that have an edge pixel within one pixel inward of the side.
func sideCoverage(edges []bool, w, minX, minY, maxX, maxY int) float64 {
	hit := func(x, y int) bool { return edges[y*w+x] }
	band := func(x0, y0, x1, y1 int) bool {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if x >= minX && x <= maxX && y >= minY && y <= maxY && hit(x, y) {
					return true
				}
			}
		}
		return false
	}

	covered, total := 0, 0
	for x := minX; x <= maxX; x++ {
		total += 2
		if band(x, minY, x, minY+1) {
			covered++
		}
		if band(x, maxY-1, x, maxY) {
			covered++
		}
	}
	for y := minY; y <= maxY; y++ {
		total += 2
		if band(minX, y, minX+1, y) {
			covered++
		}
		if band(maxX-1, y, maxX, y) {
			covered++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}

func inside(p r2.Vec, r geometry.Rect) bool {
	return p.X > r.Min.X && p.X < r.Max.X && p.Y > r.Min.Y && p.Y < r.Max.Y
}
