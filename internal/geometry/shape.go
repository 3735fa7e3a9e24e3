package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
)

// Vec converts an annotation point to a vector.
func Vec(p annotation.Point) r2.Vec {
	return r2.Vec{X: p[0], Y: p[1]}
}

// Vecs converts a slice of annotation points.
func Vecs(points []annotation.Point) []r2.Vec {
	out := make([]r2.Vec, len(points))
	for i, p := range points {
		out[i] = Vec(p)
	}
	return out
}

// Points converts vectors back into annotation points.
func Points(vs []r2.Vec) []annotation.Point {
	out := make([]annotation.Point, len(vs))
	for i, v := range vs {
		out[i] = annotation.Point{v.X, v.Y}
	}
	return out
}

// Midpoint returns the caption anchor for a path: the mean of the vertex at
// index floor((n-1)/2) and the one after it. This is an index bisection, not
// an arc-length bisection. Fewer than two points yield the origin.
func Midpoint(points []r2.Vec) r2.Vec {
	n := len(points)
	if n < 2 {
		return r2.Vec{}
	}
	mid := (n - 1) / 2
	return r2.Scale(0.5, r2.Add(points[mid], points[mid+1]))
}

// PointInPolygon reports whether p lies inside the closed polygon using the
// even-odd rule (ray casting). Polygons with fewer than three vertices
// contain nothing.
func PointInPolygon(p r2.Vec, polygon []r2.Vec) bool {
	if len(polygon) < 3 {
		return false
	}
	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		pi, pj := polygon[i], polygon[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) && p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// DistanceToSegment returns the shortest distance from p to the segment ab.
func DistanceToSegment(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Dot(ab, ab)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	proj := r2.Add(a, r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p, proj))
}

// DistanceToPolyline returns the shortest distance from p to the polyline.
// When closed is set the last vertex connects back to the first. An empty
// polyline is infinitely far away.
func DistanceToPolyline(p r2.Vec, line []r2.Vec, closed bool) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return r2.Norm(r2.Sub(p, line[0]))
	}
	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		best = math.Min(best, DistanceToSegment(p, line[i-1], line[i]))
	}
	if closed {
		best = math.Min(best, DistanceToSegment(p, line[len(line)-1], line[0]))
	}
	return best
}

// RegularPolygon returns the vertices of a regular polygon around center,
// starting at angle zero (pointing along +X) and proceeding clockwise in
// image space.
func RegularPolygon(center r2.Vec, radius float64, sides int) []r2.Vec {
	if sides < 3 {
		return nil
	}
	out := make([]r2.Vec, sides)
	for i := 0; i < sides; i++ {
		angle := float64(i) / float64(sides) * math.Pi * 2
		out[i] = r2.Vec{
			X: center.X + math.Cos(angle)*radius,
			Y: center.Y + math.Sin(angle)*radius,
		}
	}
	return out
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min r2.Vec
	Max r2.Vec
}

// Dx returns the width of the box.
func (r Rect) Dx() float64 { return r.Max.X - r.Min.X }

// Dy returns the height of the box.
func (r Rect) Dy() float64 { return r.Max.Y - r.Min.Y }

// Inset grows (positive d) or shrinks the box on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{
		Min: r2.Vec{X: r.Min.X - d, Y: r.Min.Y - d},
		Max: r2.Vec{X: r.Max.X + d, Y: r.Max.Y + d},
	}
}

// Bounds returns the bounding box of the points. The zero Rect is returned
// for an empty slice.
func Bounds(points []r2.Vec) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	r := Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

// Simplify reduces a polyline with the Douglas-Peucker algorithm, keeping
// every vertex farther than tolerance from the simplified shape. The first
// and last vertices are always kept.
func Simplify(points []r2.Vec, tolerance float64) []r2.Vec {
	if len(points) < 3 || tolerance <= 0 {
		out := make([]r2.Vec, len(points))
		copy(out, points)
		return out
	}
	keep := make([]bool, len(points))
	keep[0], keep[len(points)-1] = true, true
	simplifyRange(points, 0, len(points)-1, tolerance, keep)

	out := make([]r2.Vec, 0, len(points))
	for i, p := range points {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func simplifyRange(points []r2.Vec, first, last int, tolerance float64, keep []bool) {
	if last <= first+1 {
		return
	}
	maxDist := -1.0
	index := first
	for i := first + 1; i < last; i++ {
		d := DistanceToSegment(points[i], points[first], points[last])
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist > tolerance {
		keep[index] = true
		simplifyRange(points, first, index, tolerance, keep)
		simplifyRange(points, index, last, tolerance, keep)
	}
}

// PolygonArea returns the absolute area enclosed by the polygon (shoelace
// formula).
func PolygonArea(polygon []r2.Vec) float64 {
	if len(polygon) < 3 {
		return 0
	}
	var sum float64
	j := len(polygon) - 1
	for i := range polygon {
		sum += r2.Cross(polygon[j], polygon[i])
		j = i
	}
	return math.Abs(sum) / 2
}
