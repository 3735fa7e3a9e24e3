// Package geometry provides the curve and polygon math used to draw and
// hit-test annotations: straight and Catmull-Rom curves expressed as cubic
// Bézier segments, flattening, approximate label midpoints, containment and
// distance queries.
package geometry

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// epsilon guards against zero-length chords in the Catmull-Rom tangents.
const epsilon = 1e-12

// SegmentKind distinguishes straight segments from cubic Bézier segments.
type SegmentKind int

const (
	SegmentLine SegmentKind = iota
	SegmentCubic
)

// Segment is one piece of a Curve. C1 and C2 are only meaningful for cubic
// segments. To is always an input vertex.
type Segment struct {
	Kind SegmentKind
	C1   r2.Vec
	C2   r2.Vec
	To   r2.Vec
}

// Curve is a path that starts at Start and visits each segment endpoint in
// order.
type Curve struct {
	Start    r2.Vec
	Segments []Segment
}

// Empty reports whether the curve has no drawable extent.
func (c Curve) Empty() bool {
	return len(c.Segments) == 0
}

// Vertices returns Start followed by every segment endpoint.
func (c Curve) Vertices() []r2.Vec {
	out := make([]r2.Vec, 0, len(c.Segments)+1)
	out = append(out, c.Start)
	for _, s := range c.Segments {
		out = append(out, s.To)
	}
	return out
}

// Linear joins the points with straight segments.
func Linear(points []r2.Vec) Curve {
	if len(points) == 0 {
		return Curve{}
	}
	c := Curve{Start: points[0], Segments: make([]Segment, 0, len(points)-1)}
	for _, p := range points[1:] {
		c.Segments = append(c.Segments, Segment{Kind: SegmentLine, To: p})
	}
	return c
}

// CatmullRom builds an interpolating Catmull-Rom spline through points with
// the given alpha (0.5 is centripetal), emitted as cubic Bézier segments.
//
// The construction follows the d3-shape curveCatmullRom generator: interior
// tangents come from the chord lengths raised to alpha, and the first and
// last control points collapse onto the end vertices. Two points produce a
// single straight segment. The curve passes through every input point.
func CatmullRom(points []r2.Vec, alpha float64) Curve {
	n := len(points)
	switch {
	case n == 0:
		return Curve{}
	case n < 3:
		return Linear(points)
	}

	chord := func(a, b r2.Vec) (la, l2a float64) {
		d := r2.Sub(a, b)
		l2a = math.Pow(d.X*d.X+d.Y*d.Y, alpha)
		return math.Sqrt(l2a), l2a
	}

	c := Curve{Start: points[0], Segments: make([]Segment, 0, n-1)}
	for i := 0; i < n-1; i++ {
		p1, p2 := points[i], points[i+1]
		l12a, l122a := chord(p1, p2)

		c1 := p1
		if i > 0 {
			p0 := points[i-1]
			l01a, l012a := chord(p0, p1)
			if l01a > epsilon {
				a := 2*l012a + 3*l01a*l12a + l122a
				m := 3 * l01a * (l01a + l12a)
				c1 = r2.Scale(1/m, r2.Add(r2.Sub(r2.Scale(a, p1), r2.Scale(l122a, p0)), r2.Scale(l012a, p2)))
			}
		}

		c2 := p2
		if i+2 < n {
			p3 := points[i+2]
			l23a, l232a := chord(p2, p3)
			if l23a > epsilon {
				b := 2*l232a + 3*l23a*l12a + l122a
				m := 3 * l23a * (l23a + l12a)
				c2 = r2.Scale(1/m, r2.Sub(r2.Add(r2.Scale(b, p2), r2.Scale(l232a, p1)), r2.Scale(l122a, p3)))
			}
		}

		c.Segments = append(c.Segments, Segment{Kind: SegmentCubic, C1: c1, C2: c2, To: p2})
	}
	return c
}

// SVG returns the curve as SVG path data. Closed curves end with "Z".
func (c Curve) SVG(closed bool) string {
	if len(c.Segments) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("M")
	writeVec(&b, c.Start)
	for _, s := range c.Segments {
		switch s.Kind {
		case SegmentLine:
			b.WriteString("L")
			writeVec(&b, s.To)
		case SegmentCubic:
			b.WriteString("C")
			writeVec(&b, s.C1)
			b.WriteString(",")
			writeVec(&b, s.C2)
			b.WriteString(",")
			writeVec(&b, s.To)
		}
	}
	if closed {
		b.WriteString("Z")
	}
	return b.String()
}

// Flatten approximates the curve by a polyline. Each cubic segment is split
// into ceil(L/tolerance) pieces of equal parameter step, where L is the
// length of its control polygon.
func (c Curve) Flatten(tolerance float64) []r2.Vec {
	if tolerance <= 0 {
		tolerance = 1
	}
	out := []r2.Vec{c.Start}
	prev := c.Start
	for _, s := range c.Segments {
		if s.Kind == SegmentLine {
			out = append(out, s.To)
			prev = s.To
			continue
		}
		// Control polygon length bounds the arc length.
		hull := r2.Norm(r2.Sub(s.C1, prev)) + r2.Norm(r2.Sub(s.C2, s.C1)) + r2.Norm(r2.Sub(s.To, s.C2))
		steps := int(math.Ceil(hull / tolerance))
		if steps < 1 {
			steps = 1
		}
		for k := 1; k < steps; k++ {
			out = append(out, cubicAt(prev, s.C1, s.C2, s.To, float64(k)/float64(steps)))
		}
		out = append(out, s.To)
		prev = s.To
	}
	return out
}

func cubicAt(p0, p1, p2, p3 r2.Vec, t float64) r2.Vec {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	cc := 3 * mt * t * t
	d := t * t * t
	return r2.Vec{
		X: a*p0.X + b*p1.X + cc*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + cc*p2.Y + d*p3.Y,
	}
}

func writeVec(b *strings.Builder, v r2.Vec) {
	b.WriteString(FormatNumber(v.X))
	b.WriteString(",")
	b.WriteString(FormatNumber(v.Y))
}

// FormatNumber renders a coordinate with the shortest exact representation.
func FormatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
