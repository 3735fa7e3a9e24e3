package geometry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

const tol = 1e-9

func near(a, b r2.Vec) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol
}

func TestLinear(t *testing.T) {
	c := Linear([]r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})
	if got := c.SVG(false); got != "M0,0L10,0L10,10" {
		t.Errorf("SVG: got %q", got)
	}
	if got := c.SVG(true); got != "M0,0L10,0L10,10Z" {
		t.Errorf("closed SVG: got %q", got)
	}
	if !Linear(nil).Empty() || Linear(nil).SVG(false) != "" {
		t.Error("empty input should give an empty curve")
	}
}

func TestCatmullRom_TwoPointsIsStraight(t *testing.T) {
	c := CatmullRom([]r2.Vec{{X: 0, Y: 0}, {X: 5, Y: 5}}, 0.5)
	if len(c.Segments) != 1 || c.Segments[0].Kind != SegmentLine {
		t.Fatalf("segments: %+v", c.Segments)
	}
}

func TestCatmullRom_MatchesD3(t *testing.T) {
	// d3.line().curve(d3.curveCatmullRom.alpha(0.5)) over these points
	// produces M0,0C0,0,33.333,50,50,50C66.667,50,100,0,100,0.
	c := CatmullRom([]r2.Vec{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 0}}, 0.5)
	if len(c.Segments) != 2 {
		t.Fatalf("segments: got %d, want 2", len(c.Segments))
	}
	want := []Segment{
		{Kind: SegmentCubic, C1: r2.Vec{X: 0, Y: 0}, C2: r2.Vec{X: 100.0 / 3, Y: 50}, To: r2.Vec{X: 50, Y: 50}},
		{Kind: SegmentCubic, C1: r2.Vec{X: 200.0 / 3, Y: 50}, C2: r2.Vec{X: 100, Y: 0}, To: r2.Vec{X: 100, Y: 0}},
	}
	for i, w := range want {
		got := c.Segments[i]
		if got.Kind != w.Kind || !near(got.C1, w.C1) || !near(got.C2, w.C2) || !near(got.To, w.To) {
			t.Errorf("segment %d: got %+v, want %+v", i, got, w)
		}
	}
}

func TestCatmullRom_Interpolates(t *testing.T) {
	pts := []r2.Vec{{X: 10, Y: 10}, {X: 100, Y: 20}, {X: 140, Y: 90}, {X: 60, Y: 150}, {X: 5, Y: 80}}
	c := CatmullRom(pts, 0.5)

	got := c.Vertices()
	if len(got) != len(pts) {
		t.Fatalf("vertices: got %d, want %d", len(got), len(pts))
	}
	for i := range pts {
		if !near(got[i], pts[i]) {
			t.Errorf("vertex %d: got %v, want %v", i, got[i], pts[i])
		}
	}

	flat := c.Flatten(1)
	for _, p := range pts {
		found := false
		for _, f := range flat {
			if near(f, p) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("flattened curve does not pass through %v", p)
		}
	}
}

func TestCatmullRom_RepeatedPoint(t *testing.T) {
	// A zero-length chord must not produce NaN control points.
	c := CatmullRom([]r2.Vec{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 5}}, 0.5)
	for i, s := range c.Segments {
		for _, v := range []r2.Vec{s.C1, s.C2, s.To} {
			if math.IsNaN(v.X) || math.IsNaN(v.Y) {
				t.Errorf("segment %d has NaN: %+v", i, s)
			}
		}
	}
}

func TestFlatten_StepLength(t *testing.T) {
	c := CatmullRom([]r2.Vec{{X: 0, Y: 0}, {X: 50, Y: 80}, {X: 100, Y: 0}}, 0.5)
	flat := c.Flatten(2)
	// Bézier speed is at most three times the longest control leg.
	for i := 1; i < len(flat); i++ {
		if d := r2.Norm(r2.Sub(flat[i], flat[i-1])); d > 6+tol {
			t.Errorf("step %d too long: %v", i, d)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:     "0",
		10:    "10",
		-2.5:  "-2.5",
		0.125: "0.125",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v): got %q, want %q", in, got, want)
		}
	}
}
