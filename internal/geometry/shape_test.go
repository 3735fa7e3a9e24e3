package geometry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
)

func TestMidpoint(t *testing.T) {
	tests := []struct {
		name string
		pts  []r2.Vec
		want r2.Vec
	}{
		{"two points", []r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 20}}, r2.Vec{X: 5, Y: 10}},
		{"three points", []r2.Vec{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}, r2.Vec{X: 100, Y: 50}},
		{"four points", []r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}, {X: 30, Y: 0}}, r2.Vec{X: 15, Y: 0}},
		{"one point", []r2.Vec{{X: 3, Y: 3}}, r2.Vec{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Midpoint(tt.pts); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	// A "C" shape whose notch is outside.
	notched := []r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 7}, {X: 10, Y: 7}, {X: 10, Y: 10}, {X: 0, Y: 10}}

	tests := []struct {
		name    string
		polygon []r2.Vec
		p       r2.Vec
		want    bool
	}{
		{"centre", square, r2.Vec{X: 5, Y: 5}, true},
		{"outside", square, r2.Vec{X: 15, Y: 5}, false},
		{"notch", notched, r2.Vec{X: 7, Y: 5}, false},
		{"spine", notched, r2.Vec{X: 1, Y: 5}, true},
		{"degenerate", square[:2], r2.Vec{X: 5, Y: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.p, tt.polygon); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceToPolyline(t *testing.T) {
	line := []r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	if d := DistanceToPolyline(r2.Vec{X: 5, Y: 3}, line, false); d != 3 {
		t.Errorf("open: got %v, want 3", d)
	}
	// Closing edge runs from (10,10) back to (0,0).
	if d := DistanceToPolyline(r2.Vec{X: 0, Y: 5}, line, true); math.Abs(d-5/math.Sqrt2) > 1e-9 {
		t.Errorf("closed: got %v, want %v", d, 5/math.Sqrt2)
	}
	if d := DistanceToPolyline(r2.Vec{}, nil, false); !math.IsInf(d, 1) {
		t.Errorf("empty: got %v", d)
	}
}

func TestRegularPolygon(t *testing.T) {
	pts := RegularPolygon(r2.Vec{X: 100, Y: 100}, 50, 8)
	if len(pts) != 8 {
		t.Fatalf("vertices: got %d, want 8", len(pts))
	}
	for i, p := range pts {
		if d := r2.Norm(r2.Sub(p, r2.Vec{X: 100, Y: 100})); math.Abs(d-50) > 1e-9 {
			t.Errorf("vertex %d at distance %v", i, d)
		}
	}
	if pts[0] != (r2.Vec{X: 150, Y: 100}) {
		t.Errorf("first vertex: got %v, want (150,100)", pts[0])
	}
}

func TestSimplify(t *testing.T) {
	// Dense samples along two edges of a square collapse to the corners.
	var pts []r2.Vec
	for x := 0.0; x <= 10; x++ {
		pts = append(pts, r2.Vec{X: x, Y: 0})
	}
	for y := 1.0; y <= 10; y++ {
		pts = append(pts, r2.Vec{X: 10, Y: y})
	}
	got := Simplify(pts, 0.5)
	want := []r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vertex %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBoundsAndArea(t *testing.T) {
	pts := []r2.Vec{{X: 2, Y: 3}, {X: 12, Y: 3}, {X: 12, Y: 8}, {X: 2, Y: 8}}
	b := Bounds(pts)
	if b.Min != (r2.Vec{X: 2, Y: 3}) || b.Max != (r2.Vec{X: 12, Y: 8}) {
		t.Errorf("bounds: got %+v", b)
	}
	if b.Dx() != 10 || b.Dy() != 5 {
		t.Errorf("size: got %vx%v", b.Dx(), b.Dy())
	}
	if a := PolygonArea(pts); a != 50 {
		t.Errorf("area: got %v, want 50", a)
	}
}

func TestVecConversions(t *testing.T) {
	in := []annotation.Point{{1, 2}, {3, 4}}
	out := Points(Vecs(in))
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("point %d: got %v, want %v", i, out[i], in[i])
		}
	}
}
