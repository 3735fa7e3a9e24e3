package render

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
)

func TestHitTest(t *testing.T) {
	list := []annotation.Annotation{
		square("under", 0, 0, 100, 100),
		square("over", 50, 50, 150, 150),
		&annotation.PathAnnotation{
			Base:   annotation.Base{ID: "line"},
			Points: []annotation.Point{{200, 0}, {200, 100}},
		},
		&annotation.PointAnnotation{Base: annotation.Base{ID: "dot"}, Coordinates: annotation.Point{300, 300}},
	}
	scene := Build(Input{Width: 400, Height: 400, Annotations: list})

	tests := []struct {
		name   string
		p      r2.Vec
		wantID string
		wantOK bool
	}{
		{"inside only under", r2.Vec{X: 10, Y: 10}, "under", true},
		{"overlap prefers last drawn", r2.Vec{X: 75, Y: 75}, "over", true},
		{"inside only over", r2.Vec{X: 140, Y: 140}, "over", true},
		{"on path stroke", r2.Vec{X: 201, Y: 50}, "line", true},
		{"near path within slop", r2.Vec{X: 205, Y: 50}, "line", true},
		{"far from path", r2.Vec{X: 220, Y: 50}, "", false},
		{"on point marker", r2.Vec{X: 303, Y: 300}, "dot", true},
		{"background", r2.Vec{X: 390, Y: 10}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := HitTest(scene, tt.p, -1)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("HitTest(%v): got (%q,%v), want (%q,%v)", tt.p, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestHitTest_IgnoresExitLayers(t *testing.T) {
	gone := square("gone", 0, 0, 100, 100)
	scene := Build(Input{
		Width:       100,
		Height:      100,
		Annotations: []annotation.Annotation{},
		Previous:    []annotation.Annotation{gone},
	})
	if len(scene.Layers) != 1 {
		t.Fatalf("expected one exit layer, got %d", len(scene.Layers))
	}
	if id, ok := HitTest(scene, r2.Vec{X: 50, Y: 50}, 0); ok {
		t.Errorf("exit layer %q should not be hit", id)
	}
}
