package render

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// HitTest returns the ID of the topmost live layer under p (logical units).
// Layers are checked in reverse draw order so the last-drawn shape wins
// where shapes overlap. slop widens every shape's hit area; a negative value
// selects DefaultHitSlop.
func HitTest(scene Scene, p r2.Vec, slop float64) (string, bool) {
	if slop < 0 {
		slop = DefaultHitSlop
	}
	for i := len(scene.Layers) - 1; i >= 0; i-- {
		l := scene.Layers[i]
		if !l.Live() {
			continue
		}
		if layerContains(l, p, slop) {
			return l.ID, true
		}
	}
	return "", false
}

func layerContains(l Layer, p r2.Vec, slop float64) bool {
	for _, m := range l.Markers {
		if r2.Norm(r2.Sub(p, m.Center)) <= m.Radius+slop {
			return true
		}
	}
	if l.Outline.Empty() {
		return false
	}

	if l.Closed {
		polygon := l.Outline.Vertices()
		if geometry.PointInPolygon(p, polygon) {
			return true
		}
		return geometry.DistanceToPolyline(p, polygon, true) <= l.Style.StrokeWidth/2+slop
	}

	line := l.Outline.Flatten(flattenStep)
	return geometry.DistanceToPolyline(p, line, false) <= l.Style.StrokeWidth/2+slop
}
