package annotation

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Point is a coordinate in logical image space, serialised as [x, y].
type Point [2]float64

// X returns the horizontal coordinate.
func (p Point) X() float64 { return p[0] }

// Y returns the vertical coordinate.
func (p Point) Y() float64 { return p[1] }

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) && !math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}

// UnmarshalJSON requires exactly two numbers.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("point must be an [x, y] number pair: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("point must have exactly 2 coordinates, got %d", len(raw))
	}
	p[0], p[1] = raw[0], raw[1]
	return nil
}

// Kind is the discriminator of the annotation union.
type Kind string

const (
	KindRegion         Kind = "region"
	KindPath           Kind = "path"
	KindPathWithPoints Kind = "path-with-points"
	KindPoint          Kind = "point"
)

// Base holds the fields shared by every annotation variant.
type Base struct {
	// ID must be unique within a collection. Hover and selection state is
	// keyed by it.
	ID string

	// Label is the heading shown in the detail popover.
	Label string

	// Description is the longer text shown under the label.
	Description string

	// Color is any CSS colour. Empty means the current foreground colour.
	Color string
}

// Annotation is the sealed union of annotation variants. The only
// implementations are *RegionAnnotation, *PathAnnotation,
// *PathWithPointsAnnotation and *PointAnnotation.
type Annotation interface {
	Kind() Kind
	Common() Base
	annotation()
}

// RegionAnnotation is a closed polygon. The last point connects back to the
// first.
type RegionAnnotation struct {
	Base
	Points []Point
}

// PathAnnotation is an open polyline, or a smooth curve through its points
// when Curve is set.
type PathAnnotation struct {
	Base
	Points []Point
	Curve  bool
}

// PathWithPointsAnnotation is a path with a marker on every vertex and
// optional captions at the start, end and middle of the path.
type PathWithPointsAnnotation struct {
	Base
	Points     []Point
	Curve      bool
	PathLabel  string
	StartLabel string
	EndLabel   string

	// Markers keeps vertex markers and captions visible when the path is
	// not active.
	Markers bool
}

// PointAnnotation is a single landmark.
type PointAnnotation struct {
	Base
	Coordinates Point
}

func (*RegionAnnotation) Kind() Kind         { return KindRegion }
func (*PathAnnotation) Kind() Kind           { return KindPath }
func (*PathWithPointsAnnotation) Kind() Kind { return KindPathWithPoints }
func (*PointAnnotation) Kind() Kind          { return KindPoint }

func (a *RegionAnnotation) Common() Base         { return a.Base }
func (a *PathAnnotation) Common() Base           { return a.Base }
func (a *PathWithPointsAnnotation) Common() Base { return a.Base }
func (a *PointAnnotation) Common() Base          { return a.Base }

func (*RegionAnnotation) annotation()         {}
func (*PathAnnotation) annotation()           {}
func (*PathWithPointsAnnotation) annotation() {}
func (*PointAnnotation) annotation()          {}

// NewID returns a fresh random identifier for an annotation.
func NewID() string {
	return uuid.NewString()
}

// MinPoints returns the number of vertices a kind needs to be drawable.
func MinPoints(k Kind) int {
	switch k {
	case KindRegion:
		return 3
	case KindPath, KindPathWithPoints:
		return 2
	case KindPoint:
		return 1
	}
	return 0
}

// Points returns the vertices of an annotation. For a point annotation this
// is a one element slice holding its coordinates. The returned slice is a
// copy.
func Points(a Annotation) []Point {
	var src []Point
	switch v := a.(type) {
	case *RegionAnnotation:
		src = v.Points
	case *PathAnnotation:
		src = v.Points
	case *PathWithPointsAnnotation:
		src = v.Points
	case *PointAnnotation:
		return []Point{v.Coordinates}
	}
	out := make([]Point, len(src))
	copy(out, src)
	return out
}

// Valid reports whether a can be drawn: it has an ID, enough points for its
// kind, and only finite coordinates. Invalid annotations are not errors; the
// renderer skips them.
func Valid(a Annotation) bool {
	if a == nil || a.Common().ID == "" {
		return false
	}
	pts := Points(a)
	if len(pts) < MinPoints(a.Kind()) {
		return false
	}
	for _, p := range pts {
		if !p.Finite() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of a.
func Clone(a Annotation) Annotation {
	switch v := a.(type) {
	case *RegionAnnotation:
		c := *v
		c.Points = clonePoints(v.Points)
		return &c
	case *PathAnnotation:
		c := *v
		c.Points = clonePoints(v.Points)
		return &c
	case *PathWithPointsAnnotation:
		c := *v
		c.Points = clonePoints(v.Points)
		return &c
	case *PointAnnotation:
		c := *v
		return &c
	}
	return nil
}

// WithBase returns a copy of a with its shared fields replaced by b.
func WithBase(a Annotation, b Base) Annotation {
	switch v := Clone(a).(type) {
	case *RegionAnnotation:
		v.Base = b
		return v
	case *PathAnnotation:
		v.Base = b
		return v
	case *PathWithPointsAnnotation:
		v.Base = b
		return v
	case *PointAnnotation:
		v.Base = b
		return v
	}
	return nil
}

func clonePoints(pts []Point) []Point {
	if pts == nil {
		return nil
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}
