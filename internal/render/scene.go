package render

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
)

// CurrentColor is used when an annotation has no colour of its own.
const CurrentColor = "currentColor"

// Visual constants shared by all backends, in logical units.
const (
	MarkerRadius       = 6.0
	MarkerRadiusActive = 8.0
	MarkerRingWidth    = 2.0
	PulseScale         = 2.0
	PulseSeconds       = 1.5

	RegionStrokeWidth  = 2.0
	RegionFillOpacity  = 0.2
	RegionActiveFill   = 0.4
	RegionActiveDash   = "2,3"
	RegionActiveStroke = "black"
	HatchOpacity       = 0.45
	HatchSpacing       = 8.0

	PathStrokeWidth       = 3.0
	PathStrokeWidthActive = 4.0

	GlowRadius = 4.0

	CaptionWidth  = 100.0
	CaptionHeight = 30.0

	// Slop added around every shape when hit testing.
	DefaultHitSlop = 4.0

	catmullRomAlpha = 0.5
	flattenStep     = 1.0
)

// Phase is the transition state of a layer relative to the previous render.
type Phase int

const (
	PhaseStable Phase = iota
	PhaseEnter
	PhaseExit
)

func (p Phase) String() string {
	switch p {
	case PhaseEnter:
		return "enter"
	case PhaseExit:
		return "exit"
	}
	return "stable"
}

// Style is the resolved paint for a layer.
type Style struct {
	Stroke      string
	StrokeWidth float64
	StrokeDash  string
	Fill        string
	FillOpacity float64
	Glow        bool
	Hatch       bool
}

// Marker is a circular vertex or landmark marker.
type Marker struct {
	Center r2.Vec
	Radius float64
	Pulse  bool

	// Index is the vertex position, used to stagger entry animations.
	Index int
}

// CaptionAnchor says where a caption box sits relative to its point.
type CaptionAnchor int

const (
	// AnchorCenter centres the caption box on the point.
	AnchorCenter CaptionAnchor = iota
	// AnchorBelow places the caption box under a marker.
	AnchorBelow
)

// Caption is a short text label drawn in a rounded box.
type Caption struct {
	At     r2.Vec
	Text   string
	Anchor CaptionAnchor
}

// Box returns the caption rectangle in logical space.
func (c Caption) Box() geometry.Rect {
	x := c.At.X - CaptionWidth/2
	y := c.At.Y - CaptionHeight/2
	if c.Anchor == AnchorBelow {
		y = c.At.Y + 10
	}
	return geometry.Rect{
		Min: r2.Vec{X: x, Y: y},
		Max: r2.Vec{X: x + CaptionWidth, Y: y + CaptionHeight},
	}
}

// Popover is the detail panel content for an annotation.
type Popover struct {
	Label       string
	Description string
}

// Layer is the drawable form of one annotation.
type Layer struct {
	ID         string
	Kind       annotation.Kind
	Annotation annotation.Annotation
	Active     bool
	Phase      Phase
	Color      string
	Style      Style

	// Outline is the stroked path. For regions it is the polygon boundary
	// and Closed is set.
	Outline geometry.Curve
	Closed  bool

	Markers  []Marker
	Captions []Caption

	// Popover is nil when the annotation has neither label nor
	// description.
	Popover     *Popover
	PopoverOpen bool
}

// Live reports whether the layer takes part in hit testing.
func (l Layer) Live() bool {
	return l.Phase != PhaseExit
}

// Scene is an ordered set of layers in a W x H logical space.
type Scene struct {
	Width  float64
	Height float64
	Layers []Layer
}

// Layer returns the live layer with the given ID.
func (s Scene) Layer(id string) (Layer, bool) {
	for _, l := range s.Layers {
		if l.ID == id && l.Live() {
			return l, true
		}
	}
	return Layer{}, false
}

// Input is everything Build needs for one render pass.
type Input struct {
	Width       float64
	Height      float64
	Annotations []annotation.Annotation
	ActiveID    string
	PopoverID   string

	// Previous is the list drawn by the preceding pass. When nil, no layer
	// is marked as entering or exiting.
	Previous []annotation.Annotation
}

// Build converts annotations into a Scene. Invalid annotations are skipped.
// An ActiveID or PopoverID that names no annotation in the list is ignored.
func Build(in Input) Scene {
	scene := Scene{Width: in.Width, Height: in.Height, Layers: make([]Layer, 0, len(in.Annotations))}

	var prev map[string]bool
	if in.Previous != nil {
		prev = make(map[string]bool, len(in.Previous))
		for _, a := range in.Previous {
			if a != nil {
				prev[a.Common().ID] = true
			}
		}
	}

	current := make(map[string]bool, len(in.Annotations))
	for _, a := range in.Annotations {
		if !annotation.Valid(a) {
			continue
		}
		id := a.Common().ID
		current[id] = true
		layer := buildLayer(a, id == in.ActiveID, id == in.PopoverID)
		if prev != nil && !prev[id] {
			layer.Phase = PhaseEnter
		}
		scene.Layers = append(scene.Layers, layer)
	}

	// Removed annotations linger as exit layers on top so they can fade.
	for _, a := range in.Previous {
		if !annotation.Valid(a) || current[a.Common().ID] {
			continue
		}
		layer := buildLayer(a, false, false)
		layer.Phase = PhaseExit
		scene.Layers = append(scene.Layers, layer)
	}

	return scene
}

func buildLayer(a annotation.Annotation, active, popoverOpen bool) Layer {
	base := a.Common()
	color := base.Color
	if color == "" {
		color = CurrentColor
	}
	l := Layer{
		ID:         base.ID,
		Kind:       a.Kind(),
		Annotation: a,
		Active:     active,
		Color:      color,
	}
	if base.Label != "" || base.Description != "" {
		l.Popover = &Popover{Label: base.Label, Description: base.Description}
		l.PopoverOpen = popoverOpen
	}

	markerRadius := MarkerRadius
	if active {
		markerRadius = MarkerRadiusActive
	}

	switch v := a.(type) {
	case *annotation.RegionAnnotation:
		pts := geometry.Vecs(v.Points)
		l.Outline = geometry.Linear(pts)
		l.Closed = true
		l.Style = Style{
			Stroke:      color,
			StrokeWidth: RegionStrokeWidth,
			Fill:        color,
			FillOpacity: RegionFillOpacity,
		}
		if active {
			l.Style.Stroke = RegionActiveStroke
			l.Style.StrokeDash = RegionActiveDash
			l.Style.FillOpacity = RegionActiveFill
			l.Style.Glow = true
			l.Style.Hatch = true
		}

	case *annotation.PathAnnotation:
		l.Outline = pathCurve(v.Points, v.Curve)
		l.Style = pathStyle(color, active)

	case *annotation.PathWithPointsAnnotation:
		pts := geometry.Vecs(v.Points)
		l.Outline = pathCurve(v.Points, v.Curve)
		l.Style = pathStyle(color, active)
		showLabels := active || v.Markers
		for i, p := range pts {
			l.Markers = append(l.Markers, Marker{Center: p, Radius: markerRadius, Pulse: true, Index: i})
		}
		if showLabels {
			if v.PathLabel != "" {
				l.Captions = append(l.Captions, Caption{At: geometry.Midpoint(pts), Text: v.PathLabel, Anchor: AnchorCenter})
			}
			if v.StartLabel != "" {
				l.Captions = append(l.Captions, Caption{At: pts[0], Text: v.StartLabel, Anchor: AnchorBelow})
			}
			if v.EndLabel != "" {
				l.Captions = append(l.Captions, Caption{At: pts[len(pts)-1], Text: v.EndLabel, Anchor: AnchorBelow})
			}
		}

	case *annotation.PointAnnotation:
		l.Markers = []Marker{{Center: geometry.Vec(v.Coordinates), Radius: markerRadius, Pulse: true}}
		l.Style = Style{Fill: color, FillOpacity: 1, Glow: active}
	}

	return l
}

func pathCurve(points []annotation.Point, curve bool) geometry.Curve {
	pts := geometry.Vecs(points)
	if curve {
		return geometry.CatmullRom(pts, catmullRomAlpha)
	}
	return geometry.Linear(pts)
}

func pathStyle(color string, active bool) Style {
	s := Style{Stroke: color, StrokeWidth: PathStrokeWidth}
	if active {
		s.StrokeWidth = PathStrokeWidthActive
		s.Glow = true
	}
	return s
}
