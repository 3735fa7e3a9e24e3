package render

import (
	"testing"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
)

func region(id string, pts ...annotation.Point) *annotation.RegionAnnotation {
	return &annotation.RegionAnnotation{
		Base:   annotation.Base{ID: id, Label: "Region " + id, Color: "#3b82f6"},
		Points: pts,
	}
}

func square(id string, x0, y0, x1, y1 float64) *annotation.RegionAnnotation {
	return region(id,
		annotation.Point{x0, y0}, annotation.Point{x1, y0},
		annotation.Point{x1, y1}, annotation.Point{x0, y1})
}

func TestBuild_KeepsOrderAndSkipsInvalid(t *testing.T) {
	list := []annotation.Annotation{
		square("a", 0, 0, 10, 10),
		region("short", annotation.Point{0, 0}, annotation.Point{5, 5}),
		&annotation.PathAnnotation{Base: annotation.Base{ID: "p"}, Points: []annotation.Point{{0, 0}, {10, 10}}},
		&annotation.PointAnnotation{Base: annotation.Base{ID: "pt"}, Coordinates: annotation.Point{5, 5}},
	}

	scene := Build(Input{Width: 100, Height: 50, Annotations: list})

	if scene.Width != 100 || scene.Height != 50 {
		t.Errorf("size: got %vx%v, want 100x50", scene.Width, scene.Height)
	}
	var ids []string
	for _, l := range scene.Layers {
		ids = append(ids, l.ID)
	}
	want := []string{"a", "p", "pt"}
	if len(ids) != len(want) {
		t.Fatalf("layers: got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("layer %d: got %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestBuild_RegionActiveStyle(t *testing.T) {
	list := []annotation.Annotation{square("a", 0, 0, 10, 10)}

	idle := Build(Input{Width: 10, Height: 10, Annotations: list}).Layers[0]
	if idle.Style.FillOpacity != RegionFillOpacity || idle.Style.Stroke != "#3b82f6" || idle.Style.Hatch {
		t.Errorf("idle style: %+v", idle.Style)
	}

	active := Build(Input{Width: 10, Height: 10, Annotations: list, ActiveID: "a"}).Layers[0]
	if !active.Active {
		t.Error("layer should be active")
	}
	s := active.Style
	if s.FillOpacity != RegionActiveFill || s.Stroke != RegionActiveStroke || s.StrokeDash != RegionActiveDash {
		t.Errorf("active style: %+v", s)
	}
	if !s.Glow || !s.Hatch {
		t.Errorf("active region should glow and hatch: %+v", s)
	}
}

func TestBuild_DefaultColor(t *testing.T) {
	p := &annotation.PointAnnotation{Base: annotation.Base{ID: "x"}, Coordinates: annotation.Point{1, 1}}
	l := Build(Input{Width: 10, Height: 10, Annotations: []annotation.Annotation{p}}).Layers[0]
	if l.Color != CurrentColor {
		t.Errorf("color: got %q, want %q", l.Color, CurrentColor)
	}
	if l.Popover != nil {
		t.Error("annotation without label or description should have no popover")
	}
}

func TestBuild_PathStrokeWidth(t *testing.T) {
	p := &annotation.PathAnnotation{Base: annotation.Base{ID: "p"}, Points: []annotation.Point{{0, 0}, {5, 5}, {10, 0}}, Curve: true}
	list := []annotation.Annotation{p}

	if w := Build(Input{Annotations: list}).Layers[0].Style.StrokeWidth; w != PathStrokeWidth {
		t.Errorf("idle width: got %v", w)
	}
	if w := Build(Input{Annotations: list, ActiveID: "p"}).Layers[0].Style.StrokeWidth; w != PathStrokeWidthActive {
		t.Errorf("active width: got %v", w)
	}
}

func TestBuild_PathWithPointsCaptions(t *testing.T) {
	pwp := &annotation.PathWithPointsAnnotation{
		Base:       annotation.Base{ID: "w", Color: "#8b5cf6"},
		Points:     []annotation.Point{{0, 0}, {100, 0}, {100, 100}},
		PathLabel:  "route",
		StartLabel: "from",
		EndLabel:   "to",
	}
	list := []annotation.Annotation{pwp}

	idle := Build(Input{Annotations: list}).Layers[0]
	if len(idle.Markers) != 3 {
		t.Errorf("markers: got %d, want 3", len(idle.Markers))
	}
	if len(idle.Captions) != 0 {
		t.Errorf("captions should be hidden while inactive: %v", idle.Captions)
	}

	active := Build(Input{Annotations: list, ActiveID: "w"}).Layers[0]
	if len(active.Captions) != 3 {
		t.Fatalf("captions: got %d, want 3", len(active.Captions))
	}
	// Midpoint of points[1] and points[2].
	if c := active.Captions[0]; c.At.X != 100 || c.At.Y != 50 || c.Text != "route" {
		t.Errorf("path caption: %+v", c)
	}
	if c := active.Captions[1]; c.Anchor != AnchorBelow || c.At.X != 0 {
		t.Errorf("start caption: %+v", c)
	}
	box := active.Captions[2].Box()
	if box.Min.X != 50 || box.Min.Y != 110 {
		t.Errorf("end caption box: got %+v, want min (50,110)", box.Min)
	}
	for _, m := range active.Markers {
		if m.Radius != MarkerRadiusActive {
			t.Errorf("active marker radius: got %v", m.Radius)
		}
	}

	pwp.Markers = true
	shown := Build(Input{Annotations: list}).Layers[0]
	if len(shown.Captions) != 3 {
		t.Errorf("markers flag should show captions: got %d", len(shown.Captions))
	}
}

func TestBuild_Transitions(t *testing.T) {
	a := square("a", 0, 0, 10, 10)
	b := square("b", 20, 20, 30, 30)
	c := square("c", 40, 40, 50, 50)

	scene := Build(Input{
		Annotations: []annotation.Annotation{a, c},
		Previous:    []annotation.Annotation{a, b},
	})

	phases := map[string]Phase{}
	for _, l := range scene.Layers {
		phases[l.ID] = l.Phase
	}
	if phases["a"] != PhaseStable || phases["c"] != PhaseEnter || phases["b"] != PhaseExit {
		t.Errorf("phases: %v", phases)
	}
	if last := scene.Layers[len(scene.Layers)-1]; last.ID != "b" {
		t.Errorf("exit layer should be last, got %s", last.ID)
	}
	if _, ok := scene.Layer("b"); ok {
		t.Error("exit layer should not be returned by Layer")
	}
}

func TestBuild_UnknownActiveIgnored(t *testing.T) {
	scene := Build(Input{Annotations: []annotation.Annotation{square("a", 0, 0, 1, 1)}, ActiveID: "missing"})
	for _, l := range scene.Layers {
		if l.Active {
			t.Errorf("layer %s should not be active", l.ID)
		}
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	a := square("a", 0, 0, 10, 10)
	before, _ := annotation.MarshalOne(a)
	Build(Input{Annotations: []annotation.Annotation{a}, ActiveID: "a"})
	after, _ := annotation.MarshalOne(a)
	if string(before) != string(after) {
		t.Errorf("annotation changed:\n%s\n%s", before, after)
	}
}
