// Package viewport hosts a background image and its annotations in a
// container of arbitrary size. It keeps the image's aspect ratio, converts
// pointer positions from device pixels to the logical W x H space the
// annotations use, and routes hover and click events into the shared
// interaction state.
package viewport

import (
	"fmt"
	"image"
	"io"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
	"github.com/ironsheep/annotated-diagram-mcp/internal/render"
)

// FitMargin is the share of the available space the diagram may occupy.
const FitMargin = 0.96

// Size is a width and height in either logical units or device pixels.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Fit returns the rendered size for a width x height diagram inside an
// availW x availH container. The result keeps the diagram's aspect ratio
// and is bounded by whichever of the two available dimensions is tighter.
// Non-positive inputs give the zero Size.
func Fit(width, height, availW, availH float64) Size {
	if width <= 0 || height <= 0 || availW <= 0 || availH <= 0 {
		return Size{}
	}
	aspect := width / height
	w := availW * FitMargin
	if byHeight := availH * FitMargin * aspect; byHeight < w {
		w = byHeight
	}
	return Size{W: w, H: w / aspect}
}

// Mapper converts between device pixels relative to the rendered
// container's top-left corner and logical coordinates.
type Mapper struct {
	Logical  Size
	Rendered Size
}

// Valid reports whether both sizes are positive.
func (m Mapper) Valid() bool {
	return m.Logical.W > 0 && m.Logical.H > 0 && m.Rendered.W > 0 && m.Rendered.H > 0
}

// ToLogical maps a device point to logical space: (px*W/rw, py*H/rh). An
// invalid mapper maps every point to the origin.
func (m Mapper) ToLogical(device r2.Vec) r2.Vec {
	if !m.Valid() {
		return r2.Vec{}
	}
	return r2.Vec{
		X: device.X * m.Logical.W / m.Rendered.W,
		Y: device.Y * m.Logical.H / m.Rendered.H,
	}
}

// ToDevice is the inverse of ToLogical.
func (m Mapper) ToDevice(logical r2.Vec) r2.Vec {
	if !m.Valid() {
		return r2.Vec{}
	}
	return r2.Vec{
		X: logical.X * m.Rendered.W / m.Logical.W,
		Y: logical.Y * m.Rendered.H / m.Logical.H,
	}
}

// Variant selects the container chrome.
type Variant string

const (
	VariantDefault  Variant = "default"
	VariantMinimal  Variant = "minimal"
	VariantBordered Variant = "bordered"
)

// ParseVariant accepts the variant names, treating the empty string as the
// default.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantDefault:
		return VariantDefault, nil
	case VariantMinimal, VariantBordered:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown variant %q", s)
}

// Options configure a Viewer.
type Options struct {
	Src     string
	Alt     string
	Width   float64
	Height  float64
	Variant Variant

	Annotations []annotation.Annotation

	// OnAnnotationClick is called when a click lands on an annotation.
	OnAnnotationClick func(annotation.Annotation)
	OnEnter           func(id string)
	OnLeave           func(id string)
}

// Viewer is a read-only annotated diagram. It is not safe for concurrent
// use.
type Viewer struct {
	src     string
	alt     string
	logical Size
	variant Variant

	annotations []annotation.Annotation
	// previous is the list as of the last settled render; nil once the
	// transitions it describes have been drawn.
	previous []annotation.Annotation

	rendered Size
	state    *render.State
}

// NewViewer returns a viewer whose rendered size initially equals the
// logical size. The initial annotations fade in on the first render.
func NewViewer(opts Options) *Viewer {
	variant := opts.Variant
	if variant == "" {
		variant = VariantDefault
	}
	v := &Viewer{
		src:         opts.Src,
		alt:         opts.Alt,
		logical:     Size{W: opts.Width, H: opts.Height},
		variant:     variant,
		annotations: opts.Annotations,
		previous:    []annotation.Annotation{},
		rendered:    Size{W: opts.Width, H: opts.Height},
	}
	v.state = render.NewState(render.Callbacks{
		OnEnter:  opts.OnEnter,
		OnLeave:  opts.OnLeave,
		OnSelect: opts.OnAnnotationClick,
	})
	return v
}

// Logical returns the logical coordinate space size.
func (v *Viewer) Logical() Size { return v.logical }

// Src returns the background image reference.
func (v *Viewer) Src() string { return v.src }

// State returns the viewer's interaction state.
func (v *Viewer) State() *render.State { return v.state }

// Annotations returns the current list. Callers must not modify it.
func (v *Viewer) Annotations() []annotation.Annotation { return v.annotations }

// SetAnnotations replaces the list. Entries added or removed relative to the
// last drawn list animate on the next render. Interaction state that points
// at removed annotations is dropped.
func (v *Viewer) SetAnnotations(list []annotation.Annotation) {
	if v.previous == nil {
		v.previous = v.annotations
	}
	v.annotations = list
	v.state.Forget(list)
}

// Resize fits the diagram into an availW x availH container and returns the
// rendered size.
func (v *Viewer) Resize(availW, availH float64) Size {
	v.rendered = Fit(v.logical.W, v.logical.H, availW, availH)
	return v.rendered
}

// SetRenderedSize records the measured size of the rendered container.
func (v *Viewer) SetRenderedSize(s Size) {
	v.rendered = s
}

// Rendered returns the current rendered size.
func (v *Viewer) Rendered() Size { return v.rendered }

// Mapper returns the device-to-logical mapping for the current size.
func (v *Viewer) Mapper() Mapper {
	return Mapper{Logical: v.logical, Rendered: v.rendered}
}

// Scene builds the current scene without settling transitions.
func (v *Viewer) Scene() render.Scene {
	return render.Build(render.Input{
		Width:       v.logical.W,
		Height:      v.logical.H,
		Annotations: v.annotations,
		ActiveID:    v.state.ActiveID(v.annotations),
		PopoverID:   v.state.PopoverID(v.annotations),
		Previous:    v.previous,
	})
}

// HitTest returns the topmost annotation under a logical point.
func (v *Viewer) HitTest(logical r2.Vec) (annotation.Annotation, bool) {
	id, ok := render.HitTest(v.Scene(), logical, -1)
	if !ok {
		return nil, false
	}
	return annotation.Find(v.annotations, id)
}

// PointerMove updates hover state for a device position and returns the
// hovered annotation ID, or the empty string over the background.
func (v *Viewer) PointerMove(device r2.Vec) string {
	return v.PointerMoveLogical(v.Mapper().ToLogical(device))
}

// PointerMoveLogical is PointerMove for a point already in logical space.
func (v *Viewer) PointerMoveLogical(p r2.Vec) string {
	id := ""
	if a, ok := v.HitTest(p); ok {
		id = a.Common().ID
	}
	v.state.Hover(id)
	return id
}

// PointerLeave clears hover state when the pointer exits the container.
func (v *Viewer) PointerLeave() {
	v.state.Hover("")
}

// Click handles a click at a device position. A click on an annotation
// selects it and reports it to OnAnnotationClick; a click on the background
// clears the active selection.
func (v *Viewer) Click(device r2.Vec) (annotation.Annotation, bool) {
	return v.ClickLogical(v.Mapper().ToLogical(device))
}

// ClickLogical is Click for a point already in logical space.
func (v *Viewer) ClickLogical(p r2.Vec) (annotation.Annotation, bool) {
	a, ok := v.HitTest(p)
	if !ok {
		v.state.Clear()
		return nil, false
	}
	v.state.Select(a)
	return a, true
}

// Document returns the SVG page settings for this viewer.
func (v *Viewer) Document(draft *render.Draft) render.Document {
	return render.Document{Src: v.src, Alt: v.alt, Variant: string(v.variant), Draft: draft}
}

// WriteSVG renders the viewer, with an optional draft overlay, and settles
// pending transitions.
func (v *Viewer) WriteSVG(w io.Writer, draft *render.Draft) error {
	scene := v.Scene()
	if err := render.WriteSVG(w, scene, v.Document(draft)); err != nil {
		return err
	}
	v.previous = nil
	return nil
}

// Rasterize draws the viewer over bg at the given options and settles
// pending transitions.
func (v *Viewer) Rasterize(bg image.Image, opts render.RasterOptions) *image.RGBA {
	img := render.Rasterize(bg, v.Scene(), opts)
	v.previous = nil
	return img
}
