package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
	"github.com/ironsheep/annotated-diagram-mcp/internal/geometry"
	"github.com/ironsheep/annotated-diagram-mcp/internal/render"
	"github.com/ironsheep/annotated-diagram-mcp/internal/segment"
	"github.com/ironsheep/annotated-diagram-mcp/internal/viewport"
)

// Tool is the active editor mode.
type Tool string

// Editor tools.
const (
	ToolSelect         Tool = "select"
	ToolRegion         Tool = "region"
	ToolPath           Tool = "path"
	ToolPathWithPoints Tool = "path-with-points"
	ToolPoint          Tool = "point"
	ToolMagicWand      Tool = "magic-wand"
)

// ParseTool validates a tool name.
func ParseTool(s string) (Tool, error) {
	switch t := Tool(s); t {
	case ToolSelect, ToolRegion, ToolPath, ToolPathWithPoints, ToolPoint, ToolMagicWand:
		return t, nil
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// Drawing reports whether clicks with this tool append to the draft.
func (t Tool) Drawing() bool {
	return t == ToolRegion || t == ToolPath || t == ToolPathWithPoints
}

// Key is a keyboard key the editor reacts to.
type Key string

const (
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// Defaults for newly drawn annotations.
const (
	DefaultRegionLabel = "New Region"
	DefaultRegionColor = "#3b82f6"

	DefaultPathLabel = "New Path"
	DefaultPathColor = "#22c55e"

	DefaultPathWithPointsLabel = "Path Label"
	DefaultPathWithPointsColor = "#8b5cf6"

	DefaultPointLabel = "New Point"
	DefaultPointColor = "#ef4444"
)

// maxNotices bounds the notice backlog; older entries are dropped first.
const maxNotices = 32

var (
	ErrNoSelection   = errors.New("no annotation selected")
	ErrNoSaveHandler = errors.New("no save handler configured")
	ErrNoLabeler     = errors.New("no label recognizer configured")
	ErrNoBackground  = errors.New("no background image loaded")
)

// NoticeLevel classifies a Notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient user-facing message, such as a failed
// auto-segmentation.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Labeler reads text from a region of the background. area is in the
// logical coordinates of img, which is fitted to the diagram's logical size.
type Labeler interface {
	Recognize(ctx context.Context, img image.Image, area geometry.Rect) (string, error)
}

// Options configure a new Editor.
type Options struct {
	Src     string
	Alt     string
	Width   float64
	Height  float64
	Variant viewport.Variant

	// Annotations is the initial list. The editor keeps its own copy.
	Annotations []annotation.Annotation

	// Background is the diagram raster fitted to Width x Height. It feeds
	// the magic wand and label suggestions and may be nil.
	Background image.Image

	// Segmenter serves the magic-wand tool. Nil selects the placeholder
	// octagon.
	Segmenter segment.Segmenter
	Labeler   Labeler

	// OnSave receives a copy of the annotations when Save is called.
	OnSave func([]annotation.Annotation) error
	// OnChange is called after every change to the annotation list.
	OnChange func([]annotation.Annotation)
}

type segmentResult struct {
	point    r2.Vec
	proposal *segment.Proposal
	err      error
}

// Editor is an annotation authoring session.
type Editor struct {
	viewer *viewport.Viewer

	annotations []annotation.Annotation
	tool        Tool
	draft       []r2.Vec
	cursor      *r2.Vec
	selected    string
	notices     []Notice

	background image.Image
	segmenter  segment.Segmenter
	labeler    Labeler
	onSave     func([]annotation.Annotation) error
	onChange   func([]annotation.Annotation)

	ctx     context.Context
	cancel  context.CancelFunc
	results chan segmentResult
	pending int
}

// New returns an editor in the select tool with nothing selected.
func New(opts Options) *Editor {
	seg := opts.Segmenter
	if seg == nil {
		seg = segment.Placeholder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	list := annotation.CloneAll(opts.Annotations)
	return &Editor{
		viewer: viewport.NewViewer(viewport.Options{
			Src:         opts.Src,
			Alt:         opts.Alt,
			Width:       opts.Width,
			Height:      opts.Height,
			Variant:     opts.Variant,
			Annotations: list,
		}),
		annotations: list,
		tool:        ToolSelect,
		background:  opts.Background,
		segmenter:   seg,
		labeler:     opts.Labeler,
		onSave:      opts.OnSave,
		onChange:    opts.OnChange,
		ctx:         ctx,
		cancel:      cancel,
		results:     make(chan segmentResult, 8),
	}
}

// Viewer returns the underlying viewer, for sizing and device mapping.
func (e *Editor) Viewer() *viewport.Viewer { return e.viewer }

// Tool returns the active tool.
func (e *Editor) Tool() Tool { return e.tool }

// SetTool switches tools and discards any draft.
func (e *Editor) SetTool(t Tool) error {
	if _, err := ParseTool(string(t)); err != nil {
		return err
	}
	e.Poll()
	e.tool = t
	e.draft = nil
	return nil
}

// Click handles a click at a logical position.
func (e *Editor) Click(p r2.Vec) {
	e.Poll()
	if !finite(p) {
		return
	}
	switch e.tool {
	case ToolSelect:
		if a, ok := e.viewer.ClickLogical(p); ok {
			e.selected = a.Common().ID
		} else {
			e.selected = ""
		}
	case ToolRegion, ToolPath, ToolPathWithPoints:
		e.draft = append(e.draft, p)
	case ToolPoint:
		e.commit(&annotation.PointAnnotation{
			Base: annotation.Base{
				ID:    annotation.NewID(),
				Label: DefaultPointLabel,
				Color: DefaultPointColor,
			},
			Coordinates: annotation.Point{p.X, p.Y},
		})
	case ToolMagicWand:
		e.startSegment(p)
	}
}

// ClickDevice handles a click at a position in rendered pixels.
func (e *Editor) ClickDevice(device r2.Vec) {
	e.Click(e.viewer.Mapper().ToLogical(device))
}

// PointerMove records the cursor for the rubber band and, in the select
// tool, updates hover state.
func (e *Editor) PointerMove(p r2.Vec) {
	e.Poll()
	if !finite(p) {
		return
	}
	e.cursor = &p
	if e.tool == ToolSelect {
		e.viewer.PointerMoveLogical(p)
	}
}

// PointerMoveDevice is PointerMove for a position in rendered pixels.
func (e *Editor) PointerMoveDevice(device r2.Vec) {
	e.PointerMove(e.viewer.Mapper().ToLogical(device))
}

// PointerLeave clears the cursor and hover state.
func (e *Editor) PointerLeave() {
	e.cursor = nil
	e.viewer.PointerLeave()
}

// Key handles a key press and reports whether it had an effect. Enter
// finishes a non-empty draft; Escape cancels it and returns to select.
func (e *Editor) Key(k Key) bool {
	e.Poll()
	switch k {
	case KeyEnter:
		if len(e.draft) == 0 {
			return false
		}
		e.Finish()
		return true
	case KeyEscape:
		e.draft = nil
		e.tool = ToolSelect
		return true
	}
	return false
}

// Finish commits the draft as an annotation of the active tool's kind. A
// draft with fewer than two points is discarded and the tool is kept.
func (e *Editor) Finish() (annotation.Annotation, bool) {
	e.Poll()
	if !e.tool.Drawing() || len(e.draft) < 2 {
		e.draft = nil
		return nil, false
	}
	pts := geometry.Points(e.draft)
	id := annotation.NewID()

	var a annotation.Annotation
	switch e.tool {
	case ToolRegion:
		a = &annotation.RegionAnnotation{
			Base:   annotation.Base{ID: id, Label: DefaultRegionLabel, Color: DefaultRegionColor},
			Points: pts,
		}
	case ToolPath:
		a = &annotation.PathAnnotation{
			Base:   annotation.Base{ID: id, Label: DefaultPathLabel, Color: DefaultPathColor},
			Points: pts,
			Curve:  true,
		}
	case ToolPathWithPoints:
		a = &annotation.PathWithPointsAnnotation{
			Base:      annotation.Base{ID: id, Color: DefaultPathWithPointsColor},
			Points:    pts,
			Curve:     true,
			PathLabel: DefaultPathWithPointsLabel,
		}
	}
	e.commit(a)
	return annotation.Clone(a), true
}

// Cancel discards the draft and keeps the active tool.
func (e *Editor) Cancel() {
	e.Poll()
	e.draft = nil
}

// commit appends a, selects it and returns to the select tool.
func (e *Editor) commit(a annotation.Annotation) {
	e.draft = nil
	e.setAnnotations(annotation.Append(e.annotations, a))
	e.selectAnnotation(a)
	e.tool = ToolSelect
}

func (e *Editor) setAnnotations(list []annotation.Annotation) {
	e.annotations = list
	e.viewer.SetAnnotations(list)
	if annotation.IndexOf(list, e.selected) < 0 {
		e.selected = ""
	}
	if e.onChange != nil {
		e.onChange(annotation.CloneAll(list))
	}
}

func (e *Editor) selectAnnotation(a annotation.Annotation) {
	if a == nil {
		e.selected = ""
		e.viewer.State().Clear()
		return
	}
	e.selected = a.Common().ID
	e.viewer.State().Select(a)
}

// Select selects the annotation with the given ID, or clears the selection
// when id is empty. It reports false for an unknown ID.
func (e *Editor) Select(id string) bool {
	e.Poll()
	if id == "" {
		e.selectAnnotation(nil)
		return true
	}
	a, ok := annotation.Find(e.annotations, id)
	if !ok {
		return false
	}
	e.selectAnnotation(a)
	return true
}

// Selected returns a copy of the selected annotation.
func (e *Editor) Selected() (annotation.Annotation, bool) {
	a, ok := annotation.Find(e.annotations, e.selected)
	if !ok {
		return nil, false
	}
	return annotation.Clone(a), true
}

// SelectedID returns the selected annotation's ID, or the empty string.
func (e *Editor) SelectedID() string { return e.selected }

// Update applies p to the annotation with the given ID and returns a copy of
// the result. Fields that do not exist on the annotation's kind are
// ignored.
func (e *Editor) Update(id string, p Patch) (annotation.Annotation, bool) {
	e.Poll()
	a, ok := annotation.Find(e.annotations, id)
	if !ok {
		return nil, false
	}
	updated := p.Apply(a)
	e.setAnnotations(annotation.Replace(e.annotations, updated))
	return annotation.Clone(updated), true
}

// UpdateSelected is Update for the selected annotation.
func (e *Editor) UpdateSelected(p Patch) (annotation.Annotation, error) {
	a, ok := e.Update(e.selected, p)
	if !ok {
		return nil, ErrNoSelection
	}
	return a, nil
}

// Delete removes the selected annotation and clears the selection.
func (e *Editor) Delete() bool {
	e.Poll()
	if e.selected == "" {
		return false
	}
	id := e.selected
	e.selectAnnotation(nil)
	e.setAnnotations(annotation.Remove(e.annotations, id))
	return true
}

// Annotations returns a copy of the current list.
func (e *Editor) Annotations() []annotation.Annotation {
	return annotation.CloneAll(e.annotations)
}

// Draft returns the draft vertices in logical coordinates.
func (e *Editor) Draft() []annotation.Point {
	return geometry.Points(e.draft)
}

// Cursor returns the last pointer position, if the pointer is over the
// diagram.
func (e *Editor) Cursor() (r2.Vec, bool) {
	if e.cursor == nil {
		return r2.Vec{}, false
	}
	return *e.cursor, true
}

// Export returns the annotation list as indented JSON.
func (e *Editor) Export() ([]byte, error) {
	return annotation.Marshal(e.annotations)
}

// Save hands a copy of the annotation list to the save callback.
func (e *Editor) Save() error {
	e.Poll()
	if e.onSave == nil {
		return ErrNoSaveHandler
	}
	if err := e.onSave(annotation.CloneAll(e.annotations)); err != nil {
		return fmt.Errorf("failed to save annotations: %w", err)
	}
	return nil
}

// Notices returns the pending notices, oldest first.
func (e *Editor) Notices() []Notice {
	return append([]Notice(nil), e.notices...)
}

// ClearNotices drops all notices.
func (e *Editor) ClearNotices() {
	e.notices = nil
}

func (e *Editor) notify(level NoticeLevel, format string, args ...interface{}) {
	e.notices = append(e.notices, Notice{Level: level, Message: fmt.Sprintf(format, args...)})
	if n := len(e.notices); n > maxNotices {
		e.notices = e.notices[n-maxNotices:]
	}
}

// Overlay returns the draft overlay, or nil when nothing is being drawn.
func (e *Editor) Overlay() *render.Draft {
	if len(e.draft) == 0 {
		return nil
	}
	d := &render.Draft{
		Points: append([]r2.Vec(nil), e.draft...),
		Color:  draftColor(e.tool),
		Status: fmt.Sprintf("Drawing... (%d pts)", len(e.draft)),
	}
	if e.cursor != nil {
		c := *e.cursor
		d.Cursor = &c
	}
	return d
}

func draftColor(t Tool) string {
	switch t {
	case ToolRegion:
		return DefaultRegionColor
	case ToolPath:
		return DefaultPathColor
	}
	return DefaultPathWithPointsColor
}

// Scene builds the annotation scene without the draft.
func (e *Editor) Scene() render.Scene {
	e.Poll()
	return e.viewer.Scene()
}

// WriteSVG renders the diagram with the draft overlay.
func (e *Editor) WriteSVG(w io.Writer) error {
	e.Poll()
	return e.viewer.WriteSVG(w, e.Overlay())
}

// Rasterize renders the diagram over the background with the draft
// overlay.
func (e *Editor) Rasterize(opts render.RasterOptions) *image.RGBA {
	e.Poll()
	opts.Draft = e.Overlay()
	return e.viewer.Rasterize(e.background, opts)
}

// SuggestLabel reads text inside the selected annotation's bounds and, when
// any is found, applies it as the label. It returns the text applied.
func (e *Editor) SuggestLabel(ctx context.Context) (string, error) {
	e.Poll()
	a, ok := annotation.Find(e.annotations, e.selected)
	if !ok {
		return "", ErrNoSelection
	}
	if e.labeler == nil {
		return "", ErrNoLabeler
	}
	if e.background == nil {
		return "", ErrNoBackground
	}

	area := geometry.Bounds(geometry.Vecs(annotation.Points(a)))
	if _, isPoint := a.(*annotation.PointAnnotation); isPoint {
		area = area.Inset(pointLabelRadius)
	}
	text, err := e.labeler.Recognize(ctx, e.background, area)
	if err != nil {
		return "", fmt.Errorf("failed to recognize label: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	e.Update(a.Common().ID, Patch{Label: &text})
	return text, nil
}

// pointLabelRadius is the search radius around a point annotation.
const pointLabelRadius = 40

// Pending returns the number of auto-segment requests in flight.
func (e *Editor) Pending() int { return e.pending }

// Poll applies any finished auto-segment results without blocking and
// returns how many were applied.
func (e *Editor) Poll() int {
	n := 0
	for e.pending > 0 {
		select {
		case r := <-e.results:
			e.applySegment(r)
			n++
		default:
			return n
		}
	}
	return n
}

// Wait blocks until every pending auto-segment request has been applied or
// ctx is done.
func (e *Editor) Wait(ctx context.Context) error {
	for e.pending > 0 {
		select {
		case r := <-e.results:
			e.applySegment(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close abandons pending auto-segment requests. The editor stays usable,
// but further magic-wand clicks fail.
func (e *Editor) Close() {
	e.cancel()
	e.pending = 0
}

func (e *Editor) startSegment(p r2.Vec) {
	if e.ctx.Err() != nil {
		e.notify(NoticeError, "Auto-segmentation unavailable")
		return
	}
	logical := e.viewer.Logical()
	req := segment.Request{
		Point:  p,
		Width:  logical.W,
		Height: logical.H,
		Image:  e.background,
	}
	e.pending++
	ctx, seg, results := e.ctx, e.segmenter, e.results
	go func() {
		prop, err := seg.Segment(ctx, req)
		select {
		case results <- segmentResult{point: p, proposal: prop, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (e *Editor) applySegment(r segmentResult) {
	e.pending--
	switch {
	case r.err == nil:
	case errors.Is(r.err, context.Canceled):
		return
	case errors.Is(r.err, segment.ErrNoRegion):
		e.notify(NoticeError, "No region found at (%s, %s)",
			geometry.FormatNumber(r.point.X), geometry.FormatNumber(r.point.Y))
		return
	case errors.Is(r.err, segment.ErrUnavailable):
		e.notify(NoticeError, "Auto-segmentation unavailable")
		return
	default:
		e.notify(NoticeError, "Auto-segmentation failed: %v", r.err)
		return
	}

	prop := r.proposal
	if prop == nil {
		e.notify(NoticeError, "No region found at (%s, %s)",
			geometry.FormatNumber(r.point.X), geometry.FormatNumber(r.point.Y))
		return
	}
	label, color := prop.Label, prop.Color
	if label == "" {
		label = segment.DefaultLabel
	}
	if color == "" {
		color = segment.DefaultColor
	}
	a := &annotation.RegionAnnotation{
		Base:   annotation.Base{ID: annotation.NewID(), Label: label, Color: color},
		Points: append([]annotation.Point(nil), prop.Points...),
	}
	if !annotation.Valid(a) {
		e.notify(NoticeError, "Auto-segmentation returned an unusable outline")
		return
	}
	if e.tool != ToolMagicWand {
		// The author moved on; keep their draft, tool and selection.
		e.setAnnotations(annotation.Append(e.annotations, a))
	} else {
		e.commit(a)
	}
	e.notify(NoticeInfo, "Added %s", label)
}

func finite(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
