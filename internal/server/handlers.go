package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
	"github.com/ironsheep/annotated-diagram-mcp/internal/editor"
	"github.com/ironsheep/annotated-diagram-mcp/internal/imaging"
	"github.com/ironsheep/annotated-diagram-mcp/internal/render"
	"github.com/ironsheep/annotated-diagram-mcp/internal/segment"
	"github.com/ironsheep/annotated-diagram-mcp/internal/store"
	"github.com/ironsheep/annotated-diagram-mcp/internal/viewport"
)

// ErrNoStore is returned by the store tools when no database is configured.
var ErrNoStore = errors.New("annotation store not configured")

// Timeouts for calls that wait on a collaborator.
const (
	labelTimeout   = 30 * time.Second
	maxWaitSeconds = 60
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "diagram_render_svg", "editor_open").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		if s.cfg.Debug() {
			log.Printf("tool %s failed: %v", params.Name, err)
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads backgrounds from cache or locks the editor session as needed
//  4. Calls the viewport/render/editor/store function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Diagram Viewer
	case "diagram_image_info":
		return s.handleImageInfo(args)
	case "diagram_validate":
		return s.handleValidate(args)
	case "diagram_fit":
		return s.handleFit(args)
	case "diagram_map_pointer":
		return s.handleMapPointer(args)
	case "diagram_hit_test":
		return s.handleHitTest(args)
	case "diagram_render_svg":
		return s.handleRenderSVG(args)
	case "diagram_render_png":
		return s.handleRenderPNG(args)
	case "diagram_export_pdf":
		return s.handleExportPDF(args)
	case "diagram_grid_overlay":
		return s.handleGridOverlay(args)
	case "diagram_sample_color":
		return s.handleSampleColor(args)
	case "diagram_import_legacy":
		return s.handleImportLegacy(args)
	case "diagram_detect_regions":
		return s.handleDetectRegions(args)

	// Annotation Editor
	case "editor_open":
		return s.handleEditorOpen(args)
	case "editor_close":
		return s.handleEditorClose(args)
	case "editor_set_tool":
		return s.handleEditorSetTool(args)
	case "editor_pointer":
		return s.handleEditorPointer(args)
	case "editor_key":
		return s.handleEditorKey(args)
	case "editor_finish":
		return s.handleEditorFinish(args)
	case "editor_cancel":
		return s.handleEditorCancel(args)
	case "editor_select":
		return s.handleEditorSelect(args)
	case "editor_update":
		return s.handleEditorUpdate(args)
	case "editor_delete":
		return s.handleEditorDelete(args)
	case "editor_state":
		return s.handleEditorState(args)
	case "editor_export":
		return s.handleEditorExport(args)
	case "editor_save":
		return s.handleEditorSave(args)
	case "editor_render_svg":
		return s.handleEditorRenderSVG(args)
	case "editor_suggest_label":
		return s.handleEditorSuggestLabel(args)

	// Store
	case "store_list":
		return s.handleStoreList(args)
	case "store_load":
		return s.handleStoreLoad(args)
	case "store_delete":
		return s.handleStoreDelete(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeAnnotations parses an annotation list argument. A missing list is
// empty.
func decodeAnnotations(raw json.RawMessage) ([]annotation.Annotation, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	list, err := annotation.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid annotations: %w", err)
	}
	return list, nil
}

func checkSize(width, height float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("width and height must be positive, got %vx%v", width, height)
	}
	return nil
}

// background returns the image at path fitted to the logical size, or nil
// when path is empty.
func (s *Server) background(path string, width, height float64) (image.Image, error) {
	if path == "" {
		return nil, nil
	}
	return s.cache.LoadFitted(path, width, height)
}

// imageResult is a base64-encoded rendered image.
type imageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// === Diagram Viewer Handlers ===

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type validateArgs struct {
	Annotations json.RawMessage `json:"annotations"`
}

type validateResult struct {
	Count      int      `json:"count"`
	Valid      int      `json:"valid"`
	Invalid    []string `json:"invalid"`
	Duplicates []string `json:"duplicates"`
}

func (s *Server) handleValidate(args json.RawMessage) (interface{}, error) {
	var a validateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	list, err := decodeAnnotations(a.Annotations)
	if err != nil {
		return nil, err
	}
	res := &validateResult{
		Count:      len(list),
		Invalid:    []string{},
		Duplicates: annotation.Duplicates(list),
	}
	if res.Duplicates == nil {
		res.Duplicates = []string{}
	}
	for _, ann := range list {
		if annotation.Valid(ann) {
			res.Valid++
		} else {
			res.Invalid = append(res.Invalid, ann.Common().ID)
		}
	}
	return res, nil
}

type fitArgs struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	AvailableWidth  float64 `json:"available_width"`
	AvailableHeight float64 `json:"available_height"`
}

func (s *Server) handleFit(args json.RawMessage) (interface{}, error) {
	var a fitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := checkSize(a.Width, a.Height); err != nil {
		return nil, err
	}
	return viewport.Fit(a.Width, a.Height, a.AvailableWidth, a.AvailableHeight), nil
}

type mapPointerArgs struct {
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	RenderedWidth  float64 `json:"rendered_width"`
	RenderedHeight float64 `json:"rendered_height"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Direction      string  `json:"direction"`
}

type pointResult struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s *Server) handleMapPointer(args json.RawMessage) (interface{}, error) {
	var a mapPointerArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	m := viewport.Mapper{
		Logical:  viewport.Size{W: a.Width, H: a.Height},
		Rendered: viewport.Size{W: a.RenderedWidth, H: a.RenderedHeight},
	}
	if !m.Valid() {
		return nil, fmt.Errorf("logical and rendered sizes must be positive")
	}
	p := r2.Vec{X: a.X, Y: a.Y}
	switch a.Direction {
	case "", "to_logical":
		p = m.ToLogical(p)
	case "to_device":
		p = m.ToDevice(p)
	default:
		return nil, fmt.Errorf("unknown direction %q", a.Direction)
	}
	return pointResult{X: p.X, Y: p.Y}, nil
}

type hitTestArgs struct {
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Annotations json.RawMessage `json:"annotations"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
}

type hitTestResult struct {
	Hit   bool            `json:"hit"`
	ID    string          `json:"id,omitempty"`
	Type  annotation.Kind `json:"type,omitempty"`
	Label string          `json:"label,omitempty"`
}

func (s *Server) handleHitTest(args json.RawMessage) (interface{}, error) {
	var a hitTestArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := checkSize(a.Width, a.Height); err != nil {
		return nil, err
	}
	list, err := decodeAnnotations(a.Annotations)
	if err != nil {
		return nil, err
	}
	v := viewport.NewViewer(viewport.Options{Width: a.Width, Height: a.Height, Annotations: list})
	hit, ok := v.HitTest(r2.Vec{X: a.X, Y: a.Y})
	if !ok {
		return hitTestResult{}, nil
	}
	return hitTestResult{Hit: true, ID: hit.Common().ID, Type: hit.Kind(), Label: hit.Common().Label}, nil
}

type renderArgs struct {
	Src         string          `json:"src"`
	Path        string          `json:"path"`
	Alt         string          `json:"alt"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Variant     string          `json:"variant"`
	Annotations json.RawMessage `json:"annotations"`
	ActiveID    string          `json:"active_id"`
	Scale       float64         `json:"scale"`
	Title       string          `json:"title"`
	OutputPath  string          `json:"output_path"`
}

// viewer builds a stateless viewer for the render tools.
func (a renderArgs) viewer() (*viewport.Viewer, error) {
	if err := checkSize(a.Width, a.Height); err != nil {
		return nil, err
	}
	variant, err := viewport.ParseVariant(a.Variant)
	if err != nil {
		return nil, err
	}
	list, err := decodeAnnotations(a.Annotations)
	if err != nil {
		return nil, err
	}
	v := viewport.NewViewer(viewport.Options{
		Src:         a.Src,
		Alt:         a.Alt,
		Width:       a.Width,
		Height:      a.Height,
		Variant:     variant,
		Annotations: list,
	})
	if a.ActiveID != "" {
		if active, ok := annotation.Find(list, a.ActiveID); ok {
			v.State().Select(active)
		}
	}
	return v, nil
}

type svgResult struct {
	SVG string `json:"svg"`
}

func (s *Server) handleRenderSVG(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	v, err := a.viewer()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := v.WriteSVG(&buf, nil); err != nil {
		return nil, fmt.Errorf("failed to render SVG: %w", err)
	}
	return svgResult{SVG: buf.String()}, nil
}

func (s *Server) handleRenderPNG(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	v, err := a.viewer()
	if err != nil {
		return nil, err
	}
	bg, err := s.background(a.Path, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	img := v.Rasterize(bg, render.RasterOptions{Scale: a.Scale})
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &imageResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

type pdfResult struct {
	OutputPath string `json:"output_path,omitempty"`
	Bytes      int    `json:"bytes"`
	PDFBase64  string `json:"pdf_base64,omitempty"`
}

func (s *Server) handleExportPDF(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	v, err := a.viewer()
	if err != nil {
		return nil, err
	}
	bg, err := s.background(a.Path, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := render.WritePDF(&buf, bg, v.Scene(), a.Title); err != nil {
		return nil, err
	}
	if a.OutputPath == "" {
		return &pdfResult{Bytes: buf.Len(), PDFBase64: base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
	}
	if err := os.WriteFile(a.OutputPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return &pdfResult{OutputPath: a.OutputPath, Bytes: buf.Len()}, nil
}

type gridOverlayArgs struct {
	Path            string  `json:"path"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	GridSpacing     int     `json:"grid_spacing"`
	ShowCoordinates bool    `json:"show_coordinates"`
	GridColor       string  `json:"grid_color"`
}

func (s *Server) handleGridOverlay(args json.RawMessage) (interface{}, error) {
	var a gridOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.GridSpacing == 0 {
		a.GridSpacing = 50
	}
	if a.GridColor == "" {
		a.GridColor = "#FF000080"
	}
	img, err := s.cache.LoadFitted(a.Path, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	return imaging.GridOverlay(img, a.GridSpacing, a.ShowCoordinates, a.GridColor)
}

type sampleColorArgs struct {
	Path   string  `json:"path"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (s *Server) handleSampleColor(args json.RawMessage) (interface{}, error) {
	var a sampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.LoadFitted(a.Path, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

type importLegacyArgs struct {
	Regions  json.RawMessage `json:"regions"`
	Pathways json.RawMessage `json:"pathways"`
}

type annotationsResult struct {
	Count       int             `json:"count"`
	Annotations json.RawMessage `json:"annotations"`
}

func newAnnotationsResult(list []annotation.Annotation) (*annotationsResult, error) {
	data, err := annotation.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotations: %w", err)
	}
	return &annotationsResult{Count: len(list), Annotations: data}, nil
}

func (s *Server) handleImportLegacy(args json.RawMessage) (interface{}, error) {
	var a importLegacyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	list, err := annotation.ImportLegacyJSON(a.Regions, a.Pathways)
	if err != nil {
		return nil, err
	}
	return newAnnotationsResult(list)
}

type detectRegionsArgs struct {
	Path    string  `json:"path"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	MinArea float64 `json:"min_area"`
}

type detectedRegion struct {
	Points []annotation.Point `json:"points"`
	Score  float64            `json:"score"`
}

type detectRegionsResult struct {
	Count   int              `json:"count"`
	Regions []detectedRegion `json:"regions"`
}

func (s *Server) handleDetectRegions(args json.RawMessage) (interface{}, error) {
	var a detectRegionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := checkSize(a.Width, a.Height); err != nil {
		return nil, err
	}
	img, err := s.cache.LoadFitted(a.Path, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	boxes, err := (&segment.Shapes{MinArea: a.MinArea}).Detect(context.Background(), segment.Request{
		Width:  a.Width,
		Height: a.Height,
		Image:  img,
	})
	if err != nil {
		return nil, err
	}
	res := &detectRegionsResult{Count: len(boxes), Regions: make([]detectedRegion, len(boxes))}
	for i, b := range boxes {
		res.Regions[i] = detectedRegion{Points: b.Proposal().Points, Score: b.Score}
	}
	return res, nil
}

// === Annotation Editor Handlers ===

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

// withSession runs fn on the locked session and returns its state.
func (s *Server) withSession(id string, fn func(*Session) error) (interface{}, error) {
	var st *State
	err := s.sessions.Do(id, func(ss *Session) error {
		if fn != nil {
			if err := fn(ss); err != nil {
				return err
			}
		}
		var err error
		st, err = ss.State(false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

type editorOpenArgs struct {
	Src         string          `json:"src"`
	Alt         string          `json:"alt"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Variant     string          `json:"variant"`
	Annotations json.RawMessage `json:"annotations"`
	DiagramID   string          `json:"diagram_id"`
}

type editorOpenResult struct {
	*State
	Background bool `json:"background"`
}

func (s *Server) handleEditorOpen(args json.RawMessage) (interface{}, error) {
	var a editorOpenArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := checkSize(a.Width, a.Height); err != nil {
		return nil, err
	}
	variant, err := viewport.ParseVariant(a.Variant)
	if err != nil {
		return nil, err
	}
	list, err := decodeAnnotations(a.Annotations)
	if err != nil {
		return nil, err
	}

	if list == nil && a.DiagramID != "" && s.store != nil {
		saved, err := s.store.Load(context.Background(), a.DiagramID)
		switch {
		case err == nil:
			list = saved.Annotations
			if a.Src == "" {
				a.Src = saved.Src
			}
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}

	// A missing background is not fatal: the diagram renders without it.
	bg, err := s.background(a.Src, a.Width, a.Height)
	if err != nil && s.cfg.Debug() {
		log.Printf("editor_open: no background for %q: %v", a.Src, err)
	}

	opts := editor.Options{
		Src:         a.Src,
		Alt:         a.Alt,
		Width:       a.Width,
		Height:      a.Height,
		Variant:     variant,
		Annotations: list,
		Background:  bg,
		Segmenter:   s.segmenter,
		Labeler:     s.labeler,
	}
	if s.store != nil && a.DiagramID != "" {
		opts.OnSave = s.saveFunc(a.DiagramID, a.Src, a.Width, a.Height)
	}

	sess := s.sessions.Add(a.DiagramID, editor.New(opts))
	if s.cfg.Debug() {
		log.Printf("editor_open: session %s (%d annotations)", sess.ID, len(list))
	}
	res, err := s.withSession(sess.ID, nil)
	if err != nil {
		return nil, err
	}
	return &editorOpenResult{State: res.(*State), Background: bg != nil}, nil
}

// saveFunc returns the editor save callback writing to the store.
func (s *Server) saveFunc(diagramID, src string, width, height float64) func([]annotation.Annotation) error {
	return func(list []annotation.Annotation) error {
		_, err := s.store.Save(context.Background(), store.Set{
			DiagramID:   diagramID,
			Src:         src,
			Width:       width,
			Height:      height,
			Annotations: list,
		})
		return err
	}
}

func (s *Server) handleEditorClose(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.sessions.Close(a.SessionID)
	if err != nil {
		return nil, err
	}
	// Drop the background once no open session draws on it.
	if sess.Src != "" && !s.sessions.Using(sess.Src) {
		s.cache.Evict(sess.Src)
	}
	return map[string]interface{}{"closed": a.SessionID}, nil
}

type editorSetToolArgs struct {
	SessionID string `json:"session_id"`
	Tool      string `json:"tool"`
}

func (s *Server) handleEditorSetTool(args json.RawMessage) (interface{}, error) {
	var a editorSetToolArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	tool, err := editor.ParseTool(a.Tool)
	if err != nil {
		return nil, err
	}
	return s.withSession(a.SessionID, func(ss *Session) error {
		return ss.Editor.SetTool(tool)
	})
}

type editorPointerArgs struct {
	SessionID      string  `json:"session_id"`
	Action         string  `json:"action"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Device         bool    `json:"device"`
	RenderedWidth  float64 `json:"rendered_width"`
	RenderedHeight float64 `json:"rendered_height"`
}

// Pointer applies a pointer event to an editor. Device coordinates are
// mapped through the rendered size when one is given.
func Pointer(e *editor.Editor, action string, p r2.Vec, device bool, rendered viewport.Size) error {
	if device && rendered.W > 0 && rendered.H > 0 {
		e.Viewer().SetRenderedSize(rendered)
	}
	switch action {
	case "", "click":
		if device {
			e.ClickDevice(p)
		} else {
			e.Click(p)
		}
	case "move":
		if device {
			e.PointerMoveDevice(p)
		} else {
			e.PointerMove(p)
		}
	case "leave":
		e.PointerLeave()
	default:
		return fmt.Errorf("unknown pointer action %q", action)
	}
	return nil
}

func (s *Server) handleEditorPointer(args json.RawMessage) (interface{}, error) {
	var a editorPointerArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(a.SessionID, func(ss *Session) error {
		return Pointer(ss.Editor, a.Action, r2.Vec{X: a.X, Y: a.Y}, a.Device,
			viewport.Size{W: a.RenderedWidth, H: a.RenderedHeight})
	})
}

type editorKeyArgs struct {
	SessionID string `json:"session_id"`
	Key       string `json:"key"`
}

func (s *Server) handleEditorKey(args json.RawMessage) (interface{}, error) {
	var a editorKeyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(a.SessionID, func(ss *Session) error {
		ss.Editor.Key(editor.Key(a.Key))
		return nil
	})
}

func (s *Server) handleEditorFinish(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(a.SessionID, func(ss *Session) error {
		ss.Editor.Finish()
		return nil
	})
}

func (s *Server) handleEditorCancel(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(a.SessionID, func(ss *Session) error {
		ss.Editor.Cancel()
		return nil
	})
}

type editorSelectArgs struct {
	SessionID string `json:"session_id"`
	ID        string `json:"id"`
}

func (s *Server) handleEditorSelect(args json.RawMessage) (interface{}, error) {
	var a editorSelectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(a.SessionID, func(ss *Session) error {
		if !ss.Editor.Select(a.ID) && a.ID != "" {
			return fmt.Errorf("no annotation with id %q", a.ID)
		}
		return nil
	})
}

type editorUpdateArgs struct {
	SessionID string `json:"session_id"`
	ID        string `json:"id"`
	editor.Patch
}

func (s *Server) handleEditorUpdate(args json.RawMessage) (interface{}, error) {
	var a editorUpdateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(a.SessionID, func(ss *Session) error {
		if a.ID == "" {
			_, err := ss.Editor.UpdateSelected(a.Patch)
			return err
		}
		if _, ok := ss.Editor.Update(a.ID, a.Patch); !ok {
			return fmt.Errorf("no annotation with id %q", a.ID)
		}
		return nil
	})
}

func (s *Server) handleEditorDelete(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(a.SessionID, func(ss *Session) error {
		if !ss.Editor.Delete() {
			return editor.ErrNoSelection
		}
		return nil
	})
}

type editorStateArgs struct {
	SessionID   string  `json:"session_id"`
	WaitSeconds float64 `json:"wait_seconds"`
}

func (s *Server) handleEditorState(args json.RawMessage) (interface{}, error) {
	var a editorStateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	var st *State
	err := s.sessions.Do(a.SessionID, func(ss *Session) error {
		if a.WaitSeconds > 0 {
			wait := time.Duration(math.Min(a.WaitSeconds, maxWaitSeconds) * float64(time.Second))
			ctx, cancel := context.WithTimeout(context.Background(), wait)
			defer cancel()
			if err := ss.Editor.Wait(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
		}
		var err error
		st, err = ss.State(true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Server) handleEditorExport(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	var res *annotationsResult
	err := s.sessions.Do(a.SessionID, func(ss *Session) error {
		ss.Editor.Poll()
		data, err := ss.Editor.Export()
		if err != nil {
			return err
		}
		res = &annotationsResult{Count: len(ss.Editor.Annotations()), Annotations: data}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Server) handleEditorSave(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(a.SessionID, func(ss *Session) error {
		return ss.Editor.Save()
	})
}

func (s *Server) handleEditorRenderSVG(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err := s.sessions.Do(a.SessionID, func(ss *Session) error {
		return ss.Editor.WriteSVG(&buf)
	})
	if err != nil {
		return nil, err
	}
	return svgResult{SVG: buf.String()}, nil
}

type suggestLabelResult struct {
	Label string `json:"label"`
	State *State `json:"state"`
}

func (s *Server) handleEditorSuggestLabel(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res := &suggestLabelResult{}
	err := s.sessions.Do(a.SessionID, func(ss *Session) error {
		ctx, cancel := context.WithTimeout(context.Background(), labelTimeout)
		defer cancel()
		label, err := ss.Editor.SuggestLabel(ctx)
		if err != nil {
			return err
		}
		res.Label = label
		res.State, err = ss.State(false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// === Store Handlers ===

type storeArgs struct {
	DiagramID string `json:"diagram_id"`
}

type storeListResult struct {
	Count int             `json:"count"`
	Sets  []store.Summary `json:"sets"`
}

func (s *Server) handleStoreList(args json.RawMessage) (interface{}, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	sets, err := s.store.List(context.Background())
	if err != nil {
		return nil, err
	}
	if sets == nil {
		sets = []store.Summary{}
	}
	return &storeListResult{Count: len(sets), Sets: sets}, nil
}

type storeLoadResult struct {
	DiagramID   string          `json:"diagram_id"`
	Src         string          `json:"src"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Count       int             `json:"count"`
	Annotations json.RawMessage `json:"annotations"`
}

func (s *Server) handleStoreLoad(args json.RawMessage) (interface{}, error) {
	var a storeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrNoStore
	}
	set, err := s.store.Load(context.Background(), a.DiagramID)
	if err != nil {
		return nil, err
	}
	data, err := annotation.Marshal(set.Annotations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotations: %w", err)
	}
	return &storeLoadResult{
		DiagramID:   set.DiagramID,
		Src:         set.Src,
		Width:       set.Width,
		Height:      set.Height,
		UpdatedAt:   set.UpdatedAt,
		Count:       len(set.Annotations),
		Annotations: data,
	}, nil
}

func (s *Server) handleStoreDelete(args json.RawMessage) (interface{}, error) {
	var a storeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrNoStore
	}
	if err := s.store.Delete(context.Background(), a.DiagramID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": a.DiagramID}, nil
}
