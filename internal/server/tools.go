package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

type props = map[string]interface{}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func enumProp(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

func schema(properties props, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// Shared argument descriptions.
var (
	pathProp        = prop("string", "Absolute path to the background image file")
	widthProp       = prop("number", "Logical width of the diagram. Annotation coordinates use this space")
	heightProp      = prop("number", "Logical height of the diagram")
	annotationsProp = map[string]interface{}{
		"type":        "array",
		"description": "Annotation list as exported by editor_export: objects with id, type (region, path, path-with-points, point), points and optional label, description, color",
		"items":       map[string]interface{}{"type": "object"},
	}
	sessionProp = prop("string", "Editor session ID returned by editor_open")
	xProp       = prop("number", "X coordinate")
	yProp       = prop("number", "Y coordinate")
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Diagram Viewer
		{
			Name:        "diagram_image_info",
			Description: "Get the pixel size, format and aspect ratio of a background image. Use it to choose the logical width and height of a diagram.",
			InputSchema: schema(props{"path": pathProp}, "path"),
		},
		{
			Name:        "diagram_validate",
			Description: "Check an annotation list: reports annotations with too few or non-finite points and duplicate IDs.",
			InputSchema: schema(props{"annotations": annotationsProp}, "annotations"),
		},
		{
			Name:        "diagram_fit",
			Description: "Compute the largest size with the diagram's aspect ratio that fits the available space.",
			InputSchema: schema(props{
				"width":            widthProp,
				"height":           heightProp,
				"available_width":  prop("number", "Available width in device pixels"),
				"available_height": prop("number", "Available height in device pixels"),
			}, "width", "height", "available_width", "available_height"),
		},
		{
			Name:        "diagram_map_pointer",
			Description: "Convert a pointer position between device pixels of the rendered diagram and logical coordinates.",
			InputSchema: schema(props{
				"width":           widthProp,
				"height":          heightProp,
				"rendered_width":  prop("number", "Rendered width in device pixels"),
				"rendered_height": prop("number", "Rendered height in device pixels"),
				"x":               xProp,
				"y":               yProp,
				"direction":       enumProp("Conversion direction. Default to_logical", "to_logical", "to_device"),
			}, "width", "height", "rendered_width", "rendered_height", "x", "y"),
		},
		{
			Name:        "diagram_hit_test",
			Description: "Find the topmost annotation under a logical point. Later annotations are drawn on top.",
			InputSchema: schema(props{
				"width":       widthProp,
				"height":      heightProp,
				"annotations": annotationsProp,
				"x":           xProp,
				"y":           yProp,
			}, "width", "height", "annotations", "x", "y"),
		},
		{
			Name:        "diagram_render_svg",
			Description: "Render the diagram as a standalone SVG document with the background referenced by src.",
			InputSchema: schema(props{
				"src":         prop("string", "Background image reference written into the SVG"),
				"alt":         prop("string", "Accessible description of the diagram"),
				"width":       widthProp,
				"height":      heightProp,
				"variant":     enumProp("Container style. Default default", "default", "minimal", "bordered"),
				"annotations": annotationsProp,
				"active_id":   prop("string", "Annotation to draw as selected"),
			}, "width", "height", "annotations"),
		},
		{
			Name:        "diagram_render_png",
			Description: "Rasterize the diagram over its background and return a base64-encoded PNG.",
			InputSchema: schema(props{
				"path":        pathProp,
				"width":       widthProp,
				"height":      heightProp,
				"annotations": annotationsProp,
				"active_id":   prop("string", "Annotation to draw as selected"),
				"scale":       prop("number", "Output pixels per logical unit. Default 1.0"),
			}, "width", "height", "annotations"),
		},
		{
			Name:        "diagram_export_pdf",
			Description: "Export the diagram as a one-page PDF. Writes output_path when given, otherwise returns base64.",
			InputSchema: schema(props{
				"path":        pathProp,
				"width":       widthProp,
				"height":      heightProp,
				"annotations": annotationsProp,
				"title":       prop("string", "Document title"),
				"output_path": prop("string", "Absolute path of the PDF file to write"),
			}, "width", "height", "annotations"),
		},
		{
			Name:        "diagram_grid_overlay",
			Description: "Draw a coordinate grid in logical units over the background. Useful for reading annotation coordinates off the image.",
			InputSchema: schema(props{
				"path":             pathProp,
				"width":            widthProp,
				"height":           heightProp,
				"grid_spacing":     prop("integer", "Grid line spacing in logical units. Default 50"),
				"show_coordinates": prop("boolean", "Label grid intersections"),
				"grid_color":       prop("string", "Grid colour as hex (#RRGGBB or #RRGGBBAA). Default #FF000080"),
			}, "path", "width", "height"),
		},
		{
			Name:        "diagram_sample_color",
			Description: "Sample the background colour at a logical point and suggest a contrasting annotation colour.",
			InputSchema: schema(props{
				"path":   pathProp,
				"width":  widthProp,
				"height": heightProp,
				"x":      xProp,
				"y":      yProp,
			}, "path", "width", "height", "x", "y"),
		},
		{
			Name:        "diagram_import_legacy",
			Description: "Convert legacy regions and pathways documents (maps keyed by name with {x, y} points) into an annotation list.",
			InputSchema: schema(props{
				"regions":  prop("object", "Legacy regions document"),
				"pathways": prop("object", "Legacy pathways document"),
			}),
		},
		{
			Name:        "diagram_detect_regions",
			Description: "Find boxes drawn on the background and return them as region proposals in logical coordinates, largest first.",
			InputSchema: schema(props{
				"path":     pathProp,
				"width":    widthProp,
				"height":   heightProp,
				"min_area": prop("number", "Smallest box area in square logical units. Default 400"),
			}, "path", "width", "height"),
		},

		// Annotation Editor
		{
			Name:        "editor_open",
			Description: "Open an editor session over a diagram. Annotations come from the argument, else from the store when diagram_id was saved before.",
			InputSchema: schema(props{
				"src":         prop("string", "Background image path. It is also the image reference in rendered SVG"),
				"alt":         prop("string", "Accessible description of the diagram"),
				"width":       widthProp,
				"height":      heightProp,
				"variant":     enumProp("Container style. Default default", "default", "minimal", "bordered"),
				"annotations": annotationsProp,
				"diagram_id":  prop("string", "Store key used by editor_save"),
			}, "width", "height"),
		},
		{
			Name:        "editor_close",
			Description: "Close an editor session, abandoning any pending auto-segmentation.",
			InputSchema: schema(props{"session_id": sessionProp}, "session_id"),
		},
		{
			Name:        "editor_set_tool",
			Description: "Switch the drawing tool. Any unfinished drawing is discarded.",
			InputSchema: schema(props{
				"session_id": sessionProp,
				"tool":       enumProp("Tool to activate", "select", "region", "path", "path-with-points", "point", "magic-wand"),
			}, "session_id", "tool"),
		},
		{
			Name:        "editor_pointer",
			Description: "Send a pointer event. With the select tool a click selects the annotation under the pointer; drawing tools add a point; the magic wand starts auto-segmentation.",
			InputSchema: schema(props{
				"session_id":      sessionProp,
				"action":          enumProp("Pointer action. Default click", "click", "move", "leave"),
				"x":               xProp,
				"y":               yProp,
				"device":          prop("boolean", "Coordinates are device pixels of the rendered diagram instead of logical units"),
				"rendered_width":  prop("number", "Rendered width in device pixels, required with device"),
				"rendered_height": prop("number", "Rendered height in device pixels, required with device"),
			}, "session_id"),
		},
		{
			Name:        "editor_key",
			Description: "Send a key press. Enter finishes the drawing; Escape cancels it and returns to the select tool.",
			InputSchema: schema(props{
				"session_id": sessionProp,
				"key":        enumProp("Key", "Enter", "Escape"),
			}, "session_id", "key"),
		},
		{
			Name:        "editor_finish",
			Description: "Finish the current drawing. Fewer than two points discards it.",
			InputSchema: schema(props{"session_id": sessionProp}, "session_id"),
		},
		{
			Name:        "editor_cancel",
			Description: "Discard the current drawing and keep the tool.",
			InputSchema: schema(props{"session_id": sessionProp}, "session_id"),
		},
		{
			Name:        "editor_select",
			Description: "Select an annotation by ID. An empty ID clears the selection.",
			InputSchema: schema(props{
				"session_id": sessionProp,
				"id":         prop("string", "Annotation ID"),
			}, "session_id"),
		},
		{
			Name:        "editor_update",
			Description: "Edit properties of an annotation, the selected one by default. Omitted fields are unchanged.",
			InputSchema: schema(props{
				"session_id":  sessionProp,
				"id":          prop("string", "Annotation ID. Default the selected annotation"),
				"label":       prop("string", "Label"),
				"description": prop("string", "Description"),
				"color":       prop("string", "Colour as CSS colour or hex"),
				"curve":       prop("boolean", "Smooth the path (paths only)"),
				"pathLabel":   prop("string", "Caption at the path midpoint (paths with points only)"),
				"startLabel":  prop("string", "Caption at the first point (paths with points only)"),
				"endLabel":    prop("string", "Caption at the last point (paths with points only)"),
				"markers":     prop("boolean", "Draw vertex markers (paths with points only)"),
			}, "session_id"),
		},
		{
			Name:        "editor_delete",
			Description: "Delete the selected annotation.",
			InputSchema: schema(props{"session_id": sessionProp}, "session_id"),
		},
		{
			Name:        "editor_state",
			Description: "Get the session state: tool, selection, drawing, notices and annotations.",
			InputSchema: schema(props{
				"session_id":   sessionProp,
				"wait_seconds": prop("number", "Wait up to this long for pending auto-segmentation first"),
			}, "session_id"),
		},
		{
			Name:        "editor_export",
			Description: "Export the annotation list as JSON.",
			InputSchema: schema(props{"session_id": sessionProp}, "session_id"),
		},
		{
			Name:        "editor_save",
			Description: "Save the annotation list to the store under the session's diagram_id.",
			InputSchema: schema(props{"session_id": sessionProp}, "session_id"),
		},
		{
			Name:        "editor_render_svg",
			Description: "Render the session's diagram, including any unfinished drawing, as SVG.",
			InputSchema: schema(props{"session_id": sessionProp}, "session_id"),
		},
		{
			Name:        "editor_suggest_label",
			Description: "Read text inside the selected annotation with OCR and use it as the label.",
			InputSchema: schema(props{"session_id": sessionProp}, "session_id"),
		},

		// Store
		{
			Name:        "store_list",
			Description: "List saved annotation sets, most recently saved first.",
			InputSchema: schema(props{}),
		},
		{
			Name:        "store_load",
			Description: "Load a saved annotation set.",
			InputSchema: schema(props{"diagram_id": prop("string", "Store key")}, "diagram_id"),
		},
		{
			Name:        "store_delete",
			Description: "Delete a saved annotation set.",
			InputSchema: schema(props{"diagram_id": prop("string", "Store key")}, "diagram_id"),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
