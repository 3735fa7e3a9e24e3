// Package server implements the MCP (Model Context Protocol) server for
// annotated diagrams.
//
// This package provides a JSON-RPC 2.0 server that exposes diagram
// rendering and annotation authoring through the MCP protocol. A client
// can render a diagram with its annotations, hit-test and map pointer
// positions, and drive an editor session that draws, edits and saves
// annotations.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Diagram Viewer (stateless; annotations are passed in):
//   - diagram_image_info: Background size and format
//   - diagram_validate: Report invalid annotations and duplicate IDs
//   - diagram_fit: Aspect-preserving fit into available space
//   - diagram_map_pointer: Device pixels to logical units and back
//   - diagram_hit_test: Topmost annotation under a point
//   - diagram_render_svg, diagram_render_png, diagram_export_pdf: Output
//   - diagram_grid_overlay: Coordinate grid over the background
//   - diagram_sample_color: Background colour and a contrasting choice
//   - diagram_import_legacy: Convert legacy regions/pathways documents
//   - diagram_detect_regions: Boxes drawn on the background
//
// Annotation Editor (stateful; each session owns an editor):
//   - editor_open, editor_close
//   - editor_set_tool, editor_pointer, editor_key
//   - editor_finish, editor_cancel
//   - editor_select, editor_update, editor_delete
//   - editor_state, editor_export, editor_save
//   - editor_render_svg, editor_suggest_label
//
// Store:
//   - store_list, store_load, store_delete
//
// # Sessions
//
// Editor sessions are keyed by a random UUID. Calls on one session are
// serialised by a per-session mutex, so the MCP loop and the live
// WebSocket endpoint can share a session. Magic-wand results arrive
// asynchronously and are applied at the start of the next call on the
// session; editor_state can wait for them.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded backgrounds, both as
// decoded and fitted to each logical size requested. The cache persists
// for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	cfg, err := server.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := server.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
