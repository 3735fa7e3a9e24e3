package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/annotated-diagram-mcp/internal/editor"
	"github.com/ironsheep/annotated-diagram-mcp/internal/imaging"
	"github.com/ironsheep/annotated-diagram-mcp/internal/ocr"
	"github.com/ironsheep/annotated-diagram-mcp/internal/segment"
	"github.com/ironsheep/annotated-diagram-mcp/internal/store"
)

// Version is reported in the initialize handshake. main overrides it.
var Version = "0.1.0"

// Server handles MCP protocol communication
type Server struct {
	cfg       Config
	cache     *imaging.ImageCache
	sessions  *Sessions
	store     *store.Store
	segmenter segment.Segmenter
	labeler   editor.Labeler
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance. It opens the annotation store when
// cfg.DBPath is set.
func New(cfg Config) (*Server, error) {
	seg, err := segment.New(cfg.Segmenter)
	if err != nil {
		return nil, err
	}
	lang := cfg.OCRLanguage
	if lang == "" {
		lang = ocr.DefaultLanguage
	}
	s := &Server{
		cfg:       cfg,
		cache:     imaging.NewImageCache(),
		sessions:  NewSessions(),
		segmenter: seg,
		labeler:   ocr.NewLabeler(lang, cfg.TessdataPrefix),
	}
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		s.store = st
	}
	return s, nil
}

// Sessions returns the open editor sessions, shared with the live endpoint.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Close ends every editor session and closes the store.
func (s *Server) Close() error {
	s.sessions.CloseAll()
	s.cache.Clear()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses to
// w until r is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			continue
		}

		if s.cfg.Debug() {
			log.Printf("request: %s", req.Method)
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				log.Printf("Failed to encode response: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "annotated-diagram-mcp",
				"version": Version,
			},
		},
	}
}
