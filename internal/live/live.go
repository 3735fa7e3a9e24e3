// Package live serves editor sessions over WebSocket so a browser can drive
// the editor with pointer and key events and redraw from the returned SVG.
//
// Routes:
//
//	GET /sessions/{id}/ws   WebSocket: inbound Message, outbound Frame
//	GET /sessions/{id}/svg  current rendering as image/svg+xml
//
// Every inbound message is answered with one frame. Frames are also pushed
// when a magic-wand result arrives between messages.
package live

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/editor"
	"github.com/ironsheep/annotated-diagram-mcp/internal/server"
	"github.com/ironsheep/annotated-diagram-mcp/internal/viewport"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	pollPeriod = 100 * time.Millisecond

	maxMessageSize = 64 * 1024
)

// Message is an inbound editor event.
type Message struct {
	// Type is one of pointer, click, leave, key, tool, finish, cancel,
	// select, delete, update or state.
	Type string `json:"type"`

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// Device marks X and Y as pixels of the rendered diagram, whose size
	// is given by RenderedWidth and RenderedHeight.
	Device         bool    `json:"device,omitempty"`
	RenderedWidth  float64 `json:"renderedWidth,omitempty"`
	RenderedHeight float64 `json:"renderedHeight,omitempty"`

	Key   string        `json:"key,omitempty"`
	Tool  string        `json:"tool,omitempty"`
	ID    string        `json:"id,omitempty"`
	Patch *editor.Patch `json:"patch,omitempty"`
}

// Frame is an outbound snapshot.
type Frame struct {
	State *server.State `json:"state,omitempty"`
	SVG   string        `json:"svg,omitempty"`
	Error string        `json:"error,omitempty"`
}

// Handler routes the live endpoints for sessions.
type Handler struct {
	sessions *server.Sessions
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	debug    bool
}

// NewHandler returns the live HTTP handler. debug enables per-connection
// logging.
func NewHandler(sessions *server.Sessions, debug bool) *Handler {
	h := &Handler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16 * 1024,
		},
		mux:   http.NewServeMux(),
		debug: debug,
	}
	h.mux.HandleFunc("GET /sessions/{id}/ws", h.serveWS)
	h.mux.HandleFunc("GET /sessions/{id}/svg", h.serveSVG)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) serveSVG(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := h.sessions.Do(r.PathValue("id"), func(s *server.Session) error {
		return s.Editor.WriteSVG(&buf)
	})
	if errors.Is(err, server.ErrUnknownSession) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(buf.Bytes())
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.sessions.Get(id); err != nil {
		http.NotFound(w, r)
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Printf("live: upgrade failed: %v", err)
		return
	}
	c := &client{
		h:    h,
		id:   id,
		ws:   ws,
		send: make(chan Frame, 8),
		done: make(chan struct{}),
	}
	if h.debug {
		log.Printf("live: session %s connected from %s", id, r.RemoteAddr)
	}
	go c.writeLoop()
	if c.push(c.snapshot(nil)) {
		c.readLoop()
	}
}

// client is one WebSocket connection. readLoop handles messages; writeLoop
// is the only writer and closes done when it stops.
type client struct {
	h    *Handler
	id   string
	ws   *websocket.Conn
	send chan Frame
	done chan struct{}
}

// push queues f for writeLoop. It reports false once writeLoop has stopped.
func (c *client) push(f Frame) bool {
	select {
	case c.send <- f:
		return true
	case <-c.done:
		return false
	}
}

func (c *client) readLoop() {
	defer close(c.send)

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("live: session %s: %v", c.id, err)
			} else if c.h.debug {
				log.Printf("live: session %s disconnected: %v", c.id, err)
			}
			return
		}
		f := c.snapshot(func(e *editor.Editor) error {
			return Apply(e, msg)
		})
		if !c.push(f) {
			return
		}
	}
}

func (c *client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	poll := time.NewTicker(pollPeriod)
	defer func() {
		ping.Stop()
		poll.Stop()
		close(c.done)
		c.ws.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(f); err != nil {
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-poll.C:
			f, ok := c.arrived()
			if !ok {
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				return
			}
		}
	}
}

// arrived applies finished auto-segment results and returns a frame when
// any were applied.
func (c *client) arrived() (Frame, bool) {
	var f Frame
	applied := false
	err := c.h.sessions.Do(c.id, func(s *server.Session) error {
		if s.Editor.Pending() == 0 || s.Editor.Poll() == 0 {
			return nil
		}
		applied = true
		f = render(s, nil)
		return nil
	})
	if err != nil || !applied {
		return Frame{}, false
	}
	return f, true
}

// snapshot runs fn on the locked session and renders the result. An error
// from fn is reported in the frame alongside the unchanged state.
func (c *client) snapshot(fn func(*editor.Editor) error) Frame {
	var f Frame
	err := c.h.sessions.Do(c.id, func(s *server.Session) error {
		var ferr error
		if fn != nil {
			ferr = fn(s.Editor)
		}
		f = render(s, ferr)
		return nil
	})
	if err != nil {
		return Frame{Error: err.Error()}
	}
	return f
}

func render(s *server.Session, ferr error) Frame {
	var f Frame
	if ferr != nil {
		f.Error = ferr.Error()
	}
	st, err := s.State(true)
	if err != nil {
		f.Error = err.Error()
		return f
	}
	f.State = st
	var buf bytes.Buffer
	if err := s.Editor.WriteSVG(&buf); err != nil {
		f.Error = err.Error()
		return f
	}
	f.SVG = buf.String()
	return f
}

// Apply performs one message on the editor.
func Apply(e *editor.Editor, msg Message) error {
	p := r2.Vec{X: msg.X, Y: msg.Y}
	rendered := viewport.Size{W: msg.RenderedWidth, H: msg.RenderedHeight}

	switch msg.Type {
	case "pointer":
		return server.Pointer(e, "move", p, msg.Device, rendered)
	case "click":
		return server.Pointer(e, "click", p, msg.Device, rendered)
	case "leave":
		return server.Pointer(e, "leave", p, false, rendered)
	case "key":
		e.Key(editor.Key(msg.Key))
	case "tool":
		t, err := editor.ParseTool(msg.Tool)
		if err != nil {
			return err
		}
		return e.SetTool(t)
	case "finish":
		e.Finish()
	case "cancel":
		e.Cancel()
	case "select":
		if !e.Select(msg.ID) {
			return fmt.Errorf("no annotation with id %q", msg.ID)
		}
	case "delete":
		if !e.Delete() {
			return editor.ErrNoSelection
		}
	case "update":
		if msg.Patch == nil {
			return errors.New("update without patch")
		}
		if msg.ID == "" {
			_, err := e.UpdateSelected(*msg.Patch)
			return err
		}
		if _, ok := e.Update(msg.ID, *msg.Patch); !ok {
			return fmt.Errorf("no annotation with id %q", msg.ID)
		}
	case "state":
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}
