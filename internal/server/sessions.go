package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
	"github.com/ironsheep/annotated-diagram-mcp/internal/editor"
)

// ErrUnknownSession is returned for a session ID that is not open.
var ErrUnknownSession = errors.New("unknown editor session")

// Session is one open editor. Its methods are not safe for concurrent use;
// go through Sessions.Do.
type Session struct {
	ID        string
	DiagramID string
	Src       string
	Editor    *editor.Editor

	mu sync.Mutex
}

// State is the snapshot of a session returned by the editor tools and the
// live endpoint.
type State struct {
	SessionID   string             `json:"session_id"`
	DiagramID   string             `json:"diagram_id,omitempty"`
	Tool        editor.Tool        `json:"tool"`
	Selected    string             `json:"selected,omitempty"`
	Draft       []annotation.Point `json:"draft,omitempty"`
	Pending     int                `json:"pending"`
	Count       int                `json:"count"`
	Notices     []editor.Notice    `json:"notices,omitempty"`
	Annotations json.RawMessage    `json:"annotations"`
}

// State applies finished auto-segment results and returns a snapshot. When
// drain is set the reported notices are cleared.
func (s *Session) State(drain bool) (*State, error) {
	e := s.Editor
	e.Poll()
	list := e.Annotations()
	data, err := annotation.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotations: %w", err)
	}
	st := &State{
		SessionID:   s.ID,
		DiagramID:   s.DiagramID,
		Tool:        e.Tool(),
		Selected:    e.SelectedID(),
		Draft:       e.Draft(),
		Pending:     e.Pending(),
		Count:       len(list),
		Notices:     e.Notices(),
		Annotations: data,
	}
	if drain {
		e.ClearNotices()
	}
	return st, nil
}

// Sessions is the set of open editor sessions.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessions returns an empty session set.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Add registers ed under a new session ID.
func (ss *Sessions) Add(diagramID string, ed *editor.Editor) *Session {
	s := &Session{ID: uuid.NewString(), DiagramID: diagramID, Src: ed.Viewer().Src(), Editor: ed}
	ss.mu.Lock()
	ss.sessions[s.ID] = s
	ss.mu.Unlock()
	return s
}

// Get returns the session with the given ID.
func (ss *Sessions) Get(id string) (*Session, error) {
	ss.mu.RLock()
	s, ok := ss.sessions[id]
	ss.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	return s, nil
}

// Do runs fn with exclusive access to the session.
func (ss *Sessions) Do(id string, fn func(*Session) error) error {
	s, err := ss.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// Close removes the session and abandons its pending requests. It returns
// the closed session.
func (ss *Sessions) Close(id string) (*Session, error) {
	ss.mu.Lock()
	s, ok := ss.sessions[id]
	delete(ss.sessions, id)
	ss.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	s.mu.Lock()
	s.Editor.Close()
	s.mu.Unlock()
	return s, nil
}

// Using reports whether any open session has src as its background.
func (ss *Sessions) Using(src string) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	for _, s := range ss.sessions {
		if s.Src == src {
			return true
		}
	}
	return false
}

// CloseAll closes every session.
func (ss *Sessions) CloseAll() {
	ss.mu.Lock()
	all := ss.sessions
	ss.sessions = make(map[string]*Session)
	ss.mu.Unlock()
	for _, s := range all {
		s.mu.Lock()
		s.Editor.Close()
		s.mu.Unlock()
	}
}

// Len returns the number of open sessions.
func (ss *Sessions) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}
