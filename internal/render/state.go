package render

import (
	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
)

// Callbacks receive interaction events. Any of them may be nil.
type Callbacks struct {
	OnEnter  func(id string)
	OnLeave  func(id string)
	OnSelect func(a annotation.Annotation)
}

// State tracks hover, the single active annotation, and the open popover for
// one diagram instance. It is presentation state only and never touches
// annotation data. State is not safe for concurrent use; hosts drive it from
// their event loop.
type State struct {
	cb Callbacks

	hovered string
	active  string
	popover string

	// pinned is set when the popover was opened by a click, so that the
	// pointer leaving the shape does not dismiss it.
	pinned bool
}

// NewState returns an empty interaction state.
func NewState(cb Callbacks) *State {
	return &State{cb: cb}
}

// SetCallbacks replaces the event callbacks.
func (s *State) SetCallbacks(cb Callbacks) {
	s.cb = cb
}

// Enter marks id as active. Any previously active annotation is deactivated.
func (s *State) Enter(id string) {
	if id == "" {
		return
	}
	s.active = id
	if !s.pinned || s.popover == "" {
		s.popover = id
		s.pinned = false
	}
	if s.cb.OnEnter != nil {
		s.cb.OnEnter(id)
	}
}

// Leave clears the active annotation if it is id. A hover popover for id
// closes; a popover pinned by a click stays open.
func (s *State) Leave(id string) {
	if id == "" {
		return
	}
	if s.active == id {
		s.active = ""
	}
	if s.popover == id && !s.pinned {
		s.popover = ""
	}
	if s.cb.OnLeave != nil {
		s.cb.OnLeave(id)
	}
}

// Hover moves the pointer onto id, or off every shape when id is empty,
// emitting leave and enter events only when the hovered shape changes.
func (s *State) Hover(id string) {
	if id == s.hovered {
		return
	}
	old := s.hovered
	s.hovered = id
	if old != "" {
		s.Leave(old)
	}
	if id != "" {
		s.Enter(id)
	}
}

// Select activates a, pins its popover open and reports the selection.
func (s *State) Select(a annotation.Annotation) {
	if a == nil {
		return
	}
	id := a.Common().ID
	s.active = id
	s.popover = id
	s.pinned = true
	if s.cb.OnSelect != nil {
		s.cb.OnSelect(a)
	}
}

// Clear drops the active annotation and closes any popover. It is what a
// click on the empty background does.
func (s *State) Clear() {
	s.active = ""
	s.popover = ""
	s.pinned = false
}

// ActiveID returns the active annotation's ID if it is present in list, and
// the empty string otherwise.
func (s *State) ActiveID(list []annotation.Annotation) string {
	if annotation.IndexOf(list, s.active) < 0 {
		return ""
	}
	return s.active
}

// PopoverID returns the ID whose popover is open, if present in list.
func (s *State) PopoverID(list []annotation.Annotation) string {
	if annotation.IndexOf(list, s.popover) < 0 {
		return ""
	}
	return s.popover
}

// Hovered returns the ID under the pointer, or the empty string.
func (s *State) Hovered() string {
	return s.hovered
}

// Forget drops any reference to IDs not present in list. Hosts call it after
// annotations are removed so stale IDs do not resurface.
func (s *State) Forget(list []annotation.Annotation) {
	if annotation.IndexOf(list, s.hovered) < 0 {
		s.hovered = ""
	}
	if annotation.IndexOf(list, s.active) < 0 {
		s.active = ""
	}
	if annotation.IndexOf(list, s.popover) < 0 {
		s.popover = ""
		s.pinned = false
	}
}
