package render

import (
	"strings"
	"testing"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
)

func TestState_HoverSequence(t *testing.T) {
	var events []string
	s := NewState(Callbacks{
		OnEnter: func(id string) { events = append(events, "enter:"+id) },
		OnLeave: func(id string) { events = append(events, "leave:"+id) },
	})

	s.Hover("a")
	s.Hover("a")
	s.Hover("b")
	s.Hover("")

	got := strings.Join(events, " ")
	want := "enter:a leave:a enter:b leave:b"
	if got != want {
		t.Errorf("events: got %q, want %q", got, want)
	}
}

func TestState_AtMostOneActive(t *testing.T) {
	list := []annotation.Annotation{square("a", 0, 0, 1, 1), square("b", 2, 2, 3, 3)}
	s := NewState(Callbacks{})

	s.Enter("a")
	s.Enter("b")
	if got := s.ActiveID(list); got != "b" {
		t.Errorf("active: got %q, want b", got)
	}

	scene := Build(Input{Annotations: list, ActiveID: s.ActiveID(list)})
	n := 0
	for _, l := range scene.Layers {
		if l.Active {
			n++
		}
	}
	if n != 1 {
		t.Errorf("active layers: got %d, want 1", n)
	}
}

func TestState_PopoverPinnedByClick(t *testing.T) {
	a := square("a", 0, 0, 1, 1)
	list := []annotation.Annotation{a}
	var selected annotation.Annotation
	s := NewState(Callbacks{OnSelect: func(x annotation.Annotation) { selected = x }})

	s.Hover("a")
	if s.PopoverID(list) != "a" {
		t.Fatal("hover should open the popover")
	}
	s.Hover("")
	if s.PopoverID(list) != "" {
		t.Error("leaving should close a hover popover")
	}

	s.Hover("a")
	s.Select(a)
	s.Hover("")
	if selected != a {
		t.Error("OnSelect not called with the annotation")
	}
	if s.PopoverID(list) != "a" {
		t.Error("pinned popover should survive pointer leave")
	}
	if s.ActiveID(list) != "" {
		t.Errorf("active after leave: got %q, want none", s.ActiveID(list))
	}

	s.Hover("a")
	s.Hover("")
	if s.ActiveID(list) != "" || s.PopoverID(list) != "a" {
		t.Errorf("re-hover of pinned shape: active %q popover %q", s.ActiveID(list), s.PopoverID(list))
	}

	s.Clear()
	if s.PopoverID(list) != "" || s.ActiveID(list) != "" {
		t.Error("Clear should close the popover and deactivate")
	}
}

func TestState_Forget(t *testing.T) {
	s := NewState(Callbacks{})
	s.Hover("a")
	s.Select(square("a", 0, 0, 1, 1))

	s.Forget(nil)
	if s.Hovered() != "" || s.ActiveID([]annotation.Annotation{square("a", 0, 0, 1, 1)}) != "" {
		t.Error("Forget should drop removed IDs")
	}
}
