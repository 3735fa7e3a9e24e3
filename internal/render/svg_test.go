package render

import (
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
)

func TestWriteSVG_Document(t *testing.T) {
	list := []annotation.Annotation{
		square("a", 10, 10, 100, 100),
		&annotation.PointAnnotation{
			Base:        annotation.Base{ID: "p", Label: "Tap <here>", Description: "Details & more"},
			Coordinates: annotation.Point{50, 50},
		},
	}
	scene := Build(Input{Width: 800, Height: 600, Annotations: list, ActiveID: "a"})

	out, err := SVGString(scene, Document{Src: "/img/brain.png", Alt: "Brain diagram", Variant: "bordered"})
	if err != nil {
		t.Fatalf("SVGString failed: %v", err)
	}

	wants := []string{
		`viewBox="0 0 800 600"`,
		`preserveAspectRatio="xMidYMid meet"`,
		`aria-label="Brain diagram"`,
		`variant-bordered`,
		`<filter id="glow">`,
		`<pattern id="dense_crosshatch"`,
		`href="/img/brain.png"`,
		`data-role="background"`,
		`data-annotation-id="a"`,
		`data-active="true"`,
		`M10,10L100,10L100,100L10,100Z`,
		`stroke-dasharray="2,3"`,
		`fill="url(#dense_crosshatch)"`,
		`<title>Tap &lt;here&gt;</title>`,
		`<desc>Details &amp; more</desc>`,
		`repeatCount="indefinite"`,
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q", w)
		}
	}
	if strings.Index(out, `data-annotation-id="a"`) > strings.Index(out, `data-annotation-id="p"`) {
		t.Error("layers should be written in list order")
	}
}

func TestWriteSVG_CurvedPath(t *testing.T) {
	p := &annotation.PathAnnotation{
		Base:   annotation.Base{ID: "c"},
		Points: []annotation.Point{{0, 0}, {50, 50}, {100, 0}},
		Curve:  true,
	}
	out, err := SVGString(Build(Input{Width: 100, Height: 100, Annotations: []annotation.Annotation{p}}), Document{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `d="M0,0C`) {
		t.Errorf("curved path should use cubic segments:\n%s", out)
	}
	if strings.Contains(out, "bg_img") {
		t.Error("no background pattern expected without Src")
	}
	if !strings.Contains(out, `stroke="currentColor"`) {
		t.Error("uncoloured path should stroke currentColor")
	}
}

func TestWriteSVG_Transitions(t *testing.T) {
	p := &annotation.PathAnnotation{Base: annotation.Base{ID: "new"}, Points: []annotation.Point{{0, 0}, {10, 0}}}
	old := square("old", 0, 0, 5, 5)
	scene := Build(Input{
		Width:       10,
		Height:      10,
		Annotations: []annotation.Annotation{p},
		Previous:    []annotation.Annotation{old},
	})
	out, err := SVGString(scene, Document{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `data-phase="enter"`) || !strings.Contains(out, `data-phase="exit"`) {
		t.Errorf("missing transition phases:\n%s", out)
	}
	if !strings.Contains(out, `attributeName="stroke-dashoffset"`) {
		t.Error("entering path should draw itself in")
	}
}

func TestWriteSVG_Draft(t *testing.T) {
	cursor := r2.Vec{X: 30, Y: 40}
	doc := Document{Draft: &Draft{
		Points: []r2.Vec{{X: 10, Y: 10}, {X: 20, Y: 10}},
		Cursor: &cursor,
		Color:  "#3b82f6",
		Status: "Drawing region: 2 points",
	}}
	out, err := SVGString(Scene{Width: 100, Height: 100}, doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []string{
		`points="10,10 20,10"`,
		`stroke-dasharray="4 2"`,
		`x2="30" y2="40"`,
		`Drawing region: 2 points`,
	} {
		if !strings.Contains(out, w) {
			t.Errorf("draft output missing %q", w)
		}
	}
}
